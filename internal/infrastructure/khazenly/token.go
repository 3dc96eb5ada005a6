package khazenly

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shakeout/backend/internal/domain/fulfillment"
	"github.com/shakeout/backend/internal/infrastructure/cache"
	"github.com/shakeout/backend/internal/infrastructure/logger"
)

const (
	// tokenCacheKey is where the current access token lives in the cache
	tokenCacheKey = "khazenly:access_token"

	// tokenCacheTTL is the provider's 2h token lifetime minus a 10 minute
	// safety margin, so a token served from cache is never near expiry
	tokenCacheTTL = 110 * time.Minute
)

// tokenResponse is the OAuth token endpoint response body
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	IssuedAt    string `json:"issued_at"`
}

// TokenManager exchanges the long-lived refresh token for short-lived access
// tokens and caches them. Safe for concurrent use; concurrent refreshes are
// harmless (last write wins, both tokens are valid).
type TokenManager struct {
	config     *Config
	cache      cache.TokenCache
	httpClient *http.Client
}

// NewTokenManager creates a token manager backed by the given cache
func NewTokenManager(config *Config, tokenCache cache.TokenCache) *TokenManager {
	return &TokenManager{
		config: config,
		cache:  tokenCache,
		httpClient: &http.Client{
			Timeout: config.TokenTimeout,
		},
	}
}

// AccessToken returns a valid access token, refreshing through the OAuth
// endpoint on cache miss. All failure modes are wrapped in
// fulfillment.ErrTokenUnavailable; no retry happens here.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	token, ok, err := m.cache.Get(ctx, tokenCacheKey)
	if err != nil {
		// A broken cache must not block submissions; refresh instead
		logger.L(ctx).Warn("token cache read failed, refreshing",
			zap.Error(err))
	}
	if ok && token != "" {
		return token, nil
	}

	token, err = m.refresh(ctx)
	if err != nil {
		return "", err
	}

	if err := m.cache.Set(ctx, tokenCacheKey, token, tokenCacheTTL); err != nil {
		logger.L(ctx).Warn("token cache write failed",
			zap.Error(err))
	}
	return token, nil
}

// Invalidate drops the cached token so the next call refreshes. Called when
// the provider rejects a token mid-lifetime.
func (m *TokenManager) Invalidate(ctx context.Context) {
	if err := m.cache.Delete(ctx, tokenCacheKey); err != nil {
		logger.L(ctx).Warn("token cache invalidation failed",
			zap.Error(err))
	}
}

// refresh performs the refresh-token grant against the OAuth endpoint
func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", m.config.ClientID)
	form.Set("client_secret", m.config.ClientSecret)
	form.Set("refresh_token", m.config.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.config.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: building token request: %v", fulfillment.ErrTokenUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", fulfillment.ErrTokenUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: reading token response: %v", fulfillment.ErrTokenUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned HTTP %d", fulfillment.ErrTokenUnavailable, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("%w: malformed token response: %v", fulfillment.ErrTokenUnavailable, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: token response has no access_token", fulfillment.ErrTokenUnavailable)
	}

	return tr.AccessToken, nil
}
