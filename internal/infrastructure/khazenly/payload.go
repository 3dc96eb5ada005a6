package khazenly

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shakeout/backend/internal/domain/fulfillment"
)

// Khazenly field length limits
const (
	maxCustomerNameLen = 50
	maxAddressLen      = 100
	maxCityLen         = 80
	maxItemNameLen     = 150
)

// CreateOrderPayload is the request body for the Khazenly CreateOrder API
type CreateOrderPayload struct {
	Order     OrderPayload      `json:"Order"`
	Customer  CustomerPayload   `json:"Customer"`
	LineItems []LineItemPayload `json:"lineItems"`
}

// OrderPayload carries the order header fields
type OrderPayload struct {
	OrderID            string  `json:"orderId"`
	OrderNumber        string  `json:"orderNumber"`
	StoreName          string  `json:"storeName"`
	TotalAmount        float64 `json:"totalAmount"`
	ShippingFees       float64 `json:"shippingFees"`
	DiscountAmount     float64 `json:"discountAmount"`
	TaxAmount          float64 `json:"taxAmount"`
	InvoiceTotalAmount float64 `json:"invoiceTotalAmount"`
	CODAmount          float64 `json:"codAmount"`
	Weight             float64 `json:"weight"`
	NoOfBoxes          int     `json:"noOfBoxes"`
	PaymentMethod      string  `json:"paymentMethod"`
	PaymentStatus      string  `json:"paymentStatus"`
	StoreCurrency      string  `json:"storeCurrency"`
	IsPickedByMerchant bool    `json:"isPickedByMerchant"`
	AdditionalNotes    string  `json:"additionalNotes,omitempty"`
	OrderUserEmail     string  `json:"orderUserEmail,omitempty"`
}

// CustomerPayload carries the recipient contact fields
type CustomerPayload struct {
	CustomerName string `json:"customerName"`
	Tel          string `json:"tel"`
	SecondaryTel string `json:"secondaryTel,omitempty"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	Address3     string `json:"address3"`
	City         string `json:"city"`
	Country      string `json:"country"`
	CustomerID   string `json:"customerId"`
}

// LineItemPayload carries a single purchased item
type LineItemPayload struct {
	SKU            string  `json:"sku"`
	ItemName       string  `json:"itemName"`
	Price          float64 `json:"price"`
	Quantity       int     `json:"quantity"`
	DiscountAmount float64 `json:"discountAmount,omitempty"`
	ItemID         string  `json:"itemId"`
}

// PayloadBuilder builds and validates Khazenly CreateOrder payloads.
// Building is pure: no I/O, no shared state mutation.
type PayloadBuilder struct {
	storeName      string
	orderUserEmail string
	now            func() time.Time
}

// NewPayloadBuilder creates a payload builder for the given store
func NewPayloadBuilder(storeName, orderUserEmail string) *PayloadBuilder {
	return &PayloadBuilder{
		storeName:      storeName,
		orderUserEmail: orderUserEmail,
		now:            time.Now,
	}
}

// WithClock overrides the time source. Used in tests so the attempt-scoped
// orderId is deterministic.
func (b *PayloadBuilder) WithClock(now func() time.Time) *PayloadBuilder {
	b.now = now
	return b
}

// Build assembles the CreateOrder payload for an order. It collects every
// validation issue before failing: a non-empty issue list means no payload
// and a *fulfillment.ValidationError carrying all of them. Warnings report
// recoverable data problems (dropped secondary phone, unknown region code)
// that do not block submission.
func (b *PayloadBuilder) Build(order *fulfillment.Order, customer *fulfillment.Customer, address *fulfillment.ShippingAddress, strict bool) (*CreateOrderPayload, []string, error) {
	var issues []fulfillment.ValidationIssue
	var warnings []string

	if len(order.Items) == 0 {
		issues = append(issues, fulfillment.ValidationIssue{
			Field: "lineItems", Detail: "order has no line items",
		})
	}

	name := Sanitize(customer.DisplayName, strict)
	if name == "" {
		name = Sanitize(address.RecipientName, strict)
	}
	if name == "" {
		issues = append(issues, fulfillment.ValidationIssue{
			Field: "Customer.customerName", Detail: "customer name is empty after sanitization",
			Value: preview(customer.DisplayName),
		})
	}
	name = TruncateWords(name, maxCustomerNameLen)

	tel, telOK := NormalizePhone(address.Phone)
	if !telOK {
		issues = append(issues, fulfillment.ValidationIssue{
			Field: "Customer.tel", Detail: "not a valid Egyptian mobile number",
			Value: preview(address.Phone),
		})
	}
	secondaryTel := b.secondaryPhone(customer, tel, &warnings)

	address1 := TruncateWords(Sanitize(address.Street, strict), maxAddressLen)
	if address1 == "" {
		issues = append(issues, fulfillment.ValidationIssue{
			Field: "Customer.address1", Detail: "street address is empty after sanitization",
			Value: preview(address.Street),
		})
	}

	city := b.buildCity(address, strict, &warnings)

	items := make([]LineItemPayload, 0, len(order.Items))
	for idx := range order.Items {
		item := &order.Items[idx]
		itemName := Sanitize(item.ProductName, strict)
		if itemName == "" {
			issues = append(issues, fulfillment.ValidationIssue{
				Field:  fmt.Sprintf("lineItems[%d].itemName", idx),
				Detail: "product name is empty after sanitization",
				Value:  preview(item.ProductName),
			})
		}
		if item.Quantity <= 0 {
			issues = append(issues, fulfillment.ValidationIssue{
				Field:  fmt.Sprintf("lineItems[%d].quantity", idx),
				Detail: "quantity must be positive",
				Value:  fmt.Sprintf("%d", item.Quantity),
			})
			continue
		}
		if !strict {
			if variant := variantSuffix(item); variant != "" {
				itemName += " " + variant
			}
		}
		itemName = TruncateWords(itemName, maxItemNameLen)

		// Discounted unit price: the line discount spread over the quantity
		unitPrice := item.LineTotal().
			Div(decimal.NewFromInt(int64(item.Quantity))).
			Round(2)
		if unitPrice.IsNegative() {
			issues = append(issues, fulfillment.ValidationIssue{
				Field:  fmt.Sprintf("lineItems[%d].price", idx),
				Detail: "discount exceeds the line total",
				Value:  unitPrice.String(),
			})
		}

		items = append(items, LineItemPayload{
			SKU:            itemSKU(item),
			ItemName:       itemName,
			Price:          unitPrice.InexactFloat64(),
			Quantity:       item.Quantity,
			DiscountAmount: item.DiscountAmount.Round(2).InexactFloat64(),
			ItemID:         item.ID.String(),
		})
	}

	if len(issues) > 0 {
		return nil, warnings, &fulfillment.ValidationError{Issues: issues}
	}

	total := order.FinalTotal().Round(2)
	orderDiscount := order.GiftDiscount.Add(order.CouponDiscount).Round(2)

	customerID := fmt.Sprintf("USER-%s", customer.ID)
	if strict {
		customerID = customer.ID.String()
	}

	payload := &CreateOrderPayload{
		Order: OrderPayload{
			// Unique per attempt so a resubmission after an ambiguous
			// failure never collides on the provider side
			OrderID:            fmt.Sprintf("%s-%d", order.OrderNumber, b.now().Unix()),
			OrderNumber:        order.OrderNumber,
			StoreName:          b.storeName,
			TotalAmount:        total.InexactFloat64(),
			ShippingFees:       order.ShippingFee.Round(2).InexactFloat64(),
			DiscountAmount:     orderDiscount.InexactFloat64(),
			TaxAmount:          0,
			InvoiceTotalAmount: total.InexactFloat64(),
			CODAmount:          0,
			Weight:             0,
			NoOfBoxes:          1,
			PaymentMethod:      "Prepaid",
			PaymentStatus:      "paid",
			StoreCurrency:      "EGP",
			IsPickedByMerchant: false,
			AdditionalNotes:    fmt.Sprintf("%d items, total %s EGP", len(items), total.StringFixed(2)),
			OrderUserEmail:     b.orderUserEmail,
		},
		Customer: CustomerPayload{
			CustomerName: name,
			Tel:          tel,
			SecondaryTel: secondaryTel,
			Address1:     address1,
			City:         city,
			Country:      "Egypt",
			CustomerID:   customerID,
		},
		LineItems: items,
	}

	return payload, warnings, nil
}

// secondaryPhone picks the first valid phone from the customer's contact
// chain that differs from the primary. Invalid candidates are dropped with a
// warning instead of blocking the submission.
func (b *PayloadBuilder) secondaryPhone(customer *fulfillment.Customer, primary string, warnings *[]string) string {
	for _, candidate := range customer.ContactPhones() {
		normalized, ok := NormalizePhone(candidate)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("secondary phone %q dropped: not a valid Egyptian mobile number", preview(candidate)))
			continue
		}
		if normalized == primary {
			continue
		}
		return normalized
	}
	return ""
}

// buildCity composes the governorate name with the free-text city, keeping
// the governorate intact when truncating.
func (b *PayloadBuilder) buildCity(address *fulfillment.ShippingAddress, strict bool, warnings *[]string) string {
	governorate, known := GovernorateName(address.RegionCode)
	if !known {
		*warnings = append(*warnings, fmt.Sprintf("unknown region code %q, defaulting to %s", address.RegionCode, DefaultGovernorate))
	}

	freeText := Sanitize(address.City, strict)
	if freeText == "" {
		return governorate
	}

	city := governorate + " - " + freeText
	if len([]rune(city)) <= maxCityLen {
		return city
	}
	// Truncate only the free-text part so the governorate always survives
	budget := maxCityLen - len([]rune(governorate+" - "))
	if budget <= 0 {
		return governorate
	}
	freeText = TruncateWords(freeText, budget)
	if freeText == "" {
		return governorate
	}
	return governorate + " - " + freeText
}

// variantSuffix renders the size/color annotation appended to item names
func variantSuffix(item *fulfillment.OrderLineItem) string {
	switch {
	case item.Size != "" && item.Color != "":
		return fmt.Sprintf("(Size: %s, Color: %s)", item.Size, item.Color)
	case item.Size != "":
		return fmt.Sprintf("(Size: %s)", item.Size)
	case item.Color != "":
		return fmt.Sprintf("(Color: %s)", item.Color)
	}
	return ""
}

// itemSKU falls back to a product-id derived SKU when no code is set
func itemSKU(item *fulfillment.OrderLineItem) string {
	if item.ProductCode != "" {
		return item.ProductCode
	}
	return fmt.Sprintf("PROD-%s", item.ProductID)
}

// preview returns a short, log-safe excerpt of a raw value
func preview(s string) string {
	const max = 30
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
