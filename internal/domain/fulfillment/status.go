package fulfillment

// Status represents the fulfillment status of an order
type Status string

const (
	StatusInitiated     Status = "INITIATED"
	StatusPaid          Status = "PAID"
	StatusReady         Status = "READY"
	StatusUnderDelivery Status = "UNDER_DELIVERY"
	StatusDelivered     Status = "DELIVERED"
	StatusRefused       Status = "REFUSED"
	StatusCanceled      Status = "CANCELED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusInitiated, StatusPaid, StatusReady, StatusUnderDelivery,
		StatusDelivered, StatusRefused, StatusCanceled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// providerStatusTable maps the status strings reported by the logistics
// provider to internal fulfillment statuses. The provider vocabulary is a
// closed set; anything outside it is ignored by the mapper.
var providerStatusTable = map[string]Status{
	"Order Ready":                            StatusReady,
	"Order Collected from Fulfilment Center": StatusReady,
	"Order In-transit to Delivery Hub":       StatusReady,
	"Order In-transit to Sorting Center":     StatusReady,
	"Order Reached Sorting Center":           StatusReady,
	"Out for Delivery":                       StatusUnderDelivery,
	"Order Delivered":                        StatusDelivered,
	"Picked by Merchant":                     StatusDelivered,
	"Order Delivery Failed":                  StatusRefused,
	"Returned to Fulfilment Center":          StatusRefused,
	"Cancelled":                              StatusCanceled,
	"Voided":                                 StatusCanceled,
	"Deleted":                                StatusCanceled,
}

// MapProviderStatus translates a provider status string into an internal
// status. The second return value is false when the provider status is not
// part of the known vocabulary.
func MapProviderStatus(providerStatus string) (Status, bool) {
	s, ok := providerStatusTable[providerStatus]
	return s, ok
}
