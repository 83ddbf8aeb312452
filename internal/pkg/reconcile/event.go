package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Payment statuses that complete a purchase.
const (
	PaymentStatusPaid      = "paid"
	PaymentStatusNoPayment = "no_payment_required"
	PaymentStatusUnpaid    = "unpaid"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusFailed    = "failed"
)

// CheckoutEvent is the strict internal shape of a provider checkout event.
// Provider payloads are loose JSON; everything the pipeline consumes is pulled
// into this type at the boundary and unknown shapes are rejected there.
type CheckoutEvent struct {
	EventID           string
	EventType         string
	Created           time.Time
	BuyerEmail        string
	CustomerID        string
	ClientReferenceID string
	ProductID         uint
	PaymentStatus     string
	AmountTotal       int64
	Currency          string
}

// IsPaymentSuccess reports whether the event's payment status completes a
// purchase.
func (e *CheckoutEvent) IsPaymentSuccess() bool {
	switch strings.ToLower(strings.TrimSpace(e.PaymentStatus)) {
	case PaymentStatusPaid, PaymentStatusNoPayment:
		return true
	default:
		return false
	}
}

// ParseCheckoutEvent parses a provider webhook payload into the strict
// internal event type. Payloads missing the event id, event type, session
// object or a usable product reference are rejected as malformed rather than
// propagated inward.
func ParseCheckoutEvent(payload []byte) (*CheckoutEvent, error) {
	type rawPayload struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object struct {
				ID              string `json:"id"`
				Customer        string `json:"customer"`
				CustomerEmail   string `json:"customer_email"`
				CustomerDetails struct {
					Email string `json:"email"`
				} `json:"customer_details"`
				ClientReferenceID string            `json:"client_reference_id"`
				PaymentStatus     string            `json:"payment_status"`
				AmountTotal       int64             `json:"amount_total"`
				Currency          string            `json:"currency"`
				Metadata          map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}

	var raw rawPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	if strings.TrimSpace(raw.ID) == "" {
		return nil, errors.New("checkout payload missing event id")
	}
	if strings.TrimSpace(raw.Type) == "" {
		return nil, errors.New("checkout payload missing event type")
	}
	if strings.TrimSpace(raw.Data.Object.ID) == "" {
		return nil, errors.New("checkout payload missing session object")
	}

	email := strings.TrimSpace(raw.Data.Object.CustomerEmail)
	if email == "" {
		email = strings.TrimSpace(raw.Data.Object.CustomerDetails.Email)
	}

	productRef := strings.TrimSpace(raw.Data.Object.Metadata["product_id"])
	productID, err := strconv.ParseUint(productRef, 10, 64)
	if err != nil || productID == 0 {
		return nil, fmt.Errorf("checkout payload has no usable product reference: %q", productRef)
	}

	out := &CheckoutEvent{
		EventID:           strings.TrimSpace(raw.ID),
		EventType:         strings.TrimSpace(raw.Type),
		BuyerEmail:        email,
		CustomerID:        strings.TrimSpace(raw.Data.Object.Customer),
		ClientReferenceID: strings.TrimSpace(raw.Data.Object.ClientReferenceID),
		ProductID:         uint(productID),
		PaymentStatus:     strings.ToLower(strings.TrimSpace(raw.Data.Object.PaymentStatus)),
		AmountTotal:       raw.Data.Object.AmountTotal,
		Currency:          strings.ToLower(strings.TrimSpace(raw.Data.Object.Currency)),
	}
	if raw.Created > 0 {
		out.Created = time.Unix(raw.Created, 0).UTC()
	}
	return out, nil
}
