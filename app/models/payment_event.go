package models

import "time"

// Terminal and pending outcomes recorded on a payment event.
const (
	EventOutcomePending    = "pending"
	EventOutcomeGranted    = "granted"
	EventOutcomeIgnored    = "ignored"
	EventOutcomeUnresolved = "unresolved"
	EventOutcomeConflict   = "conflict"
)

// PaymentEvent stores provider webhook payloads with deduplication metadata
// for idempotent processing. The unique (provider, provider_event_id) index is
// the atomic gate against concurrent redeliveries. ProcessedAt stays NULL
// while an event is only "seen but pending" (unresolved identity, transient
// failure) so it remains eligible for re-delivery and operator review.
type PaymentEvent struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Provider          string     `gorm:"type:varchar(20);not null;index:ux_payment_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID   string     `gorm:"type:varchar(191);not null;default:'';index:ux_payment_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType         string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	BuyerEmail        string     `gorm:"type:varchar(200);default:''" json:"buyer_email"`
	CustomerID        string     `gorm:"type:varchar(191);default:'';index" json:"customer_id"`
	ClientReferenceID string     `gorm:"type:varchar(191);default:''" json:"client_reference_id"`
	ProductID         uint       `gorm:"default:0;index" json:"product_id"`
	PaymentStatus     string     `gorm:"type:varchar(32);default:''" json:"payment_status"`
	AmountTotal       int64      `gorm:"default:0" json:"amount_total"`
	Currency          string     `gorm:"type:varchar(8);default:''" json:"currency"`
	PayloadJSON       string     `gorm:"type:longtext;not null" json:"payload_json"`
	Outcome           string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"outcome"`
	ProcessedAt       *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError   string     `gorm:"type:text" json:"processing_error"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsProcessed reports whether the event reached a terminal outcome.
func (e *PaymentEvent) IsProcessed() bool {
	return e.ProcessedAt != nil
}
