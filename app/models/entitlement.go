package models

import "time"

// Grant sources recorded on an entitlement.
const (
	GrantSourceEvent  = "event"
	GrantSourceManual = "manual"
)

// Entitlement is a durable purchase grant. The (user_id, product_id,
// source_event_id) triple is unique so a re-delivered provider event can never
// create a second grant, while a genuine repurchase (distinct event id) can.
// Rows are never mutated after creation.
type Entitlement struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index:ux_entitlements_user_product_event,unique,priority:1;index" json:"user_id"`
	ProductID     uint       `gorm:"not null;index:ux_entitlements_user_product_event,unique,priority:2;index" json:"product_id"`
	SourceEventID string     `gorm:"type:varchar(191);not null;index:ux_entitlements_user_product_event,unique,priority:3" json:"source_event_id"`
	Source        string     `gorm:"type:varchar(20);not null;default:'event'" json:"source"`
	GrantedByID   uint       `gorm:"default:0" json:"granted_by_id,omitempty"` // admin user id for manual grants
	RevokedAt     *time.Time `gorm:"type:timestamp;default:null" json:"revoked_at,omitempty"`
	GrantedAt     time.Time  `gorm:"autoCreateTime;index" json:"granted_at"`
}

// IsRevoked reports whether the grant was revoked by administrative action.
func (e *Entitlement) IsRevoked() bool {
	return e.RevokedAt != nil
}
