package models

import "time"

const (
	PurchaseStatusCompleted = "completed"
	PurchaseStatusActive    = "active"
	PurchaseStatusCancelled = "cancelled"
	PurchaseStatusOnHold    = "on_hold"
	PurchaseStatusFailed    = "failed"
	PurchaseStatusExpired   = "expired"
)

const (
	PlanTypeBasic        = "basic"
	PlanTypePro          = "pro"
	PlanTypeMax          = "max"
	PlanTypeSubscription = "subscription"
)

// Purchase holds one-time payments and subscriptions in a single table.
// DodoSessionID carries the provider checkout-session id for one-time
// purchases and the provider subscription id for subscriptions; its unique
// index is what makes webhook redelivery idempotent.
type Purchase struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index:idx_purchases_user_status,priority:1" json:"user_id"`
	DodoSessionID string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_purchases_dodo_session_id" json:"dodo_session_id"`
	ProductID     string    `gorm:"type:varchar(191);not null" json:"product_id"`
	Amount        int64     `gorm:"not null;default:0" json:"amount"`
	Currency      string    `gorm:"type:varchar(8);not null;default:'usd'" json:"currency"`
	Status        string    `gorm:"type:varchar(32);not null;index:idx_purchases_user_status,priority:2" json:"status"`
	PlanType      string    `gorm:"type:varchar(32);not null;default:'basic'" json:"plan_type"`
	PaymentData   string    `gorm:"type:longtext" json:"payment_data"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsSubscription reports whether the row tracks a recurring subscription
// rather than a one-time payment.
func (p *Purchase) IsSubscription() bool {
	return p.PlanType == PlanTypeSubscription
}
