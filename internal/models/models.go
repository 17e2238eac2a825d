package models

import "time"

// Product is a row in the IAP catalog. Products are provisioned by an
// administrator and are read-only from this service's perspective.
type Product struct {
	ID        string    `db:"id" json:"id"`
	Credits   *int64    `db:"credits" json:"credits,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Purchase is one recorded purchase attempt. PurchaseToken is the
// idempotency key supplied by the client-side store and is unique in the
// database.
type Purchase struct {
	ID            int64          `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"user_id"`
	ProductID     string         `db:"product_id" json:"product_id"`
	PurchaseToken string         `db:"purchase_token" json:"purchase_token"`
	Status        string         `db:"status" json:"status"`
	Payload       map[string]any `db:"-" json:"payload,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// Profile holds a user's entitlement state. Credits only ever increase
// through purchase verification.
type Profile struct {
	ID        string    `db:"id" json:"id"`
	Role      string    `db:"role" json:"role"`
	Credits   int64     `db:"credits" json:"credits"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Product IDs that carry an entitlement effect. Any other catalogued
// product is recorded but grants nothing.
const (
	ProductProUser           = "Pro_User"
	ProductUnlimitedTier     = "UNLIMITED_TIER"
	ProductSingleEventCredit = "SINGLE_EVENT_CREDIT"
)

// Profile roles
const (
	RoleFree      = "free"
	RolePaid      = "paid"
	RoleUnlimited = "unlimited"
)

// Purchase statuses
const (
	PurchaseStatusVerified = "verified"
)

// ProcessedEvent for consumer-side idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
