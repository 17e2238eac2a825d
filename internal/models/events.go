package models

import "time"

// Event types
const (
	EventTypePurchaseVerified = "PURCHASE_VERIFIED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PurchaseVerifiedEvent published after a purchase has been recorded and
// the entitlement applied. AlreadyRecorded marks replays of a known token.
type PurchaseVerifiedEvent struct {
	BaseEvent
	UserID          string `json:"user_id"`
	ProductID       string `json:"product_id"`
	PurchaseToken   string `json:"purchase_token"`
	Role            string `json:"role"`
	Credits         int64  `json:"credits"`
	AlreadyRecorded bool   `json:"already_recorded"`
}
