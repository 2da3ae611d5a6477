package models

import "github.com/shopspring/decimal"

// EventType names a ledger event delivered to group listeners.
type EventType string

const (
	EventNewBill       EventType = "NEW_BILL"
	EventUpdateBill    EventType = "UPDATE_BILL"
	EventDeleteBill    EventType = "DELETE_BILL"
	EventPaymentUpdate EventType = "PAYMENT_UPDATE"
	EventSettleUp      EventType = "SETTLE_UP"
	EventDebtReminder  EventType = "DEBT_REMINDER"
)

// Event is the structured record broadcast to a group's channel.
// Fields that do not apply to a given Type are left empty.
type Event struct {
	Type    EventType `json:"type"`
	GroupID string    `json:"group_id"`

	// ActorName is the display name of the user who caused the event.
	ActorName string `json:"actor_name,omitempty"`

	BillID      string `json:"bill_id,omitempty"`
	ShareID     string `json:"share_id,omitempty"`
	Description string `json:"description,omitempty"`

	// Counterparties, Count and TotalAmount describe a settle-up or reminder.
	Counterparties []string         `json:"counterparties,omitempty"`
	Count          int              `json:"count,omitempty"`
	TotalAmount    *decimal.Decimal `json:"total_amount,omitempty"`

	// At is the Unix timestamp of the event.
	At int64 `json:"at"`
}
