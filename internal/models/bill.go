package models

import "github.com/shopspring/decimal"

// SplitPolicy says how a bill's total is divided between its shares.
type SplitPolicy string

const (
	// SplitEqual divides the total evenly between the participants.
	SplitEqual SplitPolicy = "EQUAL"
	// SplitExact takes an explicit amount per participant.
	SplitExact SplitPolicy = "EXACT"
)

// SettlementDescription is the description given to bills created by settle-up.
const SettlementDescription = "Settle up"

// Bill represents a group expense paid by one member and owed by its shares.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// GroupID is the group whose ledger this bill belongs to.
	GroupID string

	// Description is the human-readable label (e.g., "Groceries").
	Description string

	// TotalAmount is the positive bill total, at most 2 decimal places.
	TotalAmount decimal.Decimal

	// SplitPolicy is how TotalAmount was divided into Shares.
	SplitPolicy SplitPolicy

	// PayerID is the user who paid the bill and is owed the unpaid shares.
	PayerID string

	// CreatorID is the user who recorded the bill.
	CreatorID string

	// IsSettlement marks bills created by settle-up. They offset
	// earlier unpaid shares and are never edited.
	IsSettlement bool

	// CreatedAt is the Unix timestamp when the bill was recorded.
	CreatedAt int64

	// UpdatedAt and UpdatedBy track the last edit (zero/empty if never edited).
	UpdatedAt int64
	UpdatedBy string

	// DeletedAt is set when the bill is soft-deleted.
	DeletedAt *int64

	// Shares are the bill's active (non-deleted) shares.
	Shares []BillShare
}

// ShareSum returns the sum of the bill's share amounts.
func (b *Bill) ShareSum() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range b.Shares {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// BillShare is one participant's portion of a bill.
type BillShare struct {
	// ID is the unique identifier for the share (UUID format).
	ID string

	// BillID is the parent bill.
	BillID string

	// UserID is the participant who owes Amount to the bill's payer.
	UserID string

	// Amount is the positive share amount.
	Amount decimal.Decimal

	// Paid is true once the participant has paid the payer back.
	// The payer's own share is paid from creation.
	Paid bool

	CreatedAt int64
	UpdatedAt int64

	// DeletedAt is set when a recalculation drops the participant.
	DeletedAt *int64
}

// UnpaidShare is an unpaid, non-deleted share joined to its non-deleted bill.
// It is the only input the balance aggregator needs.
type UnpaidShare struct {
	ShareID string
	BillID  string
	GroupID string
	PayerID string
	UserID  string
	Amount  decimal.Decimal
}
