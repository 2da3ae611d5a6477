package models

import "github.com/shopspring/decimal"

// Transaction is a settling payment derived by debt simplification:
// From pays Amount to To. It is never stored directly; settle-up records
// it as a settlement Bill.
type Transaction struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// Touches reports whether userID is either side of t.
func (t Transaction) Touches(userID string) bool {
	return t.From == userID || t.To == userID
}

// SettlementBill materializes t as a bill paid by t.From with a single
// unpaid share owed by t.To, which exactly offsets t in the net balances.
func (t Transaction) SettlementBill(groupID, creatorID string) *Bill {
	return &Bill{
		GroupID:      groupID,
		Description:  SettlementDescription,
		TotalAmount:  t.Amount,
		SplitPolicy:  SplitExact,
		PayerID:      t.From,
		CreatorID:    creatorID,
		IsSettlement: true,
		Shares: []BillShare{
			{UserID: t.To, Amount: t.Amount, Paid: false},
		},
	}
}
