package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/settlewise/internal/models"
)

// NetBalances reduces unpaid shares to a net balance per user.
// Positive = owed money (creditor), negative = owes money (debtor).
//
// Algorithm:
// - For each share: the bill's payer is credited, the share's user debited
// - Shares owned by the payer are skipped (nobody owes themselves)
// - Each running balance is rounded to Places after every addition
// - Users whose balance rounds to zero are left out
func NetBalances(shares []models.UnpaidShare) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	for _, s := range shares {
		if s.UserID == s.PayerID {
			continue
		}
		balances[s.PayerID] = Round(balances[s.PayerID].Add(s.Amount))
		balances[s.UserID] = Round(balances[s.UserID].Sub(s.Amount))
	}
	for user, bal := range balances {
		if bal.IsZero() {
			delete(balances, user)
		}
	}
	return balances
}

// Totals is what one user is owed and owes across a set of unpaid shares.
type Totals struct {
	// Owed is the sum others owe the user (user paid, others' shares unpaid).
	Owed decimal.Decimal
	// Owe is the sum the user owes others (user's unpaid shares on others' bills).
	Owe decimal.Decimal
}

// SummarizeFor splits the unpaid shares involving userID into the amount
// the user is owed and the amount the user owes.
func SummarizeFor(userID string, shares []models.UnpaidShare) Totals {
	totals := Totals{Owed: decimal.Zero, Owe: decimal.Zero}
	for _, s := range shares {
		if s.UserID == s.PayerID {
			continue
		}
		switch userID {
		case s.PayerID:
			totals.Owed = Round(totals.Owed.Add(s.Amount))
		case s.UserID:
			totals.Owe = Round(totals.Owe.Add(s.Amount))
		}
	}
	return totals
}
