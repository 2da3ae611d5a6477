package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
)

// Places is the number of decimal places every amount is kept at.
const Places = 2

// Tolerance is the absolute difference below which two amounts are equal.
var Tolerance = decimal.New(1, -Places)

var cent = decimal.New(1, -Places)

// ShareInput is one participant handed to CalculateShares.
// Amount is required for EXACT splits and ignored for EQUAL ones.
type ShareInput struct {
	UserID string
	Amount decimal.Decimal
}

// Share is a calculated, not yet persisted, bill share.
type Share struct {
	UserID string
	Amount decimal.Decimal
	Paid   bool
}

// Round rounds d to Places decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// WithinTolerance reports whether a and b differ by at most Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// CalculateShares computes the shares of a bill from its split policy.
//
// EQUAL divides total by the participant count. The quotient is truncated
// to cents and the leftover cents go one each to the first participants, so
// the shares always add up to total exactly (100.00 / 3 = 33.34, 33.33, 33.33).
// EXACT passes the given amounts through after checking they add up to
// total within Tolerance. A share is paid iff its user is the payer.
func CalculateShares(policy models.SplitPolicy, total decimal.Decimal, inputs []ShareInput, payerID string) ([]Share, error) {
	if !total.IsPositive() {
		return nil, errs.Validation("total amount must be greater than 0")
	}
	if !total.Equal(Round(total)) {
		return nil, errs.Validation("total amount %s has more than %d decimal places", total, Places)
	}
	if len(inputs) == 0 {
		return nil, errs.Validation("at least one person must be involved in the split")
	}
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if in.UserID == "" {
			return nil, errs.Validation("share user_id is required")
		}
		if seen[in.UserID] {
			return nil, errs.Validation("user %s appears more than once in the split", in.UserID)
		}
		seen[in.UserID] = true
	}

	switch policy {
	case models.SplitEqual:
		if total.LessThan(cent.Mul(decimal.NewFromInt(int64(len(inputs))))) {
			return nil, errs.Validation("total amount %s is too small to split between %d people", total, len(inputs))
		}
		return equalShares(total, inputs, payerID), nil

	case models.SplitExact:
		sum := decimal.Zero
		for _, in := range inputs {
			if !in.Amount.IsPositive() {
				return nil, errs.Validation("share amount for user %s must be greater than 0", in.UserID)
			}
			if !in.Amount.Equal(Round(in.Amount)) {
				return nil, errs.Validation("share amount %s for user %s has more than %d decimal places", in.Amount, in.UserID, Places)
			}
			sum = sum.Add(in.Amount)
		}
		if !WithinTolerance(sum, total) {
			return nil, errs.Validation("sum of shares (%s) must equal total amount (%s)", sum, total)
		}
		shares := make([]Share, len(inputs))
		for i, in := range inputs {
			shares[i] = Share{UserID: in.UserID, Amount: in.Amount, Paid: in.UserID == payerID}
		}
		return shares, nil
	}

	return nil, errs.Validation("split policy %q is not implemented", policy)
}

func equalShares(total decimal.Decimal, inputs []ShareInput, payerID string) []Share {
	count := decimal.NewFromInt(int64(len(inputs)))
	base := total.Div(count).Truncate(Places)
	leftover := total.Sub(base.Mul(count)).Div(cent).IntPart()

	shares := make([]Share, len(inputs))
	for i, in := range inputs {
		amount := base
		if int64(i) < leftover {
			amount = amount.Add(cent)
		}
		shares[i] = Share{UserID: in.UserID, Amount: amount, Paid: in.UserID == payerID}
	}
	return shares
}
