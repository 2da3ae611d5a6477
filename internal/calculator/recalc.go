package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
)

// RecalcChange lists the fields a bill update touches. Nil means unchanged.
type RecalcChange struct {
	Policy  *models.SplitPolicy
	Total   *decimal.Decimal
	PayerID *string
	// Shares, when non-nil, replaces the bill's participants.
	Shares []ShareInput
}

// Recalculate decides the share set of an updated bill.
//
// It returns the new shares and true when the share set must be replaced,
// or nil and false when the existing shares stay as they are.
func Recalculate(current *models.Bill, change RecalcChange) ([]Share, bool, error) {
	policy := current.SplitPolicy
	if change.Policy != nil {
		policy = *change.Policy
	}
	total := current.TotalAmount
	if change.Total != nil {
		total = *change.Total
	}
	payerID := current.PayerID
	if change.PayerID != nil {
		payerID = *change.PayerID
	}

	if change.Shares != nil {
		shares, err := CalculateShares(policy, total, change.Shares, payerID)
		if err != nil {
			return nil, false, err
		}
		return shares, true, nil
	}

	if change.Policy == nil && change.Total == nil && change.PayerID == nil {
		return nil, false, nil
	}

	switch policy {
	case models.SplitEqual:
		inputs := make([]ShareInput, len(current.Shares))
		for i, s := range current.Shares {
			inputs[i] = ShareInput{UserID: s.UserID}
		}
		shares, err := CalculateShares(models.SplitEqual, total, inputs, payerID)
		if err != nil {
			return nil, false, err
		}
		return shares, true, nil

	case models.SplitExact:
		if change.Total != nil && !WithinTolerance(current.ShareSum(), total) {
			return nil, false, errs.Validation("updating total amount on an EXACT split requires providing new shares")
		}
		if change.PayerID == nil {
			return nil, false, nil
		}
		// Amounts stay; the paid flag follows the new payer.
		shares := make([]Share, len(current.Shares))
		for i, s := range current.Shares {
			shares[i] = Share{UserID: s.UserID, Amount: s.Amount, Paid: s.UserID == payerID}
		}
		return shares, true, nil
	}

	return nil, false, errs.Validation("split policy %q is not implemented", policy)
}
