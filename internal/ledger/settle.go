package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settlewise/internal/calculator"
	"github.com/mmynk/settlewise/internal/metrics"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// SettleResult reports what a settle-up committed.
type SettleResult struct {
	SettledCount int
	TotalAmount  decimal.Decimal
}

// Debt is a simplified transaction with both parties' public details.
type Debt struct {
	From   models.UserRef
	To     models.UserRef
	Amount decimal.Decimal
}

// Settler computes and commits settling transactions.
type Settler struct {
	store  storage.Store
	notify notifier
}

func NewSettler(store storage.Store, opts ...Option) *Settler {
	return &Settler{store: store, notify: newNotifier(opts)}
}

// SettleUp settles every simplified debt of groupID that involves userID.
//
// The group's unpaid shares are read, simplified and the caller's
// transactions recorded as settlement bills in one group-serialized
// transaction: either every settlement is recorded or none is. History is
// never modified; each settlement bill offsets the debt it settles.
// When something was settled a SETTLE_UP event is published after commit.
func (s *Settler) SettleUp(ctx context.Context, groupID, userID string) (SettleResult, error) {
	result := SettleResult{TotalAmount: decimal.Zero}

	if err := RequireMember(ctx, s.store, userID, groupID); err != nil {
		return result, err
	}

	var settled []models.Transaction
	err := s.store.InGroupTx(ctx, groupID, func(tx storage.Tx) error {
		settled = nil
		shares, err := tx.ListUnpaidShares(ctx, storage.ShareQuery{GroupID: groupID})
		if err != nil {
			return fmt.Errorf("failed to list unpaid shares: %w", err)
		}

		for _, t := range calculator.Simplify(calculator.NetBalances(shares)) {
			if !t.Touches(userID) {
				continue
			}
			if err := tx.CreateBill(ctx, t.SettlementBill(groupID, userID)); err != nil {
				return fmt.Errorf("failed to record settlement: %w", err)
			}
			settled = append(settled, t)
		}
		return nil
	})
	if err != nil {
		s.notify.metrics.SettleUp(metrics.SettleError, 0, decimal.Zero)
		return SettleResult{TotalAmount: decimal.Zero}, err
	}

	for _, t := range settled {
		result.TotalAmount = result.TotalAmount.Add(t.Amount)
	}
	result.TotalAmount = calculator.Round(result.TotalAmount)
	result.SettledCount = len(settled)

	if result.SettledCount == 0 {
		s.notify.metrics.SettleUp(metrics.SettleNoop, 0, decimal.Zero)
		return result, nil
	}
	s.notify.metrics.SettleUp(metrics.SettleSettled, result.SettledCount, result.TotalAmount)

	slog.Info("Settled up",
		"group_id", groupID,
		"user_id", userID,
		"count", result.SettledCount,
		"total", result.TotalAmount.StringFixed(calculator.Places),
	)
	s.announce(ctx, groupID, userID, settled, result)
	return result, nil
}

// announce publishes SETTLE_UP. A failed name lookup falls back to IDs.
func (s *Settler) announce(ctx context.Context, groupID, userID string, settled []models.Transaction, result SettleResult) {
	ids := []string{userID}
	var counterparties []string
	for _, t := range settled {
		other := t.To
		if other == userID {
			other = t.From
		}
		counterparties = append(counterparties, other)
		ids = append(ids, other)
	}

	refs, err := userRefs(ctx, s.store, ids)
	if err != nil {
		slog.Warn("Failed to resolve names for settle-up event", "group_id", groupID, "error", err)
		refs = make(map[string]models.UserRef)
	}
	name := func(id string) string {
		if r, ok := refs[id]; ok {
			return r.Name
		}
		return id
	}

	names := make([]string, len(counterparties))
	for i, id := range counterparties {
		names[i] = name(id)
	}
	total := result.TotalAmount
	s.notify.publish(ctx, models.Event{
		Type:           models.EventSettleUp,
		GroupID:        groupID,
		ActorName:      name(userID),
		Counterparties: names,
		Count:          result.SettledCount,
		TotalAmount:    &total,
	})
}

// SimplifiedDebts returns the group's simplified debts for a member to review.
func (s *Settler) SimplifiedDebts(ctx context.Context, groupID, userID string) ([]Debt, error) {
	if err := RequireMember(ctx, s.store, userID, groupID); err != nil {
		return nil, err
	}

	txs, err := s.PendingDebts(ctx, groupID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, 2*len(txs))
	for _, t := range txs {
		ids = append(ids, t.From, t.To)
	}
	refs, err := userRefs(ctx, s.store, ids)
	if err != nil {
		return nil, err
	}

	debts := make([]Debt, len(txs))
	for i, t := range txs {
		debts[i] = Debt{From: refs[t.From], To: refs[t.To], Amount: t.Amount}
	}
	return debts, nil
}

// PendingDebts returns the group's simplified transactions without any
// membership check. It is meant for internal jobs.
func (s *Settler) PendingDebts(ctx context.Context, groupID string) ([]models.Transaction, error) {
	shares, err := s.store.ListUnpaidShares(ctx, storage.ShareQuery{GroupID: groupID})
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid shares: %w", err)
	}
	return calculator.Simplify(calculator.NetBalances(shares)), nil
}
