// Package reminder periodically announces outstanding debts to each group.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/mmynk/settlewise/internal/ledger"
	"github.com/mmynk/settlewise/internal/metrics"
	"github.com/mmynk/settlewise/internal/models"
)

const runTimeout = time.Minute

// GroupLister lists every group.
type GroupLister interface {
	ListGroupIDs(ctx context.Context) ([]string, error)
}

// DebtSource computes a group's simplified debts.
type DebtSource interface {
	PendingDebts(ctx context.Context, groupID string) ([]models.Transaction, error)
}

// Reminder publishes one DEBT_REMINDER event per group with unsettled debts.
type Reminder struct {
	groups    GroupLister
	debts     DebtSource
	users     ledger.UserDirectory
	publisher ledger.Publisher
	metrics   *metrics.Metrics
}

func New(groups GroupLister, debts DebtSource, users ledger.UserDirectory, publisher ledger.Publisher, m *metrics.Metrics) *Reminder {
	return &Reminder{
		groups:    groups,
		debts:     debts,
		users:     users,
		publisher: publisher,
		metrics:   m,
	}
}

// Start schedules Run on spec (standard 5-field cron syntax) and starts the
// scheduler. Stop the returned cron to end it.
func (r *Reminder) Start(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := r.Run(ctx); err != nil {
			slog.Error("Debt reminder job failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule debt reminders %q: %w", spec, err)
	}
	c.Start()
	slog.Info("Debt reminders scheduled", "schedule", spec)
	return c, nil
}

// Run announces debts for every group and returns how many reminders were
// published. A failing group is logged and skipped.
func (r *Reminder) Run(ctx context.Context) (int, error) {
	groupIDs, err := r.groups.ListGroupIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list groups: %w", err)
	}

	sent := 0
	for _, groupID := range groupIDs {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		ok, err := r.remind(ctx, groupID)
		if err != nil {
			slog.Warn("Debt reminder failed", "group_id", groupID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}

	slog.Info("Debt reminders sent", "groups", len(groupIDs), "reminders", sent)
	return sent, nil
}

func (r *Reminder) remind(ctx context.Context, groupID string) (bool, error) {
	txs, err := r.debts.PendingDebts(ctx, groupID)
	if err != nil {
		return false, err
	}
	if len(txs) == 0 {
		return false, nil
	}

	debtors := make([]string, 0, len(txs))
	total := decimal.Zero
	for _, t := range txs {
		debtors = append(debtors, t.From)
		total = total.Add(t.Amount)
	}
	names, err := r.names(ctx, debtors)
	if err != nil {
		return false, err
	}

	event := models.Event{
		Type:           models.EventDebtReminder,
		GroupID:        groupID,
		Counterparties: names,
		Count:          len(txs),
		TotalAmount:    &total,
		At:             time.Now().Unix(),
	}
	if err := r.publisher.Publish(ctx, groupID, event); err != nil {
		return false, fmt.Errorf("failed to publish reminder: %w", err)
	}
	r.metrics.ReminderSent()
	r.metrics.EventPublished(string(event.Type))
	return true, nil
}

// names returns the distinct display names of ids, in order of first appearance.
func (r *Reminder) names(ctx context.Context, ids []string) ([]string, error) {
	users, err := r.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := users[id]; ok {
			out = append(out, u.Name)
		} else {
			out = append(out, id)
		}
	}
	return out, nil
}
