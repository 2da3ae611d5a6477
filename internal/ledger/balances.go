package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settlewise/internal/calculator"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

const (
	recentActivityLimit = 5
	friendsLimit        = 5
)

// Activity types, from the summarized user's point of view.
const (
	ActivityLent     = "lent"
	ActivityBorrowed = "borrowed"
)

// Balances answers read-only balance questions. It takes no locks.
type Balances struct {
	store storage.Store
}

func NewBalances(store storage.Store) *Balances {
	return &Balances{store: store}
}

// NetBalances aggregates the unpaid shares of scope into net balances.
// A group scope requires the requester to be a member.
func (b *Balances) NetBalances(ctx context.Context, scope storage.Scope) (map[string]decimal.Decimal, error) {
	if scope.IsGroup() {
		if err := RequireMember(ctx, b.store, scope.Requester, scope.GroupID); err != nil {
			return nil, err
		}
	}

	shares, err := b.store.ListUnpaidShares(ctx, scope.ShareQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid shares: %w", err)
	}
	return calculator.NetBalances(shares), nil
}

// UserBalance is one user's net balance with their public details.
type UserBalance struct {
	User   models.UserRef
	Amount decimal.Decimal
}

// GroupBalances returns the group's non-zero net balances, creditors first.
func (b *Balances) GroupBalances(ctx context.Context, groupID, requester string) ([]UserBalance, error) {
	net, err := b.NetBalances(ctx, storage.GroupScope(groupID, requester))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(net))
	for id := range net {
		ids = append(ids, id)
	}
	refs, err := userRefs(ctx, b.store, ids)
	if err != nil {
		return nil, err
	}

	out := make([]UserBalance, 0, len(net))
	for id, amount := range net {
		out = append(out, UserBalance{User: refs[id], Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].User.ID < out[j].User.ID
	})
	return out, nil
}

// Activity is a recent bill involving the summarized user.
type Activity struct {
	BillID      string
	Description string
	Amount      decimal.Decimal
	CreatedAt   int64
	PayerName   string
	GroupName   string
	// Type is ActivityLent when the user paid, ActivityBorrowed otherwise.
	Type string
}

// Summary is a user's dashboard, over all groups or one group.
type Summary struct {
	// TotalOwed is what others owe the user.
	TotalOwed decimal.Decimal
	// TotalOwe is what the user owes others.
	TotalOwe       decimal.Decimal
	GroupCount     int
	RecentActivity []Activity
	// Friends are users sharing a group with the user; empty for a group summary.
	Friends []models.UserRef
}

// Summary builds userID's dashboard. When groupID is set it is limited to
// that group and the user must be a member.
func (b *Balances) Summary(ctx context.Context, userID, groupID string) (*Summary, error) {
	sum := &Summary{TotalOwed: decimal.Zero, TotalOwe: decimal.Zero}

	if groupID != "" {
		if err := RequireMember(ctx, b.store, userID, groupID); err != nil {
			return nil, err
		}
		sum.GroupCount = 1
	} else {
		n, err := b.store.CountGroupsForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count groups: %w", err)
		}
		sum.GroupCount = n
	}

	owed, err := b.store.ListUnpaidShares(ctx, storage.ShareQuery{
		GroupID: groupID, UserID: userID, Involvement: storage.InvolvementAsPayer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list owed shares: %w", err)
	}
	owe, err := b.store.ListUnpaidShares(ctx, storage.ShareQuery{
		GroupID: groupID, UserID: userID, Involvement: storage.InvolvementAsDebtor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list owing shares: %w", err)
	}
	sum.TotalOwed = calculator.SummarizeFor(userID, owed).Owed
	sum.TotalOwe = calculator.SummarizeFor(userID, owe).Owe

	activity, err := b.recentActivity(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	sum.RecentActivity = activity

	if groupID == "" {
		friends, err := b.store.ListCoMembers(ctx, userID, friendsLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to list friends: %w", err)
		}
		for _, f := range friends {
			sum.Friends = append(sum.Friends, f.Ref())
		}
	}

	return sum, nil
}

func (b *Balances) recentActivity(ctx context.Context, userID, groupID string) ([]Activity, error) {
	bills, _, err := b.store.ListBills(ctx, storage.BillQuery{
		GroupID: groupID,
		UserID:  userID,
		Limit:   recentActivityLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent bills: %w", err)
	}

	payerIDs := make([]string, 0, len(bills))
	for _, bill := range bills {
		payerIDs = append(payerIDs, bill.PayerID)
	}
	payers, err := userRefs(ctx, b.store, payerIDs)
	if err != nil {
		return nil, err
	}

	groupNames := make(map[string]string)
	activity := make([]Activity, 0, len(bills))
	for _, bill := range bills {
		name, ok := groupNames[bill.GroupID]
		if !ok {
			group, err := b.store.GetGroup(ctx, bill.GroupID)
			if err != nil {
				return nil, fmt.Errorf("failed to get group: %w", err)
			}
			name = group.Name
			groupNames[bill.GroupID] = name
		}

		kind := ActivityBorrowed
		if bill.PayerID == userID {
			kind = ActivityLent
		}
		activity = append(activity, Activity{
			BillID:      bill.ID,
			Description: bill.Description,
			Amount:      bill.TotalAmount,
			CreatedAt:   bill.CreatedAt,
			PayerName:   payers[bill.PayerID].Name,
			GroupName:   name,
			Type:        kind,
		})
	}
	return activity, nil
}
