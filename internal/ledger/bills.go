package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settlewise/internal/calculator"
	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// BillInput describes a new bill.
type BillInput struct {
	GroupID     string
	Description string
	TotalAmount decimal.Decimal
	SplitPolicy models.SplitPolicy
	// PayerID defaults to the creator.
	PayerID string
	// Shares lists the participants. Amounts are ignored for EQUAL splits.
	Shares []calculator.ShareInput
}

// BillChange lists the fields of a bill update. Nil fields are unchanged.
type BillChange struct {
	Description *string
	TotalAmount *decimal.Decimal
	SplitPolicy *models.SplitPolicy
	PayerID     *string
	// Shares, when non-nil, replaces the participants.
	Shares []calculator.ShareInput
}

// BillPage is one page of a bill listing.
type BillPage struct {
	Bills   []*models.Bill
	Total   int
	Offset  int
	Limit   int
	HasMore bool
}

// BillBook records, edits and lists the bills of group ledgers.
type BillBook struct {
	store  storage.Store
	notify notifier
}

func NewBillBook(store storage.Store, opts ...Option) *BillBook {
	return &BillBook{store: store, notify: newNotifier(opts)}
}

// CreateBill records a bill created by userID and publishes NEW_BILL.
func (b *BillBook) CreateBill(ctx context.Context, userID string, in BillInput) (*models.Bill, error) {
	if err := RequireMember(ctx, b.store, userID, in.GroupID); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, errs.Validation("description is required")
	}

	payerID := in.PayerID
	if payerID == "" {
		payerID = userID
	}
	if err := b.requireParticipants(ctx, in.GroupID, payerID, in.Shares); err != nil {
		return nil, err
	}

	shares, err := calculator.CalculateShares(in.SplitPolicy, in.TotalAmount, in.Shares, payerID)
	if err != nil {
		return nil, err
	}

	bill := &models.Bill{
		GroupID:     in.GroupID,
		Description: description,
		TotalAmount: in.TotalAmount,
		SplitPolicy: in.SplitPolicy,
		PayerID:     payerID,
		CreatorID:   userID,
		Shares:      toBillShares(shares),
	}
	if err := b.store.CreateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}

	slog.Info("Bill created", "bill_id", bill.ID, "group_id", bill.GroupID, "total", bill.TotalAmount.StringFixed(calculator.Places))
	b.announce(ctx, models.EventNewBill, userID, bill, "")
	return bill, nil
}

// UpdateBill applies change to a bill and publishes UPDATE_BILL.
// Settlement bills cannot be edited.
func (b *BillBook) UpdateBill(ctx context.Context, userID, billID string, change BillChange) (*models.Bill, error) {
	bill, err := b.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := RequireMember(ctx, b.store, userID, bill.GroupID); err != nil {
		return nil, err
	}
	if bill.IsSettlement {
		return nil, errs.Validation("settlement bills cannot be edited")
	}

	payerID := bill.PayerID
	if change.PayerID != nil {
		payerID = *change.PayerID
	}
	if err := b.requireParticipants(ctx, bill.GroupID, payerID, change.Shares); err != nil {
		return nil, err
	}

	shares, replace, err := calculator.Recalculate(bill, calculator.RecalcChange{
		Policy:  change.SplitPolicy,
		Total:   change.TotalAmount,
		PayerID: change.PayerID,
		Shares:  change.Shares,
	})
	if err != nil {
		return nil, err
	}

	if change.Description != nil {
		description := strings.TrimSpace(*change.Description)
		if description == "" {
			return nil, errs.Validation("description is required")
		}
		bill.Description = description
	}
	if change.TotalAmount != nil {
		bill.TotalAmount = *change.TotalAmount
	}
	if change.SplitPolicy != nil {
		bill.SplitPolicy = *change.SplitPolicy
	}
	bill.PayerID = payerID
	bill.UpdatedBy = userID
	bill.UpdatedAt = b.notify.now().Unix()

	var newShares []models.BillShare
	if replace {
		newShares = toBillShares(shares)
	}
	if err := b.store.UpdateBill(ctx, bill, newShares); err != nil {
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}

	updated, err := b.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	slog.Info("Bill updated", "bill_id", billID, "group_id", updated.GroupID, "shares_replaced", replace)
	b.announce(ctx, models.EventUpdateBill, userID, updated, "")
	return updated, nil
}

// DeleteBill soft-deletes a bill. Only its creator or payer may delete it.
func (b *BillBook) DeleteBill(ctx context.Context, userID, billID string) error {
	bill, err := b.store.GetBill(ctx, billID)
	if err != nil {
		return err
	}
	if err := RequireMember(ctx, b.store, userID, bill.GroupID); err != nil {
		return err
	}
	if userID != bill.CreatorID && userID != bill.PayerID {
		return errs.Forbidden("only the bill's creator or payer can delete it")
	}

	if err := b.store.DeleteBill(ctx, billID, userID); err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}

	slog.Info("Bill deleted", "bill_id", billID, "group_id", bill.GroupID)
	b.announce(ctx, models.EventDeleteBill, userID, bill, "")
	return nil
}

// GetBill returns a bill of a group userID belongs to.
func (b *BillBook) GetBill(ctx context.Context, userID, billID string) (*models.Bill, error) {
	bill, err := b.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := RequireMember(ctx, b.store, userID, bill.GroupID); err != nil {
		return nil, err
	}
	return bill, nil
}

// ListGroupBills pages through a group's bills, newest first.
func (b *BillBook) ListGroupBills(ctx context.Context, userID, groupID, search string, offset, limit int) (*BillPage, error) {
	if err := RequireMember(ctx, b.store, userID, groupID); err != nil {
		return nil, err
	}
	return b.list(ctx, storage.BillQuery{GroupID: groupID, Search: search}, offset, limit)
}

// ListUserBills pages through the bills userID paid or shares, in any group.
func (b *BillBook) ListUserBills(ctx context.Context, userID string, offset, limit int) (*BillPage, error) {
	return b.list(ctx, storage.BillQuery{UserID: userID}, offset, limit)
}

func (b *BillBook) list(ctx context.Context, q storage.BillQuery, offset, limit int) (*BillPage, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	q.Offset, q.Limit = offset, limit

	bills, total, err := b.store.ListBills(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	return &BillPage{
		Bills:   bills,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		HasMore: offset+len(bills) < total,
	}, nil
}

// MarkSharePaid marks userID's own share as paid and publishes PAYMENT_UPDATE.
func (b *BillBook) MarkSharePaid(ctx context.Context, userID, shareID string) (*models.BillShare, error) {
	return b.setPaid(ctx, userID, shareID, true)
}

// MarkShareUnpaid reverts MarkSharePaid.
func (b *BillBook) MarkShareUnpaid(ctx context.Context, userID, shareID string) (*models.BillShare, error) {
	return b.setPaid(ctx, userID, shareID, false)
}

func (b *BillBook) setPaid(ctx context.Context, userID, shareID string, paid bool) (*models.BillShare, error) {
	state := "unpaid"
	if paid {
		state = "paid"
	}

	share, bill, err := b.store.GetShare(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if err := RequireMember(ctx, b.store, userID, bill.GroupID); err != nil {
		return nil, err
	}
	if share.UserID != userID {
		return nil, errs.Forbidden("you can only mark your own shares as %s", state)
	}
	if share.Paid == paid {
		return nil, errs.Validation("this share is already marked as %s", state)
	}

	if err := b.store.SetSharePaid(ctx, shareID, paid); err != nil {
		return nil, fmt.Errorf("failed to mark share %s: %w", state, err)
	}
	share.Paid = paid

	slog.Info("Share payment updated", "share_id", shareID, "bill_id", bill.ID, "paid", paid)
	b.announce(ctx, models.EventPaymentUpdate, userID, bill, shareID)
	return share, nil
}

// requireParticipants checks that the payer and every share user belong to the group.
func (b *BillBook) requireParticipants(ctx context.Context, groupID, payerID string, shares []calculator.ShareInput) error {
	ids := []string{payerID}
	for _, s := range shares {
		ids = append(ids, s.UserID)
	}
	for _, id := range uniq(ids) {
		if id == "" {
			continue
		}
		ok, err := b.store.IsMember(ctx, id, groupID)
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if !ok {
			return errs.Validation("user %s is not a member of the group", id)
		}
	}
	return nil
}

func (b *BillBook) announce(ctx context.Context, eventType models.EventType, actorID string, bill *models.Bill, shareID string) {
	actor := actorID
	if refs, err := userRefs(ctx, b.store, []string{actorID}); err == nil {
		actor = refs[actorID].Name
	}
	total := bill.TotalAmount
	b.notify.publish(ctx, models.Event{
		Type:        eventType,
		GroupID:     bill.GroupID,
		ActorName:   actor,
		BillID:      bill.ID,
		ShareID:     shareID,
		Description: bill.Description,
		TotalAmount: &total,
	})
}

func toBillShares(shares []calculator.Share) []models.BillShare {
	out := make([]models.BillShare, len(shares))
	for i, s := range shares {
		out[i] = models.BillShare{UserID: s.UserID, Amount: s.Amount, Paid: s.Paid}
	}
	return out
}
