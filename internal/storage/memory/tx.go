package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// stagedTx buffers writes until the callback of InGroupTx succeeds.
type stagedTx struct {
	store  *Store
	staged []*models.Bill
}

func (t *stagedTx) ListUnpaidShares(_ context.Context, q storage.ShareQuery) ([]models.UnpaidShare, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.unpaidSharesLocked(q, t.staged), nil
}

func (t *stagedTx) CreateBill(_ context.Context, bill *models.Bill) error {
	t.store.mu.RLock()
	err := t.store.checkBillLocked(bill)
	t.store.mu.RUnlock()
	if err != nil {
		return err
	}
	fillBillIDs(bill)
	cp := *bill
	cp.Shares = append([]models.BillShare(nil), bill.Shares...)
	t.staged = append(t.staged, &cp)
	return nil
}

// InGroupTx runs fn while holding the group's lock. Bills fn creates are
// applied only if it returns nil.
func (s *Store) InGroupTx(ctx context.Context, groupID string, fn func(tx storage.Tx) error) error {
	unlock, err := s.locks.Acquire(ctx, groupID)
	if err != nil {
		return err
	}
	defer unlock()

	tx := &stagedTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range tx.staged {
		s.insertBillLocked(b)
	}
	return nil
}

// fillBillIDs assigns missing IDs and timestamps so callers can refer to a
// staged bill before it is applied.
func fillBillIDs(bill *models.Bill) {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	for i := range bill.Shares {
		sh := &bill.Shares[i]
		if sh.ID == "" {
			sh.ID = uuid.New().String()
		}
		sh.BillID = bill.ID
		if sh.CreatedAt == 0 {
			sh.CreatedAt = bill.CreatedAt
		}
	}
}
