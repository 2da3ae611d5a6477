package memory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
	"github.com/mmynk/settlewise/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestReturnedBillsAreCopies(t *testing.T) {
	store := New()
	alice := storagetest.SeedUser(t, store, "alice@example.com", "Alice")
	bob := storagetest.SeedUser(t, store, "bob@example.com", "Bob")
	group := storagetest.SeedGroup(t, store, "Trip", alice, bob)

	settle := models.Transaction{From: bob.ID, To: alice.ID, Amount: decimalOne()}
	bill := settle.SettlementBill(group.ID, bob.ID)
	require.NoError(t, store.CreateBill(t.Context(), bill))

	got, err := store.GetBill(t.Context(), bill.ID)
	require.NoError(t, err)
	got.Description = "changed"
	got.Shares[0].Paid = true

	again, err := store.GetBill(t.Context(), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SettlementDescription, again.Description)
	assert.False(t, again.Shares[0].Paid)
}

func TestStagedBillsVisibleInsideTx(t *testing.T) {
	store := New()
	alice := storagetest.SeedUser(t, store, "alice@example.com", "Alice")
	bob := storagetest.SeedUser(t, store, "bob@example.com", "Bob")
	group := storagetest.SeedGroup(t, store, "Trip", alice, bob)

	err := store.InGroupTx(t.Context(), group.ID, func(tx storage.Tx) error {
		settle := models.Transaction{From: bob.ID, To: alice.ID, Amount: decimalOne()}
		require.NoError(t, tx.CreateBill(t.Context(), settle.SettlementBill(group.ID, bob.ID)))

		shares, err := tx.ListUnpaidShares(t.Context(), storage.ShareQuery{GroupID: group.ID})
		require.NoError(t, err)
		assert.Len(t, shares, 1)

		outside, err := store.ListUnpaidShares(t.Context(), storage.ShareQuery{GroupID: group.ID})
		require.NoError(t, err)
		assert.Empty(t, outside)
		return nil
	})
	require.NoError(t, err)
}

func decimalOne() decimal.Decimal {
	return decimal.NewFromInt(1)
}
