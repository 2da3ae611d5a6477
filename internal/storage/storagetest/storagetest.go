// Package storagetest holds the behaviour every storage.Store must share.
// Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// Factory returns an empty store that is closed when the test ends.
type Factory func(t *testing.T) storage.Store

// SeedUser creates a user.
func SeedUser(t *testing.T, store storage.Store, email, name string) *models.User {
	t.Helper()
	user := models.NewUser(email, name, "hash")
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

// SeedGroup creates a group owned by admin with the other users as members.
func SeedGroup(t *testing.T, store storage.Store, name string, admin *models.User, members ...*models.User) *models.Group {
	t.Helper()
	group := &models.Group{
		Name:      name,
		CreatedBy: admin.ID,
		Members:   []models.GroupMember{{UserID: admin.ID, Role: models.RoleAdmin}},
	}
	for _, m := range members {
		group.Members = append(group.Members, models.GroupMember{UserID: m.ID, Role: models.RoleMember})
	}
	require.NoError(t, store.CreateGroup(context.Background(), group))
	return group
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedBill records a bill paid by payer with the given unpaid shares.
// The payer's own share, when listed, is stored as paid.
func seedBill(t *testing.T, store storage.Store, groupID, desc string, payer *models.User, shares map[*models.User]string) *models.Bill {
	t.Helper()
	bill := &models.Bill{
		GroupID:     groupID,
		Description: desc,
		SplitPolicy: models.SplitExact,
		PayerID:     payer.ID,
		CreatorID:   payer.ID,
	}
	total := decimal.Zero
	for u, a := range shares {
		bill.Shares = append(bill.Shares, models.BillShare{UserID: u.ID, Amount: amount(a), Paid: u.ID == payer.ID})
		total = total.Add(amount(a))
	}
	bill.TotalAmount = total
	require.NoError(t, store.CreateBill(context.Background(), bill))
	return bill
}

// Run exercises the full storage.Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Groups", func(t *testing.T) { testGroups(t, newStore(t)) })
	t.Run("Bills", func(t *testing.T) { testBills(t, newStore(t)) })
	t.Run("UnpaidShares", func(t *testing.T) { testUnpaidShares(t, newStore(t)) })
	t.Run("UpdateBill", func(t *testing.T) { testUpdateBill(t, newStore(t)) })
	t.Run("ListBills", func(t *testing.T) { testListBills(t, newStore(t)) })
	t.Run("InGroupTx", func(t *testing.T) { testInGroupTx(t, newStore(t)) })
	t.Run("InGroupTxSerializes", func(t *testing.T) { testInGroupTxSerializes(t, newStore(t)) })
}

func testUsers(t *testing.T, store storage.Store) {
	ctx := context.Background()
	alice := SeedUser(t, store, "alice@example.com", "Alice")
	bob := SeedUser(t, store, "bob@example.com", "Bob")

	got, err := store.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = store.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got.Email)

	_, err = store.GetUserByID(ctx, "nonexistent-id")
	assert.True(t, errs.IsNotFound(err), "got %v", err)
	_, err = store.GetUserByEmail(ctx, "nobody@example.com")
	assert.True(t, errs.IsNotFound(err), "got %v", err)

	users, err := store.GetUsersByIDs(ctx, []string{alice.ID, bob.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "Bob", users[bob.ID].Name)

	users, err = store.GetUsersByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, users)

	dup := models.NewUser("alice@example.com", "Other Alice", "hash")
	err = store.CreateUser(ctx, dup)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err), "got %v", err)
}

func testGroups(t *testing.T, store storage.Store) {
	ctx := context.Background()
	alice := SeedUser(t, store, "alice@example.com", "Alice")
	bob := SeedUser(t, store, "bob@example.com", "Bob")
	carol := SeedUser(t, store, "carol@example.com", "Carol")
	dave := SeedUser(t, store, "dave@example.com", "Dave")

	trip := SeedGroup(t, store, "Ski Trip", alice, bob)
	flat := SeedGroup(t, store, "Flat", carol, alice)
	assert.NotEmpty(t, trip.ID)
	assert.NotZero(t, trip.CreatedAt)

	got, err := store.GetGroup(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ski Trip", got.Name)
	assert.Equal(t, alice.ID, got.CreatedBy)
	require.Len(t, got.Members, 2)
	assert.True(t, got.HasMember(alice.ID))
	assert.True(t, got.HasMember(bob.ID))
	for _, m := range got.Members {
		if m.UserID == alice.ID {
			assert.Equal(t, models.RoleAdmin, m.Role)
		}
	}

	_, err = store.GetGroup(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))

	ok, err := store.IsMember(ctx, bob.ID, trip.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.IsMember(ctx, dave.ID, trip.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.AddGroupMember(ctx, models.GroupMember{GroupID: trip.ID, UserID: dave.ID, Role: models.RoleMember}))
	require.NoError(t, store.AddGroupMember(ctx, models.GroupMember{GroupID: trip.ID, UserID: dave.ID, Role: models.RoleMember}))
	ok, err = store.IsMember(ctx, dave.ID, trip.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := store.CountGroupsForUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	co, err := store.ListCoMembers(ctx, alice.ID, 5)
	require.NoError(t, err)
	var names []string
	for _, u := range co {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"Bob", "Carol", "Dave"}, names)

	co, err = store.ListCoMembers(ctx, alice.ID, 2)
	require.NoError(t, err)
	assert.Len(t, co, 2)

	ids, err := store.ListGroupIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{trip.ID, flat.ID}, ids)
}

func testBills(t *testing.T, store storage.Store) {
	ctx := context.Background()
	alice := SeedUser(t, store, "alice@example.com", "Alice")
	bob := SeedUser(t, store, "bob@example.com", "Bob")
	group := SeedGroup(t, store, "Trip", alice, bob)

	bill := &models.Bill{
		GroupID:     group.ID,
		Description: "Dinner",
		TotalAmount: amount("100.01"),
		SplitPolicy: models.SplitEqual,
		PayerID:     alice.ID,
		CreatorID:   alice.ID,
		Shares: []models.BillShare{
			{UserID: bob.ID, Amount: amount("50.01")},
			{UserID: alice.ID, Amount: amount("50.00"), Paid: true},
		},
	}
	require.NoError(t, store.CreateBill(ctx, bill))
	assert.NotEmpty(t, bill.ID)
	assert.NotZero(t, bill.CreatedAt)
	for _, s := range bill.Shares {
		assert.NotEmpty(t, s.ID)
		assert.Equal(t, bill.ID, s.BillID)
	}

	got, err := store.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dinner", got.Description)
	assert.True(t, amount("100.01").Equal(got.TotalAmount), "total %s", got.TotalAmount)
	assert.Equal(t, models.SplitEqual, got.SplitPolicy)
	assert.False(t, got.IsSettlement)
	require.Len(t, got.Shares, 2)
	assert.Equal(t, bob.ID, got.Shares[0].UserID, "shares keep their order")
	assert.True(t, amount("50.01").Equal(got.Shares[0].Amount))
	assert.False(t, got.Shares[0].Paid)
	assert.True(t, got.Shares[1].Paid)

	share, parent, err := store.GetShare(ctx, got.Shares[0].ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, share.UserID)
	assert.Equal(t, bill.ID, parent.ID)

	require.NoError(t, store.SetSharePaid(ctx, share.ID, true))
	share, _, err = store.GetShare(ctx, share.ID)
	require.NoError(t, err)
	assert.True(t, share.Paid)

	assert.True(t, errs.IsNotFound(store.SetSharePaid(ctx, "missing", true)))
	_, _, err = store.GetShare(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))

	require.NoError(t, store.DeleteBill(ctx, bill.ID, alice.ID))
	_, err = store.GetBill(ctx, bill.ID)
	assert.True(t, errs.IsNotFound(err))
	_, _, err = store.GetShare(ctx, share.ID)
	assert.True(t, errs.IsNotFound(err))
	assert.True(t, errs.IsNotFound(store.DeleteBill(ctx, bill.ID, alice.ID)))
}

func testUnpaidShares(t *testing.T, store storage.Store) {
	ctx := context.Background()
	alice := SeedUser(t, store, "alice@example.com", "Alice")
	bob := SeedUser(t, store, "bob@example.com", "Bob")
	carol := SeedUser(t, store, "carol@example.com", "Carol")
	trip := SeedGroup(t, store, "Trip", alice, bob, carol)
	flat := SeedGroup(t, store, "Flat", alice, bob)

	seedBill(t, store, trip.ID, "Hotel", alice, map[*models.User]string{alice: "30", bob: "30", carol: "30"})
	seedBill(t, store, trip.ID, "Taxi", bob, map[*models.User]string{alice: "12.50"})
	seedBill(t, store, flat.ID, "Rent", bob, map[*models.User]string{alice: "400"})
	deleted := seedBill(t, store, trip.ID, "Mistake", carol, map[*models.User]string{alice: "99"})
	require.NoError(t, store.DeleteBill(ctx, deleted.ID, carol.ID))

	tests := []struct {
		name string
		q    storage.ShareQuery
		want []string // "debtor->payer amount"
	}{
		{
			name: "group",
			q:    storage.ShareQuery{GroupID: trip.ID},
			want: []string{"Bob->Alice 30", "Carol->Alice 30", "Alice->Bob 12.5"},
		},
		{
			name: "all groups as debtor",
			q:    storage.ShareQuery{UserID: alice.ID, Involvement: storage.InvolvementAsDebtor},
			want: []string{"Alice->Bob 12.5", "Alice->Bob 400"},
		},
		{
			name: "group as payer",
			q:    storage.ShareQuery{GroupID: trip.ID, UserID: alice.ID, Involvement: storage.InvolvementAsPayer},
			want: []string{"Bob->Alice 30", "Carol->Alice 30"},
		},
		{
			name: "any involvement",
			q:    storage.ShareQuery{GroupID: trip.ID, UserID: carol.ID},
			want: []string{"Carol->Alice 30"},
		},
	}

	names := map[string]string{alice.ID: "Alice", bob.ID: "Bob", carol.ID: "Carol"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := store.ListUnpaidShares(ctx, tt.q)
			require.NoError(t, err)
			var got []string
			for _, s := range shares {
				got = append(got, fmt.Sprintf("%s->%s %s", names[s.UserID], names[s.PayerID], s.Amount.String()))
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func testUpdateBill(t *testing.T, store storage.Store) {
	ctx := context.Background()
	alice := SeedUser(t, store, "alice@example.com", "Alice")
	bob := SeedUser(t, store, "bob@example.com", "Bob")
	carol := SeedUser(t, store, "carol@example.com", "Carol")
	group := SeedGroup(t, store, "Trip", alice, bob, carol)

	bill := &models.Bill{
		GroupID:     group.ID,
		Description: "Groceries",
		TotalAmount: amount("60"),
		SplitPolicy: models.SplitEqual,
		PayerID:     alice.ID,
		CreatorID:   alice.ID,
		Shares: []models.BillShare{
			{UserID: alice.ID, Amount: amount("30"), Paid: true},
			{UserID: bob.ID, Amount: amount("30")},
		},
	}
	require.NoError(t, store.CreateBill(ctx, bill))
	bobShareID := bill.Shares[1].ID

	t.Run("metadata only keeps shares", func(t *testing.T) {
		bill.Description = "Weekly groceries"
		bill.UpdatedBy = bob.ID
		require.NoError(t, store.UpdateBill(ctx, bill, nil))

		got, err := store.GetBill(ctx, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, "Weekly groceries", got.Description)
		assert.Equal(t, bob.ID, got.UpdatedBy)
		assert.NotZero(t, got.UpdatedAt)
		assert.Len(t, got.Shares, 2)
	})

	t.Run("share set replaced surgically", func(t *testing.T) {
		bill.TotalAmount = amount("90")
		shares := []models.BillShare{
			{UserID: bob.ID, Amount: amount("45")},
			{UserID: carol.ID, Amount: amount("45")},
		}
		bill.PayerID = carol.ID
		shares[1].Paid = true
		require.NoError(t, store.UpdateBill(ctx, bill, shares))

		got, err := store.GetBill(ctx, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, carol.ID, got.PayerID)
		require.Len(t, got.Shares, 2)
		assert.Equal(t, bob.ID, got.Shares[0].UserID)
		assert.Equal(t, bobShareID, got.Shares[0].ID, "staying user keeps the share row")
		assert.True(t, amount("45").Equal(got.Shares[0].Amount))
		assert.Equal(t, carol.ID, got.Shares[1].UserID)
		assert.True(t, got.Shares[1].Paid)

		unpaid, err := store.ListUnpaidShares(ctx, storage.ShareQuery{GroupID: group.ID})
		require.NoError(t, err)
		require.Len(t, unpaid, 1)
		assert.Equal(t, bob.ID, unpaid[0].UserID)
		assert.Equal(t, carol.ID, unpaid[0].PayerID)
	})

	t.Run("removed user can be added back", func(t *testing.T) {
		shares := []models.BillShare{
			{UserID: alice.ID, Amount: amount("45")},
			{UserID: carol.ID, Amount: amount("45"), Paid: true},
		}
		require.NoError(t, store.UpdateBill(ctx, bill, shares))
		got, err := store.GetBill(ctx, bill.ID)
		require.NoError(t, err)
		require.Len(t, got.Shares, 2)
		assert.Equal(t, alice.ID, got.Shares[0].UserID)
	})

	t.Run("missing bill", func(t *testing.T) {
		err := store.UpdateBill(ctx, &models.Bill{ID: "missing", TotalAmount: amount("1")}, nil)
		assert.True(t, errs.IsNotFound(err))
	})
}

func testListBills(t *testing.T, store storage.Store) {
	ctx := context.Background()
	alice := SeedUser(t, store, "alice@example.com", "Alice")
	bob := SeedUser(t, store, "bob@example.com", "Bob")
	carol := SeedUser(t, store, "carol@example.com", "Carol")
	group := SeedGroup(t, store, "Trip", alice, bob, carol)

	for i := 0; i < 5; i++ {
		seedBill(t, store, group.ID, fmt.Sprintf("Coffee %d", i), alice, map[*models.User]string{bob: "3"})
	}
	seedBill(t, store, group.ID, "100% Pizza", carol, map[*models.User]string{carol: "10", bob: "10"})

	bills, total, err := store.ListBills(ctx, storage.BillQuery{GroupID: group.ID, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Len(t, bills, 4)
	for _, b := range bills {
		assert.NotEmpty(t, b.Shares)
	}

	bills, total, err = store.ListBills(ctx, storage.BillQuery{GroupID: group.ID, Limit: 4, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Len(t, bills, 2)

	bills, total, err = store.ListBills(ctx, storage.BillQuery{GroupID: group.ID, Search: "coffee"})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, bills, 5)

	bills, _, err = store.ListBills(ctx, storage.BillQuery{GroupID: group.ID, Search: "100%"})
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, "100% Pizza", bills[0].Description)

	_, total, err = store.ListBills(ctx, storage.BillQuery{UserID: carol.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, total, err = store.ListBills(ctx, storage.BillQuery{UserID: bob.ID})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
}

func testInGroupTx(t *testing.T, store storage.Store) {
	ctx := context.Background()
	alice := SeedUser(t, store, "alice@example.com", "Alice")
	bob := SeedUser(t, store, "bob@example.com", "Bob")
	group := SeedGroup(t, store, "Trip", alice, bob)
	seedBill(t, store, group.ID, "Dinner", alice, map[*models.User]string{bob: "25"})

	boom := errors.New("boom")
	err := store.InGroupTx(ctx, group.ID, func(tx storage.Tx) error {
		shares, err := tx.ListUnpaidShares(ctx, storage.ShareQuery{GroupID: group.ID})
		require.NoError(t, err)
		require.Len(t, shares, 1)

		settle := models.Transaction{From: bob.ID, To: alice.ID, Amount: amount("25")}
		if err := tx.CreateBill(ctx, settle.SettlementBill(group.ID, bob.ID)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	shares, err := store.ListUnpaidShares(ctx, storage.ShareQuery{GroupID: group.ID})
	require.NoError(t, err)
	assert.Len(t, shares, 1, "failed transaction leaves nothing behind")

	err = store.InGroupTx(ctx, group.ID, func(tx storage.Tx) error {
		settle := models.Transaction{From: bob.ID, To: alice.ID, Amount: amount("25")}
		return tx.CreateBill(ctx, settle.SettlementBill(group.ID, bob.ID))
	})
	require.NoError(t, err)

	shares, err = store.ListUnpaidShares(ctx, storage.ShareQuery{GroupID: group.ID})
	require.NoError(t, err)
	assert.Len(t, shares, 2)

	bills, _, err := store.ListBills(ctx, storage.BillQuery{GroupID: group.ID})
	require.NoError(t, err)
	require.Len(t, bills, 2)
	var settlement *models.Bill
	for _, b := range bills {
		if b.IsSettlement {
			settlement = b
		}
	}
	require.NotNil(t, settlement)
	assert.Equal(t, models.SettlementDescription, settlement.Description)
	assert.Equal(t, bob.ID, settlement.PayerID)
}

// testInGroupTxSerializes runs check-then-write transactions concurrently.
// Only the first may see an empty ledger.
func testInGroupTxSerializes(t *testing.T, store storage.Store) {
	ctx := context.Background()
	alice := SeedUser(t, store, "alice@example.com", "Alice")
	bob := SeedUser(t, store, "bob@example.com", "Bob")
	group := SeedGroup(t, store, "Trip", alice, bob)

	const workers = 8
	var wg sync.WaitGroup
	errc := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errc <- store.InGroupTx(ctx, group.ID, func(tx storage.Tx) error {
				shares, err := tx.ListUnpaidShares(ctx, storage.ShareQuery{GroupID: group.ID})
				if err != nil {
					return err
				}
				if len(shares) > 0 {
					return nil
				}
				settle := models.Transaction{From: bob.ID, To: alice.ID, Amount: amount("5")}
				return tx.CreateBill(ctx, settle.SettlementBill(group.ID, bob.ID))
			})
		}()
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		require.NoError(t, err)
	}

	shares, err := store.ListUnpaidShares(ctx, storage.ShareQuery{GroupID: group.ID})
	require.NoError(t, err)
	assert.Len(t, shares, 1)
}
