package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settlewise/internal/calculator"
	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
)

func eventOfType(eventType models.EventType) any {
	return mock.MatchedBy(func(e models.Event) bool { return e.Type == eventType })
}

func TestCreateBill(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		creator      func(f *fixture) *models.User
		input        func(f *fixture) BillInput
		wantKind     errs.Kind
		wantErr      bool
		validateFunc func(t *testing.T, f *fixture, bill *models.Bill)
	}{
		{
			name:    "equal split defaults payer to creator",
			creator: func(f *fixture) *models.User { return f.alice },
			input: func(f *fixture) BillInput {
				return BillInput{
					GroupID:     f.group.ID,
					Description: "  Groceries ",
					TotalAmount: dec("100"),
					SplitPolicy: models.SplitEqual,
					Shares:      shareInputs(f.alice, f.bob, f.carol),
				}
			},
			validateFunc: func(t *testing.T, f *fixture, bill *models.Bill) {
				assert.Equal(t, "Groceries", bill.Description)
				assert.Equal(t, f.alice.ID, bill.PayerID)
				assert.Equal(t, f.alice.ID, bill.CreatorID)
				require.Len(t, bill.Shares, 3)
				assertDecimal(t, "33.34", bill.Shares[0].Amount)
				assertDecimal(t, "33.33", bill.Shares[1].Amount)
				assertDecimal(t, "33.33", bill.Shares[2].Amount)
				assert.True(t, bill.Shares[0].Paid, "payer's own share is paid")
				assert.False(t, bill.Shares[1].Paid)
			},
		},
		{
			name:    "exact split with other payer",
			creator: func(f *fixture) *models.User { return f.alice },
			input: func(f *fixture) BillInput {
				return BillInput{
					GroupID:     f.group.ID,
					Description: "Taxi",
					TotalAmount: dec("25.50"),
					SplitPolicy: models.SplitExact,
					PayerID:     f.bob.ID,
					Shares: []calculator.ShareInput{
						{UserID: f.alice.ID, Amount: dec("20")},
						{UserID: f.carol.ID, Amount: dec("5.50")},
					},
				}
			},
			validateFunc: func(t *testing.T, f *fixture, bill *models.Bill) {
				assert.Equal(t, f.bob.ID, bill.PayerID)
				for _, s := range bill.Shares {
					assert.False(t, s.Paid)
				}
			},
		},
		{
			name:    "creator not a member",
			creator: func(f *fixture) *models.User { return f.eve },
			input: func(f *fixture) BillInput {
				return BillInput{GroupID: f.group.ID, Description: "x", TotalAmount: dec("1"), SplitPolicy: models.SplitEqual, Shares: shareInputs(f.eve)}
			},
			wantErr:  true,
			wantKind: errs.KindForbidden,
		},
		{
			name:    "participant not a member",
			creator: func(f *fixture) *models.User { return f.alice },
			input: func(f *fixture) BillInput {
				return BillInput{GroupID: f.group.ID, Description: "x", TotalAmount: dec("10"), SplitPolicy: models.SplitEqual, Shares: shareInputs(f.alice, f.eve)}
			},
			wantErr:  true,
			wantKind: errs.KindValidation,
		},
		{
			name:    "exact shares do not add up",
			creator: func(f *fixture) *models.User { return f.alice },
			input: func(f *fixture) BillInput {
				return BillInput{
					GroupID: f.group.ID, Description: "x", TotalAmount: dec("10"), SplitPolicy: models.SplitExact,
					Shares: []calculator.ShareInput{{UserID: f.bob.ID, Amount: dec("9.98")}},
				}
			},
			wantErr:  true,
			wantKind: errs.KindValidation,
		},
		{
			name:    "blank description",
			creator: func(f *fixture) *models.User { return f.alice },
			input: func(f *fixture) BillInput {
				return BillInput{GroupID: f.group.ID, Description: "  ", TotalAmount: dec("10"), SplitPolicy: models.SplitEqual, Shares: shareInputs(f.bob)}
			},
			wantErr:  true,
			wantKind: errs.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			pub := &mockPublisher{}
			pub.On("Publish", mock.Anything, f.group.ID, eventOfType(models.EventNewBill)).Return(nil)
			book := NewBillBook(f.store, WithPublisher(pub))

			bill, err := book.CreateBill(ctx, tt.creator(f).ID, tt.input(f))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, errs.KindOf(err), "got %v", err)
				pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			pub.AssertNumberOfCalls(t, "Publish", 1)

			stored, err := book.GetBill(ctx, tt.creator(f).ID, bill.ID)
			require.NoError(t, err)
			if tt.validateFunc != nil {
				tt.validateFunc(t, f, stored)
			}
		})
	}
}

func TestUpdateBill(t *testing.T) {
	ctx := context.Background()

	newEqualBill := func(t *testing.T, f *fixture, book *BillBook) *models.Bill {
		bill, err := book.CreateBill(ctx, f.alice.ID, BillInput{
			GroupID:     f.group.ID,
			Description: "Dinner",
			TotalAmount: dec("90"),
			SplitPolicy: models.SplitEqual,
			Shares:      shareInputs(f.alice, f.bob, f.carol),
		})
		require.NoError(t, err)
		return bill
	}

	t.Run("new total re-splits equal bill", func(t *testing.T) {
		f := newFixture(t)
		pub := &mockPublisher{}
		pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		book := NewBillBook(f.store, WithPublisher(pub))
		bill := newEqualBill(t, f, book)

		total := dec("100")
		updated, err := book.UpdateBill(ctx, f.bob.ID, bill.ID, BillChange{TotalAmount: &total})
		require.NoError(t, err)
		assertDecimal(t, "100", updated.TotalAmount)
		assert.Equal(t, f.bob.ID, updated.UpdatedBy)
		require.Len(t, updated.Shares, 3)
		assertDecimal(t, "33.34", updated.Shares[0].Amount)
		assert.Equal(t, bill.Shares[1].ID, updated.Shares[1].ID, "share rows are updated in place")
		pub.AssertCalled(t, "Publish", mock.Anything, f.group.ID, eventOfType(models.EventUpdateBill))
	})

	t.Run("new payer re-splits and moves paid flag", func(t *testing.T) {
		f := newFixture(t)
		book := NewBillBook(f.store)
		bill := newEqualBill(t, f, book)

		payer := f.carol.ID
		updated, err := book.UpdateBill(ctx, f.alice.ID, bill.ID, BillChange{PayerID: &payer})
		require.NoError(t, err)
		for _, s := range updated.Shares {
			assert.Equal(t, s.UserID == f.carol.ID, s.Paid)
		}
		net := f.groupNet(t)
		assertDecimal(t, "60", net[f.carol.ID])
	})

	t.Run("new payer on exact bill keeps amounts and moves paid flag", func(t *testing.T) {
		f := newFixture(t)
		bill := f.addExactBill(t, f.alice, "Hotel", map[*models.User]string{f.alice: "50", f.bob: "50"})
		assertDecimal(t, "50", f.groupNet(t)[f.alice.ID])

		payer := f.bob.ID
		updated, err := NewBillBook(f.store).UpdateBill(ctx, f.alice.ID, bill.ID, BillChange{PayerID: &payer})
		require.NoError(t, err)
		assert.Equal(t, f.bob.ID, updated.PayerID)
		require.Len(t, updated.Shares, 2)
		for _, s := range updated.Shares {
			assertDecimal(t, "50", s.Amount)
			assert.Equal(t, s.UserID == f.bob.ID, s.Paid)
		}

		net := f.groupNet(t)
		assertDecimal(t, "50", net[f.bob.ID])
		assertDecimal(t, "-50", net[f.alice.ID])
	})

	t.Run("explicit shares replace participants", func(t *testing.T) {
		f := newFixture(t)
		book := NewBillBook(f.store)
		bill := newEqualBill(t, f, book)

		exact := models.SplitExact
		updated, err := book.UpdateBill(ctx, f.alice.ID, bill.ID, BillChange{
			SplitPolicy: &exact,
			Shares: []calculator.ShareInput{
				{UserID: f.bob.ID, Amount: dec("60")},
				{UserID: f.carol.ID, Amount: dec("30")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, models.SplitExact, updated.SplitPolicy)
		require.Len(t, updated.Shares, 2)
		net := f.groupNet(t)
		assertDecimal(t, "90", net[f.alice.ID])
	})

	t.Run("metadata only keeps shares", func(t *testing.T) {
		f := newFixture(t)
		book := NewBillBook(f.store)
		bill := newEqualBill(t, f, book)

		desc := "Late dinner"
		updated, err := book.UpdateBill(ctx, f.alice.ID, bill.ID, BillChange{Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, "Late dinner", updated.Description)
		for i := range bill.Shares {
			assert.Equal(t, bill.Shares[i].ID, updated.Shares[i].ID)
		}
	})

	t.Run("exact total change needs shares", func(t *testing.T) {
		f := newFixture(t)
		bill := f.addExactBill(t, f.alice, "Rent", map[*models.User]string{f.bob: "500"})

		total := dec("600")
		_, err := NewBillBook(f.store).UpdateBill(ctx, f.alice.ID, bill.ID, BillChange{TotalAmount: &total})
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})

	t.Run("settlement bills are immutable", func(t *testing.T) {
		f := newFixture(t)
		seedTriangle(t, f)
		_, err := NewSettler(f.store).SettleUp(ctx, f.group.ID, f.bob.ID)
		require.NoError(t, err)

		page, err := NewBillBook(f.store).ListGroupBills(ctx, f.bob.ID, f.group.ID, "Settle", 0, 10)
		require.NoError(t, err)
		require.Len(t, page.Bills, 1)

		desc := "changed"
		_, err = NewBillBook(f.store).UpdateBill(ctx, f.bob.ID, page.Bills[0].ID, BillChange{Description: &desc})
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})

	t.Run("missing bill", func(t *testing.T) {
		f := newFixture(t)
		_, err := NewBillBook(f.store).UpdateBill(ctx, f.alice.ID, "missing", BillChange{})
		assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	})

	t.Run("outsider", func(t *testing.T) {
		f := newFixture(t)
		book := NewBillBook(f.store)
		bill := newEqualBill(t, f, book)
		desc := "x"
		_, err := book.UpdateBill(ctx, f.eve.ID, bill.ID, BillChange{Description: &desc})
		assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
	})
}

func TestDeleteBill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	book := NewBillBook(f.store, WithPublisher(pub))
	bill := f.addExactBill(t, f.alice, "Cabin", map[*models.User]string{f.bob: "10"})

	err := book.DeleteBill(ctx, f.carol.ID, bill.ID)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	require.NoError(t, book.DeleteBill(ctx, f.alice.ID, bill.ID))
	pub.AssertCalled(t, "Publish", mock.Anything, f.group.ID, eventOfType(models.EventDeleteBill))

	_, err = book.GetBill(ctx, f.alice.ID, bill.ID)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	assert.Empty(t, f.groupNet(t))
}

func TestMarkSharePaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, f.group.ID, eventOfType(models.EventPaymentUpdate)).Return(nil)
	book := NewBillBook(f.store, WithPublisher(pub))
	bill := f.addExactBill(t, f.alice, "Cabin", map[*models.User]string{f.bob: "10"})
	shareID := bill.Shares[0].ID

	_, err := book.MarkSharePaid(ctx, f.alice.ID, shareID)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err), "only the owner")

	_, err = book.MarkShareUnpaid(ctx, f.bob.ID, shareID)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err), "already unpaid")

	share, err := book.MarkSharePaid(ctx, f.bob.ID, shareID)
	require.NoError(t, err)
	assert.True(t, share.Paid)
	assert.Empty(t, f.groupNet(t))

	_, err = book.MarkSharePaid(ctx, f.bob.ID, shareID)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err), "already paid")

	share, err = book.MarkShareUnpaid(ctx, f.bob.ID, shareID)
	require.NoError(t, err)
	assert.False(t, share.Paid)
	assert.Len(t, f.groupNet(t), 2)

	_, err = book.MarkSharePaid(ctx, f.bob.ID, "missing")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	pub.AssertNumberOfCalls(t, "Publish", 2)
}

func TestListGroupBills(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 7; i++ {
		f.addExactBill(t, f.alice, fmt.Sprintf("Coffee %d", i), map[*models.User]string{f.bob: "3"})
	}
	f.addExactBill(t, f.bob, "Lunch", map[*models.User]string{f.carol: "12"})
	book := NewBillBook(f.store)

	page, err := book.ListGroupBills(ctx, f.carol.ID, f.group.ID, "", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 8, page.Total)
	assert.Len(t, page.Bills, 5)
	assert.True(t, page.HasMore)

	page, err = book.ListGroupBills(ctx, f.carol.ID, f.group.ID, "", 5, 5)
	require.NoError(t, err)
	assert.Len(t, page.Bills, 3)
	assert.False(t, page.HasMore)

	page, err = book.ListGroupBills(ctx, f.carol.ID, f.group.ID, "LUNCH", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, DefaultPageSize, page.Limit)

	_, err = book.ListGroupBills(ctx, f.eve.ID, f.group.ID, "", 0, 5)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	page, err = book.ListUserBills(ctx, f.carol.ID, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, MaxPageSize, page.Limit)
}
