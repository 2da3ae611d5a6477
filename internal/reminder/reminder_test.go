package reminder

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settlewise/internal/calculator"
	"github.com/mmynk/settlewise/internal/ledger"
	"github.com/mmynk/settlewise/internal/metrics"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage/memory"
	"github.com/mmynk/settlewise/internal/storage/storagetest"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, groupID string, event models.Event) error {
	return m.Called(ctx, groupID, event).Error(0)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	alice := storagetest.SeedUser(t, store, "alice@example.com", "Alice")
	bob := storagetest.SeedUser(t, store, "bob@example.com", "Bob")
	carol := storagetest.SeedUser(t, store, "carol@example.com", "Carol")
	owing := storagetest.SeedGroup(t, store, "Owing", alice, bob, carol)
	settled := storagetest.SeedGroup(t, store, "Settled", alice, bob)

	_, err := ledger.NewBillBook(store).CreateBill(ctx, alice.ID, ledger.BillInput{
		GroupID:     owing.ID,
		Description: "Dinner",
		TotalAmount: decimal.NewFromInt(30),
		SplitPolicy: models.SplitEqual,
		Shares: []calculator.ShareInput{
			{UserID: alice.ID}, {UserID: bob.ID}, {UserID: carol.ID},
		},
	})
	require.NoError(t, err)

	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, owing.ID, mock.MatchedBy(func(e models.Event) bool {
		return e.Type == models.EventDebtReminder &&
			e.Count == 2 &&
			e.TotalAmount.Equal(decimal.NewFromInt(20)) &&
			len(e.Counterparties) == 2 &&
			slices.Contains(e.Counterparties, "Bob") &&
			slices.Contains(e.Counterparties, "Carol")
	})).Return(nil).Once()

	m := metrics.New()
	sent, err := New(store, ledger.NewSettler(store), store, pub, m).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	pub.AssertExpectations(t)
	pub.AssertNotCalled(t, "Publish", mock.Anything, settled.ID, mock.Anything)
}

func TestRun_PublishFailureSkipsGroup(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	alice := storagetest.SeedUser(t, store, "alice@example.com", "Alice")
	bob := storagetest.SeedUser(t, store, "bob@example.com", "Bob")
	group := storagetest.SeedGroup(t, store, "Flat", alice, bob)

	_, err := ledger.NewBillBook(store).CreateBill(ctx, alice.ID, ledger.BillInput{
		GroupID:     group.ID,
		Description: "Rent",
		TotalAmount: decimal.NewFromInt(10),
		SplitPolicy: models.SplitExact,
		Shares:      []calculator.ShareInput{{UserID: bob.ID, Amount: decimal.NewFromInt(10)}},
	})
	require.NoError(t, err)

	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, group.ID, mock.Anything).Return(errors.New("hub closed"))

	sent, err := New(store, ledger.NewSettler(store), store, pub, nil).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestStart_InvalidSchedule(t *testing.T) {
	store := memory.New()
	_, err := New(store, ledger.NewSettler(store), store, ledger.NopPublisher{}, nil).Start("every day")
	assert.Error(t, err)
}

func TestStart(t *testing.T) {
	store := memory.New()
	c, err := New(store, ledger.NewSettler(store), store, ledger.NopPublisher{}, nil).Start("@every 1h")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}
