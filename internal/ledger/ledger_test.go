package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settlewise/internal/calculator"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
	"github.com/mmynk/settlewise/internal/storage/memory"
	"github.com/mmynk/settlewise/internal/storage/storagetest"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, groupID string, event models.Event) error {
	args := m.Called(ctx, groupID, event)
	return args.Error(0)
}

// fixture is a memory store with three members of one group and an outsider.
type fixture struct {
	store *memory.Store
	alice *models.User
	bob   *models.User
	carol *models.User
	eve   *models.User
	group *models.Group
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{store: store}
	f.alice = storagetest.SeedUser(t, store, "alice@example.com", "Alice")
	f.bob = storagetest.SeedUser(t, store, "bob@example.com", "Bob")
	f.carol = storagetest.SeedUser(t, store, "carol@example.com", "Carol")
	f.eve = storagetest.SeedUser(t, store, "eve@example.com", "Eve")
	f.group = storagetest.SeedGroup(t, store, "Ski Trip", f.alice, f.bob, f.carol)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// addExactBill records a bill paid by payer through the bill book.
func (f *fixture) addExactBill(t *testing.T, payer *models.User, desc string, shares map[*models.User]string) *models.Bill {
	t.Helper()
	in := BillInput{
		GroupID:     f.group.ID,
		Description: desc,
		SplitPolicy: models.SplitExact,
		PayerID:     payer.ID,
		TotalAmount: decimal.Zero,
	}
	for u, a := range shares {
		in.Shares = append(in.Shares, calculator.ShareInput{UserID: u.ID, Amount: dec(a)})
		in.TotalAmount = in.TotalAmount.Add(dec(a))
	}
	bill, err := NewBillBook(f.store).CreateBill(context.Background(), payer.ID, in)
	require.NoError(t, err)
	return bill
}

func (f *fixture) groupNet(t *testing.T) map[string]decimal.Decimal {
	t.Helper()
	net, err := NewBalances(f.store).NetBalances(context.Background(), storage.GroupScope(f.group.ID, f.alice.ID))
	require.NoError(t, err)
	return net
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

// shareInputs lists users for an EQUAL split.
func shareInputs(users ...*models.User) []calculator.ShareInput {
	out := make([]calculator.ShareInput, len(users))
	for i, u := range users {
		out[i] = calculator.ShareInput{UserID: u.ID}
	}
	return out
}
