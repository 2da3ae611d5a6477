package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mmynk/settlewise/internal/models"
)

func unpaid(payer, user, amount string) models.UnpaidShare {
	return models.UnpaidShare{PayerID: payer, UserID: user, Amount: d(amount), GroupID: "g1"}
}

func TestNetBalances(t *testing.T) {
	tests := []struct {
		name   string
		shares []models.UnpaidShare
		want   map[string]string
	}{
		{
			name: "payer credited, debtors debited",
			shares: []models.UnpaidShare{
				unpaid("alice", "bob", "10"),
				unpaid("alice", "carol", "20"),
			},
			want: map[string]string{"alice": "30", "bob": "-10", "carol": "-20"},
		},
		{
			name: "self-payer shares are skipped",
			shares: []models.UnpaidShare{
				unpaid("alice", "alice", "33.34"),
				unpaid("alice", "bob", "33.33"),
			},
			want: map[string]string{"alice": "33.33", "bob": "-33.33"},
		},
		{
			name: "offsetting debts drop out",
			shares: []models.UnpaidShare{
				unpaid("alice", "bob", "15"),
				unpaid("bob", "alice", "15"),
			},
			want: map[string]string{},
		},
		{
			name: "settlement bill nets the original debt to zero",
			shares: []models.UnpaidShare{
				unpaid("alice", "bob", "12.50"),
				unpaid("bob", "alice", "12.50"),
				unpaid("carol", "bob", "5"),
			},
			want: map[string]string{"carol": "5", "bob": "-5"},
		},
		{
			name:   "no shares",
			shares: nil,
			want:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NetBalances(tt.shares)
			assert.Len(t, got, len(tt.want))
			sum := decimal.Zero
			for user, want := range tt.want {
				assert.True(t, got[user].Equal(d(want)), "%s: got %s want %s", user, got[user], want)
			}
			for _, bal := range got {
				sum = sum.Add(bal)
			}
			assert.True(t, WithinTolerance(sum, decimal.Zero), "balances sum to %s", sum)
		})
	}
}

func TestNetBalances_Idempotent(t *testing.T) {
	shares := []models.UnpaidShare{
		unpaid("alice", "bob", "0.10"),
		unpaid("alice", "bob", "0.20"),
		unpaid("carol", "alice", "7.77"),
	}
	assert.Equal(t, NetBalances(shares), NetBalances(shares))
}

func TestSummarizeFor(t *testing.T) {
	shares := []models.UnpaidShare{
		unpaid("alice", "bob", "10"),
		unpaid("alice", "carol", "5.25"),
		unpaid("bob", "alice", "3"),
		unpaid("alice", "alice", "10"),
		unpaid("bob", "carol", "100"),
	}

	totals := SummarizeFor("alice", shares)
	assert.True(t, totals.Owed.Equal(d("15.25")), "owed %s", totals.Owed)
	assert.True(t, totals.Owe.Equal(d("3")), "owe %s", totals.Owe)

	none := SummarizeFor("dave", shares)
	assert.True(t, none.Owed.IsZero())
	assert.True(t, none.Owe.IsZero())
}
