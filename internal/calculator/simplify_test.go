package calculator

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settlewise/internal/models"
)

// apply returns balances after every transaction has been paid.
func apply(balances map[string]decimal.Decimal, txns []models.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(balances))
	for u, b := range balances {
		out[u] = b
	}
	for _, tx := range txns {
		out[tx.From] = out[tx.From].Add(tx.Amount)
		out[tx.To] = out[tx.To].Sub(tx.Amount)
	}
	return out
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		name     string
		balances map[string]decimal.Decimal
		want     []models.Transaction
	}{
		{
			name:     "one creditor two debtors",
			balances: map[string]decimal.Decimal{"A": d("30"), "B": d("-10"), "C": d("-20")},
			want: []models.Transaction{
				{From: "C", To: "A", Amount: d("20")},
				{From: "B", To: "A", Amount: d("10")},
			},
		},
		{
			name:     "two creditors one debtor",
			balances: map[string]decimal.Decimal{"A": d("15.50"), "B": d("4.50"), "C": d("-20")},
			want: []models.Transaction{
				{From: "C", To: "A", Amount: d("15.50")},
				{From: "C", To: "B", Amount: d("4.50")},
			},
		},
		{
			name: "chain collapses to the largest pairs first",
			balances: map[string]decimal.Decimal{
				"A": d("50"), "B": d("25"), "C": d("-40"), "D": d("-35"),
			},
			want: []models.Transaction{
				{From: "C", To: "A", Amount: d("40")},
				{From: "D", To: "B", Amount: d("25")},
				{From: "D", To: "A", Amount: d("10")},
			},
		},
		{
			name:     "already settled",
			balances: map[string]decimal.Decimal{"A": d("0"), "B": d("0.001")},
			want:     nil,
		},
		{
			name:     "empty input",
			balances: map[string]decimal.Decimal{},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Simplify(tt.balances)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].From, got[i].From, "transaction %d from", i)
				assert.Equal(t, tt.want[i].To, got[i].To, "transaction %d to", i)
				assert.True(t, tt.want[i].Amount.Equal(got[i].Amount), "transaction %d amount %s", i, got[i].Amount)
			}
		})
	}
}

func TestSimplify_SettlesEveryBalance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := 2 + rng.Intn(10)
		balances := make(map[string]decimal.Decimal, n)
		sum := decimal.Zero
		for i := 0; i < n-1; i++ {
			amount := decimal.New(int64(rng.Intn(200000)-100000), -2)
			balances[fmt.Sprintf("u%02d", i)] = amount
			sum = sum.Add(amount)
		}
		balances[fmt.Sprintf("u%02d", n-1)] = sum.Neg()

		creditors, debtors := 0, 0
		for _, b := range balances {
			switch b.Sign() {
			case 1:
				creditors++
			case -1:
				debtors++
			}
		}

		txns := Simplify(balances)

		if creditors+debtors > 0 {
			assert.LessOrEqual(t, len(txns), creditors+debtors-1, "round %d", round)
		}
		for _, tx := range txns {
			assert.True(t, tx.Amount.IsPositive(), "round %d: non-positive amount %s", round, tx.Amount)
			assert.NotEqual(t, tx.From, tx.To)
		}
		for user, rest := range apply(balances, txns) {
			assert.True(t, rest.IsZero(), "round %d: %s left with %s", round, user, rest)
		}
	}
}

func TestSimplify_Deterministic(t *testing.T) {
	balances := map[string]decimal.Decimal{
		"A": d("10"), "B": d("10"), "C": d("-10"), "D": d("-10"),
	}
	first := Simplify(balances)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Simplify(balances))
	}
}
