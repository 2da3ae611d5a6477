package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settlewise/internal/models"
)

type party struct {
	user   string
	amount decimal.Decimal
}

// less orders parties ascending by amount, then by user ID for equal amounts.
func less(a, b party) bool {
	if c := a.amount.Cmp(b.amount); c != 0 {
		return c < 0
	}
	return a.user < b.user
}

// ascending is a list of parties kept sorted by less. The largest is last.
type ascending []party

func (l *ascending) popLargest() party {
	last := (*l)[len(*l)-1]
	*l = (*l)[:len(*l)-1]
	return last
}

func (l *ascending) insert(p party) {
	i := sort.Search(len(*l), func(i int) bool { return less(p, (*l)[i]) })
	*l = append(*l, party{})
	copy((*l)[i+1:], (*l)[i:])
	(*l)[i] = p
}

// Simplify reduces net balances to a short list of settling transactions
// using the greedy Minimum Cash Flow algorithm.
//
// The largest remaining debtor pays the largest remaining creditor the
// smaller of the two amounts; whoever has a positive remainder goes back
// into its list. Each round clears at least one party, so the result has at
// most creditors+debtors-1 transactions, each with a positive amount.
func Simplify(balances map[string]decimal.Decimal) []models.Transaction {
	var creditors, debtors ascending
	for user, bal := range balances {
		rounded := Round(bal)
		switch rounded.Sign() {
		case 1:
			creditors = append(creditors, party{user: user, amount: rounded})
		case -1:
			debtors = append(debtors, party{user: user, amount: rounded.Neg()})
		}
	}
	sort.Slice(creditors, func(i, j int) bool { return less(creditors[i], creditors[j]) })
	sort.Slice(debtors, func(i, j int) bool { return less(debtors[i], debtors[j]) })

	var txns []models.Transaction
	for len(creditors) > 0 && len(debtors) > 0 {
		creditor := creditors.popLargest()
		debtor := debtors.popLargest()

		settle := Round(decimal.Min(creditor.amount, debtor.amount))
		txns = append(txns, models.Transaction{From: debtor.user, To: creditor.user, Amount: settle})

		if rest := Round(creditor.amount.Sub(settle)); rest.IsPositive() {
			creditors.insert(party{user: creditor.user, amount: rest})
		}
		if rest := Round(debtor.amount.Sub(settle)); rest.IsPositive() {
			debtors.insert(party{user: debtor.user, amount: rest})
		}
	}
	return txns
}
