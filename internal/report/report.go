// Package report derives numeric summaries from the transaction ledger.
// Every function here is deterministic and side-effect-free; the Engine
// wrapper adds memoization keyed on the ledger version.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"centavo/internal/domain/transaction"
)

// Summary holds the monthly income/expense figures and the all-time
// balance. Balance is the unfiltered signed sum over every transaction,
// not scoped to the period.
type Summary struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Balance  decimal.Decimal `json:"balance"`
}

// MonthlySummary computes the summary for the month containing the given
// reference date.
func MonthlySummary(txs []transaction.Transaction, month time.Time) Summary {
	s := Summary{
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
		Balance:  decimal.Zero,
	}
	for i := range txs {
		t := &txs[i]
		s.Balance = s.Balance.Add(t.Amount)
		if !t.InMonth(month) {
			continue
		}
		switch t.Type {
		case transaction.TypeIncome:
			s.Income = s.Income.Add(t.Amount)
		case transaction.TypeExpense:
			s.Expenses = s.Expenses.Add(t.Amount.Abs())
		}
	}
	return s
}

// CategoryTotal is one entry of the expense ranking.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// CategoryRanking groups the month's expense transactions by category and
// ranks them by absolute amount, descending. topN <= 0 returns the whole
// ranking.
func CategoryRanking(txs []transaction.Transaction, month time.Time, topN int) []CategoryTotal {
	totals := make(map[string]*CategoryTotal)
	var order []string
	for i := range txs {
		t := &txs[i]
		if t.Type != transaction.TypeExpense || !t.InMonth(month) {
			continue
		}
		entry, ok := totals[t.Category]
		if !ok {
			entry = &CategoryTotal{Category: t.Category, Total: decimal.Zero}
			totals[t.Category] = entry
			order = append(order, t.Category)
		}
		entry.Total = entry.Total.Add(t.Amount.Abs())
		entry.Count++
	}

	ranking := make([]CategoryTotal, 0, len(order))
	for _, cat := range order {
		ranking = append(ranking, *totals[cat])
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Total.GreaterThan(ranking[j].Total)
	})

	if topN > 0 && len(ranking) > topN {
		ranking = ranking[:topN]
	}
	return ranking
}

// TunnelBucket is one future period of the installment projection. Offset
// zero carries the currently outstanding installment load; offset n is n
// months ahead.
type TunnelBucket struct {
	Offset   int             `json:"offset"`
	Total    decimal.Decimal `json:"total"`
	HighRisk bool            `json:"highRisk"`
}

// InstallmentTunnel projects every expense carrying a "k/n" installment
// descriptor into the next horizon months. A transaction at installment
// k of n has remaining = n-k future charges: its per-installment amount
// lands in buckets +1 through +remaining. A bucket is flagged high risk
// when its projected total exceeds riskFraction of the month's income.
func InstallmentTunnel(txs []transaction.Transaction, month time.Time, horizon int, riskFraction decimal.Decimal) []TunnelBucket {
	if horizon < 1 {
		horizon = 6
	}

	buckets := make([]TunnelBucket, horizon+1)
	for i := range buckets {
		buckets[i].Offset = i
		buckets[i].Total = decimal.Zero
	}

	for i := range txs {
		t := &txs[i]
		if t.Type != transaction.TypeExpense {
			continue
		}
		current, total, ok := transaction.ParseInstallment(t.Installment)
		if !ok {
			continue
		}
		amount := t.Amount.Abs()
		remaining := total - current

		buckets[0].Total = buckets[0].Total.Add(amount)
		for offset := 1; offset <= remaining && offset <= horizon; offset++ {
			buckets[offset].Total = buckets[offset].Total.Add(amount)
		}
	}

	income := MonthlySummary(txs, month).Income
	if income.IsPositive() && riskFraction.IsPositive() {
		threshold := income.Mul(riskFraction)
		for i := range buckets {
			buckets[i].HighRisk = buckets[i].Total.GreaterThan(threshold)
		}
	}

	return buckets
}
