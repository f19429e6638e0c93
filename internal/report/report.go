// Package report computes derived views over the ledger: balances,
// unpaid-debt totals, period reports and temporal grouping. Everything here
// is a pure function over the current collections; nothing is cached.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bloombook/internal/core"
)

// PeriodToday selects transactions from the current local calendar day.
const PeriodToday = "today"

type (
	// Summary holds the three account balances. Total is always the sum
	// of the two partitions, which in turn equals the sum of signed
	// amounts over all transactions.
	Summary struct {
		Cash  decimal.Decimal `json:"cash"`
		Bank  decimal.Decimal `json:"bank"`
		Total decimal.Decimal `json:"total"`
	}

	// PeriodTotals is the income/expense breakdown for one period.
	PeriodTotals struct {
		Income   decimal.Decimal `json:"income"`
		Expenses decimal.Decimal `json:"expenses"`
		Balance  decimal.Decimal `json:"balance"`
	}

	// Bucket is a group of transactions sharing a temporal key: the local
	// calendar day, or the Monday that starts the calendar week.
	Bucket struct {
		Key          time.Time
		Transactions []core.Transaction
	}
)

// Balances partitions transactions by payment method and sums signed
// amounts within each partition.
func Balances(txns []core.Transaction) Summary {
	var s Summary
	for _, tx := range txns {
		switch tx.Method {
		case core.Cash:
			s.Cash = s.Cash.Add(tx.Signed())
		case core.Bank:
			s.Bank = s.Bank.Add(tx.Signed())
		}
	}
	s.Total = s.Cash.Add(s.Bank)
	return s
}

// UnpaidDebtTotal sums the amounts of all debts still marked UNPAID.
func UnpaidDebtTotal(debts []core.Debt) decimal.Decimal {
	total := decimal.Zero
	for _, d := range debts {
		if d.Status == core.Unpaid {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// PeriodReport computes income, expenses and balance for the transactions
// whose date falls in the given period. The period is either "today" or a
// year-month value like "2025-08". now anchors the "today" period.
func PeriodReport(txns []core.Transaction, period string, now time.Time) (PeriodTotals, error) {
	match, err := periodMatcher(period, now)
	if err != nil {
		return PeriodTotals{}, err
	}

	var totals PeriodTotals
	for _, tx := range txns {
		if !match(tx.Date) {
			continue
		}
		if tx.Type == core.Income {
			totals.Income = totals.Income.Add(tx.Amount)
		} else {
			totals.Expenses = totals.Expenses.Add(tx.Amount)
		}
	}
	totals.Balance = totals.Income.Sub(totals.Expenses)
	return totals, nil
}

func periodMatcher(period string, now time.Time) (func(time.Time) bool, error) {
	period = strings.TrimSpace(period)
	if period == PeriodToday {
		y, m, d := now.Date()
		return func(ts time.Time) bool {
			ty, tm, td := ts.Date()
			return ty == y && tm == m && td == d
		}, nil
	}
	ym, err := time.ParseInLocation("2006-01", period, now.Location())
	if err != nil {
		return nil, fmt.Errorf("invalid period %q: want %q or YYYY-MM", period, PeriodToday)
	}
	return func(ts time.Time) bool {
		return ts.Year() == ym.Year() && ts.Month() == ym.Month()
	}, nil
}

// DayKey truncates a timestamp to its local calendar day.
func DayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekKey returns the Monday that starts the timestamp's calendar week.
// Sunday belongs to the week of the prior Monday.
func WeekKey(t time.Time) time.Time {
	day := DayKey(t)
	wd := int(day.Weekday())
	if wd == 0 {
		wd = 7
	}
	return day.AddDate(0, 0, -(wd - 1))
}

// GroupByDay buckets transactions by local calendar day, newest bucket
// first. Every transaction lands in exactly one bucket.
func GroupByDay(txns []core.Transaction) []Bucket {
	return groupBy(txns, DayKey)
}

// GroupByWeek buckets transactions by Monday-anchored week start, newest
// bucket first.
func GroupByWeek(txns []core.Transaction) []Bucket {
	return groupBy(txns, WeekKey)
}

func groupBy(txns []core.Transaction, key func(time.Time) time.Time) []Bucket {
	// Indexed by formatted date, not time.Time: map equality on time.Time
	// also compares the Location pointer, and timestamps parsed with a
	// fractional-hour zone offset carry a fresh Location per parse.
	index := make(map[string]int)
	var buckets []Bucket
	for _, tx := range txns {
		k := key(tx.Date)
		day := k.Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(buckets)
			index[day] = i
			buckets = append(buckets, Bucket{Key: k})
		}
		buckets[i].Transactions = append(buckets[i].Transactions, tx)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Key.After(buckets[j].Key)
	})
	return buckets
}
