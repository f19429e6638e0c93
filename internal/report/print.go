package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bloombook/internal/core"
)

// Printable report kinds.
const (
	PrintIncome  ReportKind = "income"
	PrintExpense ReportKind = "expense"
	PrintBank    ReportKind = "bank"
)

type (
	ReportKind string

	// PrintTable is a printable subset of the ledger with a computed
	// total row. The bank table's total is net (+income, -expense); the
	// income and expense tables are plain sums.
	PrintTable struct {
		Kind         ReportKind
		Title        string
		Transactions []core.Transaction
		Total        decimal.Decimal
	}
)

// BuildPrintTable selects the subset of transactions for the requested
// report kind and computes its total row.
func BuildPrintTable(txns []core.Transaction, kind ReportKind) (PrintTable, error) {
	table := PrintTable{Kind: kind, Total: decimal.Zero}
	switch kind {
	case PrintIncome:
		table.Title = "Income Report"
		for _, tx := range txns {
			if tx.Type == core.Income {
				table.Transactions = append(table.Transactions, tx)
				table.Total = table.Total.Add(tx.Amount)
			}
		}
	case PrintExpense:
		table.Title = "Expense Report"
		for _, tx := range txns {
			if tx.Type == core.Expense {
				table.Transactions = append(table.Transactions, tx)
				table.Total = table.Total.Add(tx.Amount)
			}
		}
	case PrintBank:
		table.Title = "Bank Transfers Report"
		for _, tx := range txns {
			if tx.Method == core.Bank {
				table.Transactions = append(table.Transactions, tx)
				table.Total = table.Total.Add(tx.Signed())
			}
		}
	default:
		return PrintTable{}, fmt.Errorf("unknown report kind %q", kind)
	}
	return table, nil
}
