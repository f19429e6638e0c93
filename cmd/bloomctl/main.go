// bloomctl operates on the bookkeeping database directly, without the
// server: exporting and importing CSV and printing quick reports.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"bloombook/internal/csvio"
	"bloombook/internal/ledger"
	"bloombook/internal/report"
	"bloombook/internal/storage"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "bloomctl",
	Short: "Offline tools for the bloombook ledger",
	Long:  `bloomctl reads and writes the bloombook SQLite database directly. Stop the server before importing to avoid losing its in-memory state.`,
}

func init() {
	defaultPath := os.Getenv("SQLITE_DB_PATH")
	if defaultPath == "" {
		defaultPath = "./data/bloombook.db"
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultPath, "Path to the SQLite database")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(summaryCmd)

	reportCmd.Flags().StringP("period", "p", report.PeriodToday, `Report period: "today" or YYYY-MM`)
}

func openLedger(ctx context.Context) (*ledger.Ledger, func(), error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	led := ledger.New(repo)
	led.Load(ctx)
	return led, func() { _ = repo.Close() }, nil
}

var exportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Export all transactions as CSV",
	Long:  `Write the full transaction list as CSV to FILE, or to stdout when no file is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		led, closeStore, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		out := os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create %s: %w", args[0], err)
			}
			defer f.Close()
			out = f
		}
		if err := csvio.Export(out, led.Transactions()); err != nil {
			return err
		}
		if len(args) == 1 {
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", len(led.Transactions()), args[0])
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import transactions from a CSV file",
	Long:  `Parse FILE and merge its rows into the ledger. Rows whose id already exists are skipped; malformed rows are skipped and counted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()

		result, err := csvio.Import(f)
		if err != nil {
			return err
		}

		led, closeStore, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		imported, err := led.ImportTransactions(cmd.Context(), result.Transactions)
		if err != nil {
			return err
		}
		skipped := result.Skipped + len(result.Transactions) - imported
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions, skipped %d\n", imported, skipped)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print income and expense totals for a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		period, _ := cmd.Flags().GetString("period")

		led, closeStore, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		totals, err := report.PeriodReport(led.Transactions(), period, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Period:   %s\n", period)
		fmt.Fprintf(cmd.OutOrStdout(), "Income:   %s\n", totals.Income)
		fmt.Fprintf(cmd.OutOrStdout(), "Expenses: %s\n", totals.Expenses)
		fmt.Fprintf(cmd.OutOrStdout(), "Balance:  %s\n", totals.Balance)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print account balances and the unpaid debt total",
	RunE: func(cmd *cobra.Command, args []string) error {
		led, closeStore, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		balances := report.Balances(led.Transactions())
		fmt.Fprintf(cmd.OutOrStdout(), "Cash:         %s\n", balances.Cash)
		fmt.Fprintf(cmd.OutOrStdout(), "Bank:         %s\n", balances.Bank)
		fmt.Fprintf(cmd.OutOrStdout(), "Total:        %s\n", balances.Total)
		fmt.Fprintf(cmd.OutOrStdout(), "Unpaid debts: %s\n", report.UnpaidDebtTotal(led.Debts()))
		return nil
	},
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
