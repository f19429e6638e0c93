// Package csvio serializes transactions to and from the CSV interchange
// format. The exporter escapes fields the standard way (quote wrapping,
// doubled inner quotes); the importer splits rows naively on commas for
// compatibility with files produced by earlier versions of the tool, so
// quoted fields containing commas do not round-trip. That asymmetry is
// intentional; see DESIGN.md.
package csvio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"bloombook/internal/core"
)

// Column order is fixed and part of the interchange contract.
var Columns = []string{"id", "description", "amount", "type", "paymentMethod", "date"}

// bom is written ahead of the header so spreadsheet tools detect UTF-8.
const bom = "\uFEFF"

var (
	ErrEmptyFile = errors.New("file is empty or contains no transaction rows")
	ErrBadHeader = errors.New("unrecognized header row")
)

// ImportResult reports the outcome of a parse: the rows that survived and
// the count of rows skipped for row-level errors.
type ImportResult struct {
	Transactions []core.Transaction
	Skipped      int
}

// Export writes the full transaction list as CSV, one row per transaction,
// amounts as plain decimal text and dates as RFC 3339 timestamps.
func Export(w io.Writer, txns []core.Transaction) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bom); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}
	if _, err := bw.WriteString(strings.Join(Columns, ",") + "\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range txns {
		row := []string{
			escapeField(tx.ID),
			escapeField(tx.Description),
			escapeField(tx.Amount.String()),
			escapeField(string(tx.Type)),
			escapeField(string(tx.Method)),
			escapeField(tx.Date.Format(time.RFC3339)),
		}
		if _, err := bw.WriteString(strings.Join(row, ",") + "\n"); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return bw.Flush()
}

// ExportFilename is the download name for an export taken at the given time.
func ExportFilename(now time.Time) string {
	return "transactions-" + now.Format("2006-01-02") + ".csv"
}

// escapeField wraps the field in double quotes when it contains a comma,
// quote or newline, doubling any inner quotes.
func escapeField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Import parses CSV content back into transactions.
//
// The header row is validated before anything else: a missing header, or
// one whose second and third columns are not description and amount,
// rejects the whole file. Each data row is then processed independently
// with a naive comma split; a row is skipped (and logged) when its amount
// does not parse, its id or date is empty, its date does not parse, or its
// type is not a valid enumeration value. A blank or unknown payment method
// defaults to CASH, the same rule the ledger applies when rehydrating old
// records. Deduplication against an existing store is the caller's job.
func Import(r io.Reader) (ImportResult, error) {
	var res ImportResult

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read input: %w", err)
	}
	if len(lines) == 0 {
		return res, ErrEmptyFile
	}

	header := strings.Split(strings.TrimPrefix(lines[0], bom), ",")
	if len(header) < 3 ||
		strings.TrimSpace(header[1]) != "description" ||
		strings.TrimSpace(header[2]) != "amount" {
		return res, ErrBadHeader
	}
	if len(lines) == 1 {
		return res, ErrEmptyFile
	}

	for n, line := range lines[1:] {
		tx, err := parseRow(line)
		if err != nil {
			res.Skipped++
			slog.Warn("Skipping malformed CSV row", "row", n+2, "error", err)
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res, nil
}

func parseRow(line string) (core.Transaction, error) {
	parts := strings.Split(line, ",")
	for len(parts) < len(Columns) {
		parts = append(parts, "")
	}
	id := strings.TrimSpace(parts[0])
	desc := strings.TrimSpace(parts[1])
	amountStr := strings.TrimSpace(parts[2])
	typ := core.TransactionType(strings.TrimSpace(parts[3]))
	method := core.PaymentMethod(strings.TrimSpace(parts[4]))
	dateStr := strings.TrimSpace(parts[5])

	if id == "" {
		return core.Transaction{}, errors.New("empty id")
	}
	if dateStr == "" {
		return core.Transaction{}, errors.New("empty date")
	}
	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", amountStr, err)
	}
	if !typ.Valid() {
		return core.Transaction{}, fmt.Errorf("invalid type %q", typ)
	}
	if !method.Valid() {
		method = core.Cash
	}
	date, err := parseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", dateStr, err)
	}

	return core.Transaction{
		ID:          id,
		Description: desc,
		Amount:      amount,
		Type:        typ,
		Method:      method,
		Date:        date,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}
