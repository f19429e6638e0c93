package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"bloombook/internal/core"
	"bloombook/internal/ledger"
	applog "bloombook/internal/log"
	"bloombook/internal/storage"
)

func newTestServer(t *testing.T, opts ...ledger.Option) *Server {
	t.Helper()
	led := ledger.New(storage.NewMemory(), opts...)
	logger := applog.New(applog.Config{Level: slog.LevelError})
	return NewServer(":0", led, logger)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rr.Body.String())
	}
	return v
}

func createTransaction(t *testing.T, srv *Server, desc, amount, txType, method string) core.Transaction {
	t.Helper()
	rr := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]string{
		"description":   desc,
		"amount":        amount,
		"type":          txType,
		"paymentMethod": method,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transaction: status %d, body %s", rr.Code, rr.Body.String())
	}
	return decodeBody[core.Transaction](t, rr)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	createTransaction(t, srv, "roses", "25", "INCOME", "CASH")

	rr := doJSON(t, srv, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "bloombook_ledger_mutations_total") {
		t.Fatalf("metrics body missing mutation counter")
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	tx := createTransaction(t, srv, "bouquet sale", "120,50", "INCOME", "CASH")
	if tx.ID == "" {
		t.Fatalf("created transaction has no id")
	}
	if !tx.Amount.Equal(decimal.RequireFromString("120.5")) {
		t.Fatalf("comma amount parsed as %s", tx.Amount)
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/transactions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status %d", rr.Code)
	}
	list := decodeBody[[]core.Transaction](t, rr)
	if len(list) != 1 || list[0].ID != tx.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d, want 404", rr.Code)
	}
}

func TestCreateTransactionErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"negative amount", map[string]string{"description": "x", "amount": "-5", "type": "INCOME", "paymentMethod": "CASH"}, http.StatusUnprocessableEntity},
		{"garbage amount", map[string]string{"description": "x", "amount": "abc", "type": "INCOME", "paymentMethod": "CASH"}, http.StatusUnprocessableEntity},
		{"bad type", map[string]string{"description": "x", "amount": "5", "type": "TRANSFER", "paymentMethod": "CASH"}, http.StatusUnprocessableEntity},
		{"bad method", map[string]string{"description": "x", "amount": "5", "type": "INCOME", "paymentMethod": "CHECK"}, http.StatusUnprocessableEntity},
		{"empty description", map[string]string{"description": "  ", "amount": "5", "type": "INCOME", "paymentMethod": "CASH"}, http.StatusUnprocessableEntity},
		{"overlong description", map[string]string{"description": strings.Repeat("x", 201), "amount": "5", "type": "INCOME", "paymentMethod": "CASH"}, http.StatusUnprocessableEntity},
		{"malformed date", map[string]string{"description": "x", "amount": "5", "type": "INCOME", "paymentMethod": "CASH", "date": "yesterday"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	// A malformed date names the parse failure, not a zero date.
	rrDate := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]string{
		"description": "x", "amount": "5", "type": "INCOME", "paymentMethod": "CASH", "date": "20-08-2025",
	})
	if rrDate.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed date status %d, want 422", rrDate.Code)
	}
	if !strings.Contains(rrDate.Body.String(), "invalid date") {
		t.Fatalf("malformed date error %s", rrDate.Body.String())
	}

	// Malformed JSON is a plain bad request.
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed JSON status %d, want 400", rr.Code)
	}
}

func TestArabicDigitAmountAndSearch(t *testing.T) {
	srv := newTestServer(t)

	tx := createTransaction(t, srv, "order 123", "١٢٣", "INCOME", "CASH")
	if !tx.Amount.Equal(decimal.NewFromInt(123)) {
		t.Fatalf("arabic-indic amount parsed as %s", tx.Amount)
	}

	// Searching with Arabic-Indic digits finds the ASCII description.
	rr := doJSON(t, srv, http.MethodGet, "/api/transactions?q=%D9%A1%D9%A2%D9%A3", nil)
	list := decodeBody[[]core.Transaction](t, rr)
	if len(list) != 1 {
		t.Fatalf("digit-normalized search found %d transactions", len(list))
	}
}

func TestListTransactionsFiltering(t *testing.T) {
	srv := newTestServer(t)
	createTransaction(t, srv, "wedding flowers", "200", "INCOME", "BANK")
	createTransaction(t, srv, "vase stock", "80", "EXPENSE", "CASH")
	createTransaction(t, srv, "walk-in sale", "30", "INCOME", "CASH")

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?type=INCOME", 2},
		{"?account=CASH", 2},
		{"?account=CASH&type=INCOME", 1},
		{"?q=wedding", 1},
		{"?type=all", 3},
	}
	for _, tt := range tests {
		rr := doJSON(t, srv, http.MethodGet, "/api/transactions"+tt.query, nil)
		list := decodeBody[[]core.Transaction](t, rr)
		if len(list) != tt.want {
			t.Fatalf("query %q matched %d, want %d", tt.query, len(list), tt.want)
		}
	}
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t)
	createTransaction(t, srv, "sale", "100", "INCOME", "CASH")
	createTransaction(t, srv, "supplies", "40", "EXPENSE", "CASH")
	createTransaction(t, srv, "invoice", "50", "INCOME", "BANK")

	rr := doJSON(t, srv, http.MethodGet, "/api/summary", nil)
	s := decodeBody[summaryResponse](t, rr)
	if !s.Cash.Equal(decimal.NewFromInt(60)) ||
		!s.Bank.Equal(decimal.NewFromInt(50)) ||
		!s.Total.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("summary = cash %s bank %s total %s", s.Cash, s.Bank, s.Total)
	}
}

func TestPeriodReportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	createTransaction(t, srv, "sale", "100", "INCOME", "CASH")
	createTransaction(t, srv, "supplies", "30", "EXPENSE", "CASH")

	rr := doJSON(t, srv, http.MethodGet, "/api/report?period=today", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("report status %d", rr.Code)
	}
	var totals struct {
		Income   decimal.Decimal `json:"income"`
		Expenses decimal.Decimal `json:"expenses"`
		Balance  decimal.Decimal `json:"balance"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &totals); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !totals.Balance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("today balance = %s, want 70", totals.Balance)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/report?period=nonsense", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad period status %d, want 400", rr.Code)
	}
}

func TestGroupedEndpoint(t *testing.T) {
	srv := newTestServer(t)
	createTransaction(t, srv, "sale", "10", "INCOME", "CASH")

	for _, by := range []string{"day", "week", ""} {
		rr := doJSON(t, srv, http.MethodGet, "/api/transactions/grouped?by="+by, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("grouped by=%q status %d", by, rr.Code)
		}
		buckets := decodeBody[[]groupedBucket](t, rr)
		if len(buckets) != 1 || len(buckets[0].Transactions) != 1 {
			t.Fatalf("grouped by=%q buckets %+v", by, buckets)
		}
		if buckets[0].Label == "" {
			t.Fatalf("bucket label missing")
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/transactions/grouped?by=month", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid grouping status %d, want 400", rr.Code)
	}
}

func TestDebtSettlement(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/debts", map[string]string{
		"clientName":  "Hotel Azalea",
		"description": "lobby arrangements",
		"amount":      "150",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create debt status %d, body %s", rr.Code, rr.Body.String())
	}
	debt := decodeBody[core.Debt](t, rr)
	if debt.Status != core.Unpaid {
		t.Fatalf("new debt status %s, want UNPAID", debt.Status)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/debts/"+debt.ID+"/settle", map[string]string{"paymentMethod": "BANK"})
	if rr.Code != http.StatusOK {
		t.Fatalf("settle status %d, body %s", rr.Code, rr.Body.String())
	}
	tx := decodeBody[core.Transaction](t, rr)
	if tx.Type != core.Income || tx.Method != core.Bank || !tx.Amount.Equal(debt.Amount) {
		t.Fatalf("settlement transaction %+v", tx)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/debts/"+debt.ID+"/settle", map[string]string{"paymentMethod": "CASH"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("second settle status %d, want 409", rr.Code)
	}

	// The settlement income shows up in the summary.
	rr = doJSON(t, srv, http.MethodGet, "/api/summary", nil)
	s := decodeBody[summaryResponse](t, rr)
	if !s.Bank.Equal(decimal.NewFromInt(150)) || !s.UnpaidDebts.Equal(decimal.Zero) {
		t.Fatalf("post-settlement summary bank %s unpaid %s", s.Bank, s.UnpaidDebts)
	}
}

func TestRestrictedMode(t *testing.T) {
	srv := newTestServer(t, ledger.WithRestrictedMode(true))
	tx := createTransaction(t, srv, "sale", "10", "INCOME", "CASH")

	rr := doJSON(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("restricted delete status %d, want 403", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/debts", map[string]string{
		"clientName": "c", "description": "d", "amount": "9",
	})
	debt := decodeBody[core.Debt](t, rr)
	rr = doJSON(t, srv, http.MethodPost, "/api/debts/"+debt.ID+"/settle", map[string]string{"paymentMethod": "CASH"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("restricted settle status %d, want 403", rr.Code)
	}
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t)
	createTransaction(t, srv, "sale", "10", "INCOME", "CASH")

	rr := doJSON(t, srv, http.MethodGet, "/export.csv", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") || !strings.Contains(got, "transactions-") {
		t.Fatalf("content disposition %q", got)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "\uFEFF") {
		t.Fatalf("export missing BOM")
	}
	if !strings.Contains(body, "id,description,amount,type,paymentMethod,date") {
		t.Fatalf("export missing header row: %q", body)
	}
}

func multipartCSV(t *testing.T, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "transactions.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestImportCSV(t *testing.T) {
	srv := newTestServer(t)

	csv := "id,description,amount,type,paymentMethod,date\n" +
		"imp-1,tulips,12.5,INCOME,CASH,2025-08-01\n" +
		"imp-2,ribbon,3,EXPENSE,BANK,2025-08-02\n" +
		"imp-3,broken,abc,INCOME,CASH,2025-08-03\n"
	body, contentType := multipartCSV(t, csv)

	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("import status %d, body %s", rr.Code, rr.Body.String())
	}
	res := decodeBody[importResponse](t, rr)
	if res.Imported != 2 || res.Skipped != 1 {
		t.Fatalf("import result %+v, want 2 imported 1 skipped", res)
	}

	// Re-importing the same file skips everything by id.
	body, contentType = multipartCSV(t, csv)
	req = httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", contentType)
	rr = httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rr, req)
	res = decodeBody[importResponse](t, rr)
	if res.Imported != 0 || res.Skipped != 3 {
		t.Fatalf("re-import result %+v, want 0 imported 3 skipped", res)
	}
}

func TestImportCSVStructuralErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"header only", "id,description,amount,type,paymentMethod,date\n"},
		{"wrong header", "foo,bar,baz\nimp-1,x,5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartCSV(t, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/import", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()
			srv.Server.Handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400 (body %s)", rr.Code, rr.Body.String())
			}
		})
	}

	// Missing file field altogether.
	rr := doJSON(t, srv, http.MethodPost, "/import", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing file status %d, want 400", rr.Code)
	}
}

func TestPrintReport(t *testing.T) {
	srv := newTestServer(t)
	createTransaction(t, srv, "sale", "10", "INCOME", "CASH")
	createTransaction(t, srv, "rent", "7", "EXPENSE", "BANK")

	for _, tt := range []struct {
		kind  string
		total string
	}{
		{"income", "10"},
		{"expense", "7"},
		{"bank", "-7"},
	} {
		rr := doJSON(t, srv, http.MethodGet, "/print/"+tt.kind, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("print %s status %d", tt.kind, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
			t.Fatalf("print %s content type %q", tt.kind, ct)
		}
		if !strings.Contains(rr.Body.String(), fmt.Sprintf(">%s<", tt.total)) {
			t.Fatalf("print %s body missing total %s", tt.kind, tt.total)
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/print/quarterly", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown kind status %d, want 400", rr.Code)
	}
}
