package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldTransactionID = "transaction_id"
	FieldDebtID        = "debt_id"
	FieldClientName    = "client_name"
	FieldAmount        = "amount"
	FieldTxType        = "transaction_type"
	FieldPayMethod     = "payment_method"
	FieldPeriod        = "period"
	FieldImported      = "imported_rows"
	FieldSkipped       = "skipped_rows"
	FieldSheetsRef     = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCSV     = "csv"
	ComponentCLI     = "cli"
)
