package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"

	Cash PaymentMethod = "CASH"
	Bank PaymentMethod = "BANK"

	Unpaid DebtStatus = "UNPAID"
	Paid   DebtStatus = "PAID"
)

type (
	TransactionType string

	PaymentMethod string

	DebtStatus string

	// Transaction is a single cash or bank movement. The ID is assigned at
	// creation time and never reassigned; Date is the creation timestamp.
	Transaction struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Method      PaymentMethod   `json:"paymentMethod"`
		Date        time.Time       `json:"date"`
	}

	// Debt tracks money a client owes. It is created UNPAID and transitions
	// to PAID exactly once, via settlement. Amount, client and description
	// are not editable after creation; delete-and-recreate is the only
	// correction path.
	Debt struct {
		ID          string          `json:"id"`
		ClientName  string          `json:"clientName"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Status      DebtStatus      `json:"status"`
		Date        time.Time       `json:"date"`
		Notes       string          `json:"notes,omitempty"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyClientName    = errors.New("empty client name")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidMethod      = errors.New("invalid payment method")
	ErrInvalidStatus      = errors.New("invalid debt status")
	ErrEmptyID            = errors.New("empty id")
	ErrZeroDate           = errors.New("date cannot be zero")
	ErrInvalidDate        = errors.New("invalid date")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (m PaymentMethod) Valid() bool {
	return m == Cash || m == Bank
}

func (s DebtStatus) Valid() bool {
	return s == Unpaid || s == Paid
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Method.Valid() {
		return ErrInvalidMethod
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// Signed returns the amount with the sign implied by the transaction type:
// positive for income, negative for expense.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(d.ClientName) == "" {
		return ErrEmptyClientName
	}
	if len(strings.TrimSpace(d.Description)) == 0 {
		return ErrEmptyDescription
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !d.Status.Valid() {
		return ErrInvalidStatus
	}
	if d.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}
