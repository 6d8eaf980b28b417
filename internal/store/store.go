// Package store is the persistence boundary of the ledger engine. It maps
// customers, accounts and the append-only transaction trail onto a
// relational store keyed by (sortcode, number), and hands out units of work
// with explicit commit/rollback.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups when no row matches the key.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a unit of work loses a write race. The
// request layer is expected to retry the whole unit (see IsRetryable).
var ErrConflict = errors.New("write conflict")

// Customer is a bank customer row, keyed by (sortcode, number).
type Customer struct {
	Sortcode        string `json:"sortcode"`
	Number          int64  `json:"number"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	DateOfBirth     string `json:"date_of_birth"`
	CreditScore     int    `json:"credit_score"`
	ScoreReviewDate string `json:"cs_review_date"`
}

// Account is a bank account row, keyed by (sortcode, number) and owned by a
// customer in the same sortcode. Monetary fields are integers in minor
// currency units; the interest rate is in hundredths of a percent.
// AvailableBalance and ActualBalance are tracked separately but every engine
// operation moves them by the same delta.
type Account struct {
	Sortcode         string `json:"sortcode"`
	Number           int64  `json:"number"`
	CustomerNumber   int64  `json:"customer_number"`
	Type             string `json:"account_type"`
	InterestRate     int    `json:"interest_rate"`
	Opened           string `json:"opened"`
	OverdraftLimit   int64  `json:"overdraft_limit"`
	LastStatement    string `json:"last_statement,omitempty"`
	NextStatement    string `json:"next_statement,omitempty"`
	AvailableBalance int64  `json:"available_balance"`
	ActualBalance    int64  `json:"actual_balance"`
}

// Transaction is one immutable audit entry. AccountNumber 0 marks a
// customer-level event. Rows are only ever appended, never updated.
type Transaction struct {
	ID            int64  `json:"id"`
	Sortcode      string `json:"sortcode"`
	AccountNumber int64  `json:"account_number"`
	Date          string `json:"trans_date"`
	Time          string `json:"trans_time"`
	Type          string `json:"trans_type"`
	Description   string `json:"description"`
	Amount        int64  `json:"amount"`
}

// CustomerUpdate carries a partial customer update. Nil fields are left
// untouched.
type CustomerUpdate struct {
	Name    *string
	Address *string
}

// AccountUpdate carries a partial account update. Nil fields are left
// untouched.
type AccountUpdate struct {
	Type           *string
	InterestRate   *int
	OverdraftLimit *int64
}

// Tx is one unit of work. All reads and writes inside it are atomic: Commit
// publishes everything, Rollback discards everything, including any audit
// entries appended along the way.
type Tx interface {
	GetCustomer(ctx context.Context, sortcode string, number int64) (*Customer, error)
	RandomCustomer(ctx context.Context, sortcode string) (*Customer, error)
	LastCustomer(ctx context.Context, sortcode string) (*Customer, error)
	ListCustomers(ctx context.Context, sortcode string, limit int) ([]*Customer, error)
	InsertCustomer(ctx context.Context, c *Customer) error
	UpdateCustomer(ctx context.Context, sortcode string, number int64, upd CustomerUpdate) error
	DeleteCustomer(ctx context.Context, sortcode string, number int64) error
	// NextCustomerNumber returns max(number)+1 for the sortcode, or 1 when
	// the population is empty. It has no side effect; uniqueness is enforced
	// by the composite primary key at commit time.
	NextCustomerNumber(ctx context.Context, sortcode string) (int64, error)

	GetAccount(ctx context.Context, sortcode string, number int64) (*Account, error)
	LastAccount(ctx context.Context, sortcode string) (*Account, error)
	AccountsByCustomer(ctx context.Context, sortcode string, customerNumber int64, limit int) ([]*Account, error)
	InsertAccount(ctx context.Context, a *Account) error
	UpdateAccount(ctx context.Context, sortcode string, number int64, upd AccountUpdate) error
	UpdateBalances(ctx context.Context, sortcode string, number int64, available, actual int64) error
	DeleteAccount(ctx context.Context, sortcode string, number int64) error
	NextAccountNumber(ctx context.Context, sortcode string) (int64, error)

	AppendTransaction(ctx context.Context, t *Transaction) error
	TransactionsByAccount(ctx context.Context, sortcode string, accountNumber int64, limit int) ([]*Transaction, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens units of work. One unit per request; units never span
// requests.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// IsRetryable reports whether the failed unit of work may succeed if the
// caller replays it from Begin. Covers serialization failures and key
// conflicts from the max+1 number allocation losing a race.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || isRetryablePg(err)
}
