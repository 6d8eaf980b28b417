// Package bank implements the ledger mutation and audit engine: customer
// and account lifecycle, debit/credit, transfers, and the append-only
// audit trail they produce. Every operation runs inside a unit of work
// owned by the caller; the engine never commits or rolls back itself, so a
// failed request discards the mutation and its audit entries together.
package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/bankcore/internal/store"
)

// Scorer produces an initial credit score for a new customer. The real
// implementation fans out to concurrent scoring probes; tests stub it.
type Scorer interface {
	Score(ctx context.Context) (int, error)
}

// Service is the ledger engine for one sortcode.
type Service struct {
	sortcode string
	scorer   Scorer
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for audit timestamps, opened
// dates and score review dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the engine for a sortcode. scorer is invoked exactly
// once per customer creation.
func NewService(sortcode string, scorer Scorer, opts ...Option) *Service {
	s := &Service{
		sortcode: sortcode,
		scorer:   scorer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sortcode returns the sortcode this engine serves.
func (s *Service) Sortcode() string { return s.sortcode }

// audit appends one immutable transaction record inside the current unit
// of work. accountNumber 0 marks a customer-level event.
func (s *Service) audit(ctx context.Context, tx store.Tx, accountNumber int64, transType, description string, amount int64) error {
	now := s.now()
	return tx.AppendTransaction(ctx, &store.Transaction{
		Sortcode:      s.sortcode,
		AccountNumber: accountNumber,
		Date:          now.Format("2006-01-02"),
		Time:          now.Format("150405"),
		Type:          transType,
		Description:   description,
		Amount:        amount,
	})
}

func titleOf(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func validateTitle(name string) error {
	if title := titleOf(name); !validTitles[title] {
		return fmt.Errorf("%w: invalid title %q", ErrValidation, title)
	}
	return nil
}

// GetCustomer looks up a customer. number 0 picks one uniformly at random
// from the sortcode's population; MaxCustomerNumber and above selects the
// highest-numbered customer.
func (s *Service) GetCustomer(ctx context.Context, tx store.Tx, number int64) (*store.Customer, error) {
	var (
		cust *store.Customer
		err  error
	)
	switch {
	case number == 0:
		cust, err = tx.RandomCustomer(ctx, s.sortcode)
	case number >= MaxCustomerNumber:
		cust, err = tx.LastCustomer(ctx, s.sortcode)
	default:
		cust, err = tx.GetCustomer(ctx, s.sortcode, number)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %d", ErrCustomerNotFound, number)
		}
		return nil, err
	}
	return cust, nil
}

// CreateCustomerRequest carries the inputs for customer creation.
type CreateCustomerRequest struct {
	Name        string
	Address     string
	DateOfBirth string // YYYY-MM-DD
}

// CreateCustomer validates the name's title token, allocates the next
// customer number, obtains the initial credit score from the scoring
// fan-out, and records one OCC audit entry. A scoring failure aborts the
// whole creation.
func (s *Service) CreateCustomer(ctx context.Context, tx store.Tx, req CreateCustomerRequest) (*store.Customer, error) {
	if err := validateTitle(req.Name); err != nil {
		return nil, err
	}

	number, err := tx.NextCustomerNumber(ctx, s.sortcode)
	if err != nil {
		return nil, err
	}

	score, err := s.scorer.Score(ctx)
	if err != nil {
		return nil, fmt.Errorf("credit check failed: %w", err)
	}

	cust := &store.Customer{
		Sortcode:        s.sortcode,
		Number:          number,
		Name:            req.Name,
		Address:         req.Address,
		DateOfBirth:     req.DateOfBirth,
		CreditScore:     score,
		ScoreReviewDate: s.now().Format("2006-01-02"),
	}
	if err := tx.InsertCustomer(ctx, cust); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, tx, 0, TransCustomerCreated, fmt.Sprintf("Create customer %d", number), 0); err != nil {
		return nil, err
	}
	return cust, nil
}

// UpdateCustomerRequest carries a partial customer update; nil fields are
// left untouched.
type UpdateCustomerRequest struct {
	Name    *string
	Address *string
}

// UpdateCustomer applies a partial update. A supplied name has its title
// re-validated. Updates are not money-affecting and produce no audit
// entry.
func (s *Service) UpdateCustomer(ctx context.Context, tx store.Tx, number int64, req UpdateCustomerRequest) (*store.Customer, error) {
	if _, err := tx.GetCustomer(ctx, s.sortcode, number); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %d", ErrCustomerNotFound, number)
		}
		return nil, err
	}
	if req.Name != nil {
		if err := validateTitle(*req.Name); err != nil {
			return nil, err
		}
	}
	err := tx.UpdateCustomer(ctx, s.sortcode, number, store.CustomerUpdate{
		Name:    req.Name,
		Address: req.Address,
	})
	if err != nil {
		return nil, err
	}
	return tx.GetCustomer(ctx, s.sortcode, number)
}

// DeleteCustomer cascades: every owned account is deleted through
// DeleteAccount (one ODA entry each), then the customer row goes with one
// ODC entry. The whole cascade lives in the caller's unit of work, so a
// failed commit undoes all of it.
func (s *Service) DeleteCustomer(ctx context.Context, tx store.Tx, number int64) error {
	if _, err := tx.GetCustomer(ctx, s.sortcode, number); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: customer %d", ErrCustomerNotFound, number)
		}
		return err
	}

	accounts, err := tx.AccountsByCustomer(ctx, s.sortcode, number, 0)
	if err != nil {
		return err
	}
	for _, acc := range accounts {
		if err := s.DeleteAccount(ctx, tx, acc.Number); err != nil {
			return err
		}
	}

	if err := tx.DeleteCustomer(ctx, s.sortcode, number); err != nil {
		return err
	}
	return s.audit(ctx, tx, 0, TransCustomerDeleted, fmt.Sprintf("Delete customer %d", number), 0)
}

// ListCustomers returns customers in ascending number order.
func (s *Service) ListCustomers(ctx context.Context, tx store.Tx, limit int) ([]*store.Customer, error) {
	return tx.ListCustomers(ctx, s.sortcode, limit)
}

// GetAccount looks up an account. MaxAccountNumber and above selects the
// highest-numbered account.
func (s *Service) GetAccount(ctx context.Context, tx store.Tx, number int64) (*store.Account, error) {
	var (
		acc *store.Account
		err error
	)
	if number >= MaxAccountNumber {
		acc, err = tx.LastAccount(ctx, s.sortcode)
	} else {
		acc, err = tx.GetAccount(ctx, s.sortcode, number)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %d", ErrAccountNotFound, number)
		}
		return nil, err
	}
	return acc, nil
}

// GetAccountsByCustomer returns the customer's accounts in ascending
// number order, capped at MaxAccountsPerQuery.
func (s *Service) GetAccountsByCustomer(ctx context.Context, tx store.Tx, customerNumber int64) ([]*store.Account, error) {
	if _, err := tx.GetCustomer(ctx, s.sortcode, customerNumber); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %d", ErrCustomerNotFound, customerNumber)
		}
		return nil, err
	}
	return tx.AccountsByCustomer(ctx, s.sortcode, customerNumber, MaxAccountsPerQuery)
}

// CreateAccountRequest carries the inputs for account creation. Nil rate
// and limit default from the per-type table.
type CreateAccountRequest struct {
	CustomerNumber int64
	Type           string
	InterestRate   *int
	OverdraftLimit *int64
}

// CreateAccount opens a zero-balance account for an existing customer and
// records one OCA audit entry tagged to the new account number.
func (s *Service) CreateAccount(ctx context.Context, tx store.Tx, req CreateAccountRequest) (*store.Account, error) {
	if !validAccountTypes[req.Type] {
		return nil, fmt.Errorf("%w: invalid account type %q", ErrValidation, req.Type)
	}
	if _, err := tx.GetCustomer(ctx, s.sortcode, req.CustomerNumber); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %d", ErrCustomerNotFound, req.CustomerNumber)
		}
		return nil, err
	}

	defaults := defaultRates[req.Type]
	rate := defaults.interestRate
	if req.InterestRate != nil {
		rate = *req.InterestRate
	}
	limit := defaults.overdraftLimit
	if req.OverdraftLimit != nil {
		limit = *req.OverdraftLimit
	}

	number, err := tx.NextAccountNumber(ctx, s.sortcode)
	if err != nil {
		return nil, err
	}

	acc := &store.Account{
		Sortcode:       s.sortcode,
		Number:         number,
		CustomerNumber: req.CustomerNumber,
		Type:           req.Type,
		InterestRate:   rate,
		Opened:         s.now().Format("2006-01-02"),
		OverdraftLimit: limit,
	}
	if err := tx.InsertAccount(ctx, acc); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, tx, number, TransAccountCreated, fmt.Sprintf("Create account for cust %d", req.CustomerNumber), 0); err != nil {
		return nil, err
	}
	return acc, nil
}

// UpdateAccountRequest carries a partial account update; nil fields are
// left untouched.
type UpdateAccountRequest struct {
	Type           *string
	InterestRate   *int
	OverdraftLimit *int64
}

// UpdateAccount applies a partial update. A supplied type must be in the
// fixed set. No audit entry.
func (s *Service) UpdateAccount(ctx context.Context, tx store.Tx, number int64, req UpdateAccountRequest) (*store.Account, error) {
	if _, err := tx.GetAccount(ctx, s.sortcode, number); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %d", ErrAccountNotFound, number)
		}
		return nil, err
	}
	if req.Type != nil && !validAccountTypes[*req.Type] {
		return nil, fmt.Errorf("%w: invalid account type %q", ErrValidation, *req.Type)
	}
	err := tx.UpdateAccount(ctx, s.sortcode, number, store.AccountUpdate{
		Type:           req.Type,
		InterestRate:   req.InterestRate,
		OverdraftLimit: req.OverdraftLimit,
	})
	if err != nil {
		return nil, err
	}
	return tx.GetAccount(ctx, s.sortcode, number)
}

// DeleteAccount deletes one account and records one ODA audit entry.
func (s *Service) DeleteAccount(ctx context.Context, tx store.Tx, number int64) error {
	if _, err := tx.GetAccount(ctx, s.sortcode, number); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: account %d", ErrAccountNotFound, number)
		}
		return err
	}
	if err := tx.DeleteAccount(ctx, s.sortcode, number); err != nil {
		return err
	}
	return s.audit(ctx, tx, number, TransAccountDeleted, fmt.Sprintf("Delete account %d", number), 0)
}

// GetTransactionsByAccount returns the account's audit entries, newest
// first.
func (s *Service) GetTransactionsByAccount(ctx context.Context, tx store.Tx, accountNumber int64, limit int) ([]*store.Transaction, error) {
	return tx.TransactionsByAccount(ctx, s.sortcode, accountNumber, limit)
}

// Balances is the pair of post-operation balance fields.
type Balances struct {
	AvailableBalance int64 `json:"available_balance"`
	ActualBalance    int64 `json:"actual_balance"`
}

// DebitCredit applies a signed delta to both balance fields and records
// one DEB or CRE audit entry. Debits are rejected on LOAN and MORTGAGE
// accounts and when they would drive the available balance negative; the
// overdraft limit is intentionally not consulted.
func (s *Service) DebitCredit(ctx context.Context, tx store.Tx, number int64, amount int64, isDebit bool) (*Balances, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	acc, err := tx.GetAccount(ctx, s.sortcode, number)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %d", ErrAccountNotFound, number)
		}
		return nil, err
	}

	signed := amount
	if isDebit {
		signed = -amount
		if acc.Type == TypeMortgage || acc.Type == TypeLoan {
			return nil, fmt.Errorf("%w: cannot debit %s account", ErrValidation, acc.Type)
		}
		if acc.AvailableBalance-amount < 0 {
			return nil, fmt.Errorf("%w: available %d, requested %d", ErrInsufficientFunds, acc.AvailableBalance, amount)
		}
	}

	newAvail := acc.AvailableBalance + signed
	newActual := acc.ActualBalance + signed
	if err := tx.UpdateBalances(ctx, s.sortcode, number, newAvail, newActual); err != nil {
		return nil, err
	}

	transType, verb := TransCredit, "Credit"
	if isDebit {
		transType, verb = TransDebit, "Debit"
	}
	if err := s.audit(ctx, tx, number, transType, fmt.Sprintf("%s %d", verb, amount), amount); err != nil {
		return nil, err
	}
	return &Balances{AvailableBalance: newAvail, ActualBalance: newActual}, nil
}

// TransferResult carries the post-transfer actual balances of both sides.
type TransferResult struct {
	FromBalance int64 `json:"from_balance"`
	ToBalance   int64 `json:"to_balance"`
}

// TransferFunds moves amount from one account to another with no
// sufficiency or overdraft check of any kind; the source balance may go
// negative. That is deliberate compatibility with the historical transfer
// path, not an oversight. Two TFR audit entries are recorded, one per
// side, each naming the counterpart.
func (s *Service) TransferFunds(ctx context.Context, tx store.Tx, fromNumber, toNumber, amount int64) (*TransferResult, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}

	from, err := tx.GetAccount(ctx, s.sortcode, fromNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: from-account %d", ErrAccountNotFound, fromNumber)
		}
		return nil, err
	}
	to, err := tx.GetAccount(ctx, s.sortcode, toNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: to-account %d", ErrAccountNotFound, toNumber)
		}
		return nil, err
	}

	if err := tx.UpdateBalances(ctx, s.sortcode, fromNumber, from.AvailableBalance-amount, from.ActualBalance-amount); err != nil {
		return nil, err
	}
	if err := tx.UpdateBalances(ctx, s.sortcode, toNumber, to.AvailableBalance+amount, to.ActualBalance+amount); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, tx, fromNumber, TransTransfer, fmt.Sprintf("Transfer to %d", toNumber), amount); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, tx, toNumber, TransTransfer, fmt.Sprintf("Transfer from %d", fromNumber), amount); err != nil {
		return nil, err
	}

	return &TransferResult{
		FromBalance: from.ActualBalance - amount,
		ToBalance:   to.ActualBalance + amount,
	}, nil
}
