package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the production Store backed by a pgx connection pool. Every
// unit of work runs at SERIALIZABLE isolation so that the read-modify-write
// balance updates and the max+1 number allocation cannot silently lose a
// race: a conflicting commit fails with SQLSTATE 40001 or 23505 and the
// request layer replays the unit.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// OpenPostgres connects, pings and returns a ready store.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the schema if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			sortcode       TEXT    NOT NULL,
			number         BIGINT  NOT NULL,
			name           TEXT    NOT NULL,
			address        TEXT    NOT NULL DEFAULT '',
			date_of_birth  TEXT    NOT NULL DEFAULT '',
			credit_score   INTEGER NOT NULL DEFAULT 0,
			cs_review_date TEXT    NOT NULL DEFAULT '',
			PRIMARY KEY (sortcode, number)
		);`,

		`CREATE TABLE IF NOT EXISTS accounts (
			sortcode          TEXT    NOT NULL,
			number            BIGINT  NOT NULL,
			customer_number   BIGINT  NOT NULL,
			account_type      TEXT    NOT NULL,
			interest_rate     INTEGER NOT NULL DEFAULT 0,
			opened            TEXT    NOT NULL DEFAULT '',
			overdraft_limit   BIGINT  NOT NULL DEFAULT 0,
			last_statement    TEXT    NOT NULL DEFAULT '',
			next_statement    TEXT    NOT NULL DEFAULT '',
			available_balance BIGINT  NOT NULL DEFAULT 0,
			actual_balance    BIGINT  NOT NULL DEFAULT 0,
			PRIMARY KEY (sortcode, number),
			FOREIGN KEY (sortcode, customer_number)
				REFERENCES customers (sortcode, number)
		);`,

		`CREATE INDEX IF NOT EXISTS idx_accounts_customer
			ON accounts (sortcode, customer_number, number);`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id             BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			sortcode       TEXT    NOT NULL,
			account_number BIGINT  NOT NULL,
			trans_date     TEXT    NOT NULL,
			trans_time     TEXT    NOT NULL,
			trans_type     TEXT    NOT NULL,
			description    TEXT    NOT NULL DEFAULT '',
			amount         BIGINT  NOT NULL DEFAULT 0
		);`,

		`CREATE INDEX IF NOT EXISTS idx_transactions_account
			ON transactions (sortcode, account_number, id);`,
	}

	for _, migration := range migrations {
		if _, err := p.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

// Begin opens a SERIALIZABLE read-write unit of work.
func (p *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

// Close closes the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func isRetryablePg(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 23505 unique_violation (lost
		// allocation race on a composite primary key).
		return pgErr.Code == "40001" || pgErr.Code == "23505"
	}
	return false
}

type pgTx struct {
	tx pgx.Tx
}

// pgLimit maps limit <= 0 to LIMIT NULL, which postgres treats as no limit.
func pgLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

const customerColumns = `sortcode, number, name, address, date_of_birth, credit_score, cs_review_date`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.Sortcode, &c.Number, &c.Name, &c.Address, &c.DateOfBirth, &c.CreditScore, &c.ScoreReviewDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	return &c, nil
}

func (t *pgTx) GetCustomer(ctx context.Context, sortcode string, number int64) (*Customer, error) {
	return scanCustomer(t.tx.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE sortcode = $1 AND number = $2`,
		sortcode, number))
}

func (t *pgTx) RandomCustomer(ctx context.Context, sortcode string) (*Customer, error) {
	return scanCustomer(t.tx.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE sortcode = $1 ORDER BY random() LIMIT 1`,
		sortcode))
}

func (t *pgTx) LastCustomer(ctx context.Context, sortcode string) (*Customer, error) {
	return scanCustomer(t.tx.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE sortcode = $1 ORDER BY number DESC LIMIT 1`,
		sortcode))
}

func (t *pgTx) ListCustomers(ctx context.Context, sortcode string, limit int) ([]*Customer, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE sortcode = $1 ORDER BY number LIMIT $2`,
		sortcode, pgLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []*Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.Sortcode, &c.Number, &c.Name, &c.Address, &c.DateOfBirth, &c.CreditScore, &c.ScoreReviewDate); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, &c)
	}
	return customers, rows.Err()
}

func (t *pgTx) InsertCustomer(ctx context.Context, c *Customer) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO customers (sortcode, number, name, address, date_of_birth, credit_score, cs_review_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.Sortcode, c.Number, c.Name, c.Address, c.DateOfBirth, c.CreditScore, c.ScoreReviewDate)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateCustomer(ctx context.Context, sortcode string, number int64, upd CustomerUpdate) error {
	sets, args := []string{}, []any{}
	if upd.Name != nil {
		args = append(args, *upd.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if upd.Address != nil {
		args = append(args, *upd.Address)
		sets = append(sets, fmt.Sprintf("address = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, sortcode, number)
	tag, err := t.tx.Exec(ctx, fmt.Sprintf(
		`UPDATE customers SET %s WHERE sortcode = $%d AND number = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args)), args...)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteCustomer(ctx context.Context, sortcode string, number int64) error {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM customers WHERE sortcode = $1 AND number = $2`, sortcode, number)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) NextCustomerNumber(ctx context.Context, sortcode string) (int64, error) {
	var next int64
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM customers WHERE sortcode = $1`,
		sortcode).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate customer number: %w", err)
	}
	return next, nil
}

const accountColumns = `sortcode, number, customer_number, account_type, interest_rate, opened,
	overdraft_limit, last_statement, next_statement, available_balance, actual_balance`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.Sortcode, &a.Number, &a.CustomerNumber, &a.Type, &a.InterestRate, &a.Opened,
		&a.OverdraftLimit, &a.LastStatement, &a.NextStatement, &a.AvailableBalance, &a.ActualBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &a, nil
}

func (t *pgTx) GetAccount(ctx context.Context, sortcode string, number int64) (*Account, error) {
	return scanAccount(t.tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE sortcode = $1 AND number = $2`,
		sortcode, number))
}

func (t *pgTx) LastAccount(ctx context.Context, sortcode string) (*Account, error) {
	return scanAccount(t.tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE sortcode = $1 ORDER BY number DESC LIMIT 1`,
		sortcode))
}

func (t *pgTx) AccountsByCustomer(ctx context.Context, sortcode string, customerNumber int64, limit int) ([]*Account, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE sortcode = $1 AND customer_number = $2 ORDER BY number LIMIT $3`,
		sortcode, customerNumber, pgLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.Sortcode, &a.Number, &a.CustomerNumber, &a.Type, &a.InterestRate, &a.Opened,
			&a.OverdraftLimit, &a.LastStatement, &a.NextStatement, &a.AvailableBalance, &a.ActualBalance); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

func (t *pgTx) InsertAccount(ctx context.Context, a *Account) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO accounts (sortcode, number, customer_number, account_type, interest_rate, opened,
			overdraft_limit, last_statement, next_statement, available_balance, actual_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.Sortcode, a.Number, a.CustomerNumber, a.Type, a.InterestRate, a.Opened,
		a.OverdraftLimit, a.LastStatement, a.NextStatement, a.AvailableBalance, a.ActualBalance)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateAccount(ctx context.Context, sortcode string, number int64, upd AccountUpdate) error {
	sets, args := []string{}, []any{}
	if upd.Type != nil {
		args = append(args, *upd.Type)
		sets = append(sets, fmt.Sprintf("account_type = $%d", len(args)))
	}
	if upd.InterestRate != nil {
		args = append(args, *upd.InterestRate)
		sets = append(sets, fmt.Sprintf("interest_rate = $%d", len(args)))
	}
	if upd.OverdraftLimit != nil {
		args = append(args, *upd.OverdraftLimit)
		sets = append(sets, fmt.Sprintf("overdraft_limit = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, sortcode, number)
	tag, err := t.tx.Exec(ctx, fmt.Sprintf(
		`UPDATE accounts SET %s WHERE sortcode = $%d AND number = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args)), args...)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) UpdateBalances(ctx context.Context, sortcode string, number int64, available, actual int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE accounts SET available_balance = $1, actual_balance = $2 WHERE sortcode = $3 AND number = $4`,
		available, actual, sortcode, number)
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteAccount(ctx context.Context, sortcode string, number int64) error {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM accounts WHERE sortcode = $1 AND number = $2`, sortcode, number)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) NextAccountNumber(ctx context.Context, sortcode string) (int64, error) {
	var next int64
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM accounts WHERE sortcode = $1`,
		sortcode).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate account number: %w", err)
	}
	return next, nil
}

func (t *pgTx) AppendTransaction(ctx context.Context, tr *Transaction) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO transactions (sortcode, account_number, trans_date, trans_time, trans_type, description, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, tr.Sortcode, tr.AccountNumber, tr.Date, tr.Time, tr.Type, tr.Description, tr.Amount).Scan(&tr.ID)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (t *pgTx) TransactionsByAccount(ctx context.Context, sortcode string, accountNumber int64, limit int) ([]*Transaction, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, sortcode, account_number, trans_date, trans_time, trans_type, description, amount
		FROM transactions
		WHERE sortcode = $1 AND account_number = $2
		ORDER BY id DESC LIMIT $3
	`, sortcode, accountNumber, pgLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*Transaction
	for rows.Next() {
		var tr Transaction
		if err := rows.Scan(&tr.ID, &tr.Sortcode, &tr.AccountNumber, &tr.Date, &tr.Time, &tr.Type, &tr.Description, &tr.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tr)
	}
	return transactions, rows.Err()
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}
