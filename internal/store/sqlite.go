package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the single-process Store used for local development and
// integration tests. The file is opened in WAL mode; SQLite's single-writer
// rule serializes conflicting units of work.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS customers (
	sortcode       TEXT    NOT NULL,
	number         INTEGER NOT NULL,
	name           TEXT    NOT NULL,
	address        TEXT    NOT NULL DEFAULT '',
	date_of_birth  TEXT    NOT NULL DEFAULT '',
	credit_score   INTEGER NOT NULL DEFAULT 0,
	cs_review_date TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (sortcode, number)
);

CREATE TABLE IF NOT EXISTS accounts (
	sortcode          TEXT    NOT NULL,
	number            INTEGER NOT NULL,
	customer_number   INTEGER NOT NULL,
	account_type      TEXT    NOT NULL,
	interest_rate     INTEGER NOT NULL DEFAULT 0,
	opened            TEXT    NOT NULL DEFAULT '',
	overdraft_limit   INTEGER NOT NULL DEFAULT 0,
	last_statement    TEXT    NOT NULL DEFAULT '',
	next_statement    TEXT    NOT NULL DEFAULT '',
	available_balance INTEGER NOT NULL DEFAULT 0,
	actual_balance    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (sortcode, number),
	FOREIGN KEY (sortcode, customer_number) REFERENCES customers (sortcode, number)
);

CREATE INDEX IF NOT EXISTS idx_accounts_customer
	ON accounts (sortcode, customer_number, number);

CREATE TABLE IF NOT EXISTS transactions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	sortcode       TEXT    NOT NULL,
	account_number INTEGER NOT NULL,
	trans_date     TEXT    NOT NULL,
	trans_time     TEXT    NOT NULL,
	trans_type     TEXT    NOT NULL,
	description    TEXT    NOT NULL DEFAULT '',
	amount         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_transactions_account
	ON transactions (sortcode, account_number, id);
`

// OpenSQLite opens (creating if necessary) a SQLite store at path.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Begin opens a unit of work.
func (s *SQLite) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() {
	_ = s.db.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

// sqliteLimit maps limit <= 0 to -1, which sqlite treats as no limit.
func sqliteLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func scanCustomerRow(row *sql.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.Sortcode, &c.Number, &c.Name, &c.Address, &c.DateOfBirth, &c.CreditScore, &c.ScoreReviewDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	return &c, nil
}

func (t *sqliteTx) GetCustomer(ctx context.Context, sortcode string, number int64) (*Customer, error) {
	return scanCustomerRow(t.tx.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE sortcode = ? AND number = ?`,
		sortcode, number))
}

func (t *sqliteTx) RandomCustomer(ctx context.Context, sortcode string) (*Customer, error) {
	return scanCustomerRow(t.tx.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE sortcode = ? ORDER BY RANDOM() LIMIT 1`,
		sortcode))
}

func (t *sqliteTx) LastCustomer(ctx context.Context, sortcode string) (*Customer, error) {
	return scanCustomerRow(t.tx.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE sortcode = ? ORDER BY number DESC LIMIT 1`,
		sortcode))
}

func (t *sqliteTx) ListCustomers(ctx context.Context, sortcode string, limit int) ([]*Customer, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE sortcode = ? ORDER BY number LIMIT ?`,
		sortcode, sqliteLimit(limit))
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

func (t *sqliteTx) InsertCustomer(ctx context.Context, c *Customer) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO customers (sortcode, number, name, address, date_of_birth, credit_score, cs_review_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.Sortcode, c.Number, c.Name, c.Address, c.DateOfBirth, c.CreditScore, c.ScoreReviewDate)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: customer %d", ErrConflict, c.Number)
		}
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

func (t *sqliteTx) UpdateCustomer(ctx context.Context, sortcode string, number int64, upd CustomerUpdate) error {
	sets, args := []string{}, []any{}
	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Address != nil {
		sets = append(sets, "address = ?")
		args = append(args, *upd.Address)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, sortcode, number)
	res, err := t.tx.ExecContext(ctx,
		`UPDATE customers SET `+strings.Join(sets, ", ")+` WHERE sortcode = ? AND number = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return requireRows(res)
}

func (t *sqliteTx) DeleteCustomer(ctx context.Context, sortcode string, number int64) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM customers WHERE sortcode = ? AND number = ?`, sortcode, number)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return requireRows(res)
}

func (t *sqliteTx) NextCustomerNumber(ctx context.Context, sortcode string) (int64, error) {
	var next int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM customers WHERE sortcode = ?`,
		sortcode).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate customer number: %w", err)
	}
	return next, nil
}

func scanAccountRow(row *sql.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.Sortcode, &a.Number, &a.CustomerNumber, &a.Type, &a.InterestRate, &a.Opened,
		&a.OverdraftLimit, &a.LastStatement, &a.NextStatement, &a.AvailableBalance, &a.ActualBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &a, nil
}

func (t *sqliteTx) GetAccount(ctx context.Context, sortcode string, number int64) (*Account, error) {
	return scanAccountRow(t.tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE sortcode = ? AND number = ?`,
		sortcode, number))
}

func (t *sqliteTx) LastAccount(ctx context.Context, sortcode string) (*Account, error) {
	return scanAccountRow(t.tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE sortcode = ? ORDER BY number DESC LIMIT 1`,
		sortcode))
}

func (t *sqliteTx) AccountsByCustomer(ctx context.Context, sortcode string, customerNumber int64, limit int) ([]*Account, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE sortcode = ? AND customer_number = ? ORDER BY number LIMIT ?`,
		sortcode, customerNumber, sqliteLimit(limit))
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

func (t *sqliteTx) InsertAccount(ctx context.Context, a *Account) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO accounts (sortcode, number, customer_number, account_type, interest_rate, opened,
			overdraft_limit, last_statement, next_statement, available_balance, actual_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Sortcode, a.Number, a.CustomerNumber, a.Type, a.InterestRate, a.Opened,
		a.OverdraftLimit, a.LastStatement, a.NextStatement, a.AvailableBalance, a.ActualBalance)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: account %d", ErrConflict, a.Number)
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (t *sqliteTx) UpdateAccount(ctx context.Context, sortcode string, number int64, upd AccountUpdate) error {
	sets, args := []string{}, []any{}
	if upd.Type != nil {
		sets = append(sets, "account_type = ?")
		args = append(args, *upd.Type)
	}
	if upd.InterestRate != nil {
		sets = append(sets, "interest_rate = ?")
		args = append(args, *upd.InterestRate)
	}
	if upd.OverdraftLimit != nil {
		sets = append(sets, "overdraft_limit = ?")
		args = append(args, *upd.OverdraftLimit)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, sortcode, number)
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET `+strings.Join(sets, ", ")+` WHERE sortcode = ? AND number = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireRows(res)
}

func (t *sqliteTx) UpdateBalances(ctx context.Context, sortcode string, number int64, available, actual int64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET available_balance = ?, actual_balance = ? WHERE sortcode = ? AND number = ?`,
		available, actual, sortcode, number)
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}
	return requireRows(res)
}

func (t *sqliteTx) DeleteAccount(ctx context.Context, sortcode string, number int64) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM accounts WHERE sortcode = ? AND number = ?`, sortcode, number)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return requireRows(res)
}

func (t *sqliteTx) NextAccountNumber(ctx context.Context, sortcode string) (int64, error) {
	var next int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM accounts WHERE sortcode = ?`,
		sortcode).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate account number: %w", err)
	}
	return next, nil
}

func (t *sqliteTx) AppendTransaction(ctx context.Context, tr *Transaction) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO transactions (sortcode, account_number, trans_date, trans_time, trans_type, description, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tr.Sortcode, tr.AccountNumber, tr.Date, tr.Time, tr.Type, tr.Description, tr.Amount)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		tr.ID = id
	}
	return nil
}

func (t *sqliteTx) TransactionsByAccount(ctx context.Context, sortcode string, accountNumber int64, limit int) ([]*Transaction, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, sortcode, account_number, trans_date, trans_time, trans_type, description, amount
		FROM transactions
		WHERE sortcode = ? AND account_number = ?
		ORDER BY id DESC LIMIT ?
	`, sortcode, accountNumber, sqliteLimit(limit))
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

func (t *sqliteTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *sqliteTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func requireRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
