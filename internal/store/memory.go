package store

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

// Memory is an in-process Store for tests and experiments. Each unit of
// work operates on a copy of the state; Commit publishes the copy with
// optimistic conflict detection, so a lost race surfaces as ErrConflict the
// same way a serialization failure does on the relational backends.
type Memory struct {
	mu           sync.Mutex
	version      uint64
	customers    map[recordKey]Customer
	accounts     map[recordKey]Account
	transactions []Transaction
	rng          *rand.Rand
}

type recordKey struct {
	sortcode string
	number   int64
}

// NewMemory returns an empty in-memory store. The seed drives the
// random-customer pick so tests can be deterministic.
func NewMemory(seed int64) *Memory {
	return &Memory{
		customers: make(map[recordKey]Customer),
		accounts:  make(map[recordKey]Account),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Begin snapshots the current state into a new unit of work.
func (m *Memory) Begin(ctx context.Context) (Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		parent:      m,
		baseVersion: m.version,
		customers:   make(map[recordKey]Customer, len(m.customers)),
		accounts:    make(map[recordKey]Account, len(m.accounts)),
	}
	for k, v := range m.customers {
		tx.customers[k] = v
	}
	for k, v := range m.accounts {
		tx.accounts[k] = v
	}
	tx.transactions = append(tx.transactions, m.transactions...)
	return tx, nil
}

// Close is a no-op.
func (m *Memory) Close() {}

type memTx struct {
	parent      *Memory
	baseVersion uint64
	done        bool
	dirty       bool

	customers    map[recordKey]Customer
	accounts     map[recordKey]Account
	transactions []Transaction
}

func (t *memTx) GetCustomer(ctx context.Context, sortcode string, number int64) (*Customer, error) {
	c, ok := t.customers[recordKey{sortcode, number}]
	if !ok {
		return nil, ErrNotFound
	}
	out := c
	return &out, nil
}

func (t *memTx) RandomCustomer(ctx context.Context, sortcode string) (*Customer, error) {
	numbers := t.customerNumbers(sortcode)
	if len(numbers) == 0 {
		return nil, ErrNotFound
	}
	t.parent.mu.Lock()
	n := numbers[t.parent.rng.Intn(len(numbers))]
	t.parent.mu.Unlock()
	return t.GetCustomer(ctx, sortcode, n)
}

func (t *memTx) LastCustomer(ctx context.Context, sortcode string) (*Customer, error) {
	numbers := t.customerNumbers(sortcode)
	if len(numbers) == 0 {
		return nil, ErrNotFound
	}
	return t.GetCustomer(ctx, sortcode, numbers[len(numbers)-1])
}

func (t *memTx) ListCustomers(ctx context.Context, sortcode string, limit int) ([]*Customer, error) {
	numbers := t.customerNumbers(sortcode)
	var customers []*Customer
	for _, n := range numbers {
		if limit > 0 && len(customers) >= limit {
			break
		}
		c := t.customers[recordKey{sortcode, n}]
		customers = append(customers, &c)
	}
	return customers, nil
}

func (t *memTx) InsertCustomer(ctx context.Context, c *Customer) error {
	key := recordKey{c.Sortcode, c.Number}
	if _, exists := t.customers[key]; exists {
		return fmt.Errorf("%w: customer %d", ErrConflict, c.Number)
	}
	t.customers[key] = *c
	t.dirty = true
	return nil
}

func (t *memTx) UpdateCustomer(ctx context.Context, sortcode string, number int64, upd CustomerUpdate) error {
	key := recordKey{sortcode, number}
	c, ok := t.customers[key]
	if !ok {
		return ErrNotFound
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Address != nil {
		c.Address = *upd.Address
	}
	t.customers[key] = c
	t.dirty = true
	return nil
}

func (t *memTx) DeleteCustomer(ctx context.Context, sortcode string, number int64) error {
	key := recordKey{sortcode, number}
	if _, ok := t.customers[key]; !ok {
		return ErrNotFound
	}
	delete(t.customers, key)
	t.dirty = true
	return nil
}

func (t *memTx) NextCustomerNumber(ctx context.Context, sortcode string) (int64, error) {
	numbers := t.customerNumbers(sortcode)
	if len(numbers) == 0 {
		return 1, nil
	}
	return numbers[len(numbers)-1] + 1, nil
}

func (t *memTx) GetAccount(ctx context.Context, sortcode string, number int64) (*Account, error) {
	a, ok := t.accounts[recordKey{sortcode, number}]
	if !ok {
		return nil, ErrNotFound
	}
	out := a
	return &out, nil
}

func (t *memTx) LastAccount(ctx context.Context, sortcode string) (*Account, error) {
	numbers := t.accountNumbers(sortcode)
	if len(numbers) == 0 {
		return nil, ErrNotFound
	}
	return t.GetAccount(ctx, sortcode, numbers[len(numbers)-1])
}

func (t *memTx) AccountsByCustomer(ctx context.Context, sortcode string, customerNumber int64, limit int) ([]*Account, error) {
	var accounts []*Account
	for _, n := range t.accountNumbers(sortcode) {
		a := t.accounts[recordKey{sortcode, n}]
		if a.CustomerNumber != customerNumber {
			continue
		}
		if limit > 0 && len(accounts) >= limit {
			break
		}
		out := a
		accounts = append(accounts, &out)
	}
	return accounts, nil
}

func (t *memTx) InsertAccount(ctx context.Context, a *Account) error {
	key := recordKey{a.Sortcode, a.Number}
	if _, exists := t.accounts[key]; exists {
		return fmt.Errorf("%w: account %d", ErrConflict, a.Number)
	}
	t.accounts[key] = *a
	t.dirty = true
	return nil
}

func (t *memTx) UpdateAccount(ctx context.Context, sortcode string, number int64, upd AccountUpdate) error {
	key := recordKey{sortcode, number}
	a, ok := t.accounts[key]
	if !ok {
		return ErrNotFound
	}
	if upd.Type != nil {
		a.Type = *upd.Type
	}
	if upd.InterestRate != nil {
		a.InterestRate = *upd.InterestRate
	}
	if upd.OverdraftLimit != nil {
		a.OverdraftLimit = *upd.OverdraftLimit
	}
	t.accounts[key] = a
	t.dirty = true
	return nil
}

func (t *memTx) UpdateBalances(ctx context.Context, sortcode string, number int64, available, actual int64) error {
	key := recordKey{sortcode, number}
	a, ok := t.accounts[key]
	if !ok {
		return ErrNotFound
	}
	a.AvailableBalance = available
	a.ActualBalance = actual
	t.accounts[key] = a
	t.dirty = true
	return nil
}

func (t *memTx) DeleteAccount(ctx context.Context, sortcode string, number int64) error {
	key := recordKey{sortcode, number}
	if _, ok := t.accounts[key]; !ok {
		return ErrNotFound
	}
	delete(t.accounts, key)
	t.dirty = true
	return nil
}

func (t *memTx) NextAccountNumber(ctx context.Context, sortcode string) (int64, error) {
	numbers := t.accountNumbers(sortcode)
	if len(numbers) == 0 {
		return 1, nil
	}
	return numbers[len(numbers)-1] + 1, nil
}

func (t *memTx) AppendTransaction(ctx context.Context, tr *Transaction) error {
	tr.ID = int64(len(t.transactions)) + 1
	t.transactions = append(t.transactions, *tr)
	t.dirty = true
	return nil
}

func (t *memTx) TransactionsByAccount(ctx context.Context, sortcode string, accountNumber int64, limit int) ([]*Transaction, error) {
	var transactions []*Transaction
	for i := len(t.transactions) - 1; i >= 0; i-- {
		tr := t.transactions[i]
		if tr.Sortcode != sortcode || tr.AccountNumber != accountNumber {
			continue
		}
		if limit > 0 && len(transactions) >= limit {
			break
		}
		out := tr
		transactions = append(transactions, &out)
	}
	return transactions, nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()

	if t.dirty && t.parent.version != t.baseVersion {
		return fmt.Errorf("%w: unit of work out of date", ErrConflict)
	}
	if t.dirty {
		t.parent.customers = t.customers
		t.parent.accounts = t.accounts
		t.parent.transactions = t.transactions
		t.parent.version++
	}
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.done = true
	return nil
}

func (t *memTx) customerNumbers(sortcode string) []int64 {
	var numbers []int64
	for k := range t.customers {
		if k.sortcode == sortcode {
			numbers = append(numbers, k.number)
		}
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers
}

func (t *memTx) accountNumbers(sortcode string) []int64 {
	var numbers []int64
	for k := range t.accounts {
		if k.sortcode == sortcode {
			numbers = append(numbers, k.number)
		}
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers
}
