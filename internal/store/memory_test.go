package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memCustomer(number int64) *Customer {
	return &Customer{
		Sortcode:    "987654",
		Number:      number,
		Name:        "Mr John Smith",
		Address:     "12 Acacia Avenue, Norwich",
		DateOfBirth: "1980-06-01",
		CreditScore: 500,
	}
}

func TestMemoryCommitPublishes(t *testing.T) {
	m := NewMemory(1)
	ctx := context.Background()

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertCustomer(ctx, memCustomer(1)))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := m.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx)

	got, err := tx2.GetCustomer(ctx, "987654", 1)
	require.NoError(t, err)
	assert.Equal(t, "Mr John Smith", got.Name)
}

func TestMemoryRollbackDiscards(t *testing.T) {
	m := NewMemory(1)
	ctx := context.Background()

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertCustomer(ctx, memCustomer(1)))
	require.NoError(t, tx.AppendTransaction(ctx, &Transaction{Sortcode: "987654", Type: "OCC"}))
	require.NoError(t, tx.Rollback(ctx))

	tx2, err := m.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx)

	_, err = tx2.GetCustomer(ctx, "987654", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	trans, err := tx2.TransactionsByAccount(ctx, "987654", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, trans)
}

func TestMemoryConcurrentWritersConflict(t *testing.T) {
	m := NewMemory(1)
	ctx := context.Background()

	tx1, err := m.Begin(ctx)
	require.NoError(t, err)
	tx2, err := m.Begin(ctx)
	require.NoError(t, err)

	// both units of work allocate the same next number
	n1, err := tx1.NextCustomerNumber(ctx, "987654")
	require.NoError(t, err)
	n2, err := tx2.NextCustomerNumber(ctx, "987654")
	require.NoError(t, err)
	assert.Equal(t, n1, n2)

	require.NoError(t, tx1.InsertCustomer(ctx, memCustomer(n1)))
	require.NoError(t, tx2.InsertCustomer(ctx, memCustomer(n2)))

	require.NoError(t, tx1.Commit(ctx))
	err = tx2.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, IsRetryable(err))
}

func TestMemoryReadOnlyCommitNeverConflicts(t *testing.T) {
	m := NewMemory(1)
	ctx := context.Background()

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertCustomer(ctx, memCustomer(1)))
	require.NoError(t, tx.Commit(ctx))

	reader, err := m.Begin(ctx)
	require.NoError(t, err)
	writer, err := m.Begin(ctx)
	require.NoError(t, err)

	_, err = reader.GetCustomer(ctx, "987654", 1)
	require.NoError(t, err)

	require.NoError(t, writer.UpdateBalances(ctx, "987654", 1, 0, 0))
	_ = writer.Rollback(ctx)

	assert.NoError(t, reader.Commit(ctx))
}

func TestMemoryDuplicateInsert(t *testing.T) {
	m := NewMemory(1)
	ctx := context.Background()

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, tx.InsertCustomer(ctx, memCustomer(1)))
	assert.ErrorIs(t, tx.InsertCustomer(ctx, memCustomer(1)), ErrConflict)
}

func TestMemoryTransactionOrderingAndIDs(t *testing.T) {
	m := NewMemory(1)
	ctx := context.Background()

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	for i := 0; i < 3; i++ {
		require.NoError(t, tx.AppendTransaction(ctx, &Transaction{
			Sortcode:      "987654",
			AccountNumber: 7,
			Type:          "CRE",
			Amount:        int64(i),
		}))
	}

	trans, err := tx.TransactionsByAccount(ctx, "987654", 7, 2)
	require.NoError(t, err)
	require.Len(t, trans, 2)
	assert.Equal(t, int64(3), trans[0].ID)
	assert.Equal(t, int64(2), trans[1].ID)
}
