package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "bank.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSQLiteCustomerRoundTrip(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	number, err := tx.NextCustomerNumber(ctx, "987654")
	require.NoError(t, err)
	assert.Equal(t, int64(1), number)

	cust := &Customer{
		Sortcode:        "987654",
		Number:          number,
		Name:            "Mrs Mary Smith",
		Address:         "4 Oak Lane, Leeds",
		DateOfBirth:     "1975-03-14",
		CreditScore:     640,
		ScoreReviewDate: "2026-01-15",
	}
	require.NoError(t, tx.InsertCustomer(ctx, cust))
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	got, err := tx.GetCustomer(ctx, "987654", 1)
	require.NoError(t, err)
	assert.Equal(t, cust, got)

	next, err := tx.NextCustomerNumber(ctx, "987654")
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)

	_, err = tx.GetCustomer(ctx, "987654", 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRollbackDiscards(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertCustomer(ctx, &Customer{Sortcode: "987654", Number: 1, Name: "Mr John Smith"}))
	require.NoError(t, tx.AppendTransaction(ctx, &Transaction{Sortcode: "987654", Type: "OCC", Date: "2026-01-15", Time: "103000"}))
	require.NoError(t, tx.Rollback(ctx))

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = tx.GetCustomer(ctx, "987654", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	trans, err := tx.TransactionsByAccount(ctx, "987654", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, trans)
}

func TestSQLiteDuplicateInsertIsConflict(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	cust := &Customer{Sortcode: "987654", Number: 1, Name: "Mr John Smith"}
	require.NoError(t, tx.InsertCustomer(ctx, cust))
	err = tx.InsertCustomer(ctx, cust)
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, IsRetryable(err))
}

func TestSQLiteAccountsAndBalances(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, tx.InsertCustomer(ctx, &Customer{Sortcode: "987654", Number: 1, Name: "Mr John Smith"}))
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, tx.InsertAccount(ctx, &Account{
			Sortcode:       "987654",
			Number:         i,
			CustomerNumber: 1,
			Type:           "CURRENT",
			Opened:         "2026-01-15",
		}))
	}

	accounts, err := tx.AccountsByCustomer(ctx, "987654", 1, 0)
	require.NoError(t, err)
	require.Len(t, accounts, 3)

	capped, err := tx.AccountsByCustomer(ctx, "987654", 1, 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)

	last, err := tx.LastAccount(ctx, "987654")
	require.NoError(t, err)
	assert.Equal(t, int64(3), last.Number)

	require.NoError(t, tx.UpdateBalances(ctx, "987654", 1, 2500, 2500))
	acc, err := tx.GetAccount(ctx, "987654", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), acc.AvailableBalance)
	assert.Equal(t, int64(2500), acc.ActualBalance)

	assert.ErrorIs(t, tx.UpdateBalances(ctx, "987654", 99, 0, 0), ErrNotFound)
}

func TestSQLitePartialUpdates(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, tx.InsertCustomer(ctx, &Customer{Sortcode: "987654", Number: 1, Name: "Mr John Smith", Address: "Old Address"}))
	newAddr := "1 New Road, York"
	require.NoError(t, tx.UpdateCustomer(ctx, "987654", 1, CustomerUpdate{Address: &newAddr}))

	got, err := tx.GetCustomer(ctx, "987654", 1)
	require.NoError(t, err)
	assert.Equal(t, "Mr John Smith", got.Name)
	assert.Equal(t, newAddr, got.Address)

	// empty update is a no-op, not an error
	require.NoError(t, tx.UpdateCustomer(ctx, "987654", 1, CustomerUpdate{}))

	assert.ErrorIs(t, tx.UpdateCustomer(ctx, "987654", 99, CustomerUpdate{Address: &newAddr}), ErrNotFound)
}

func TestSQLiteTransactionLog(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	for i, typ := range []string{"OCA", "CRE", "DEB"} {
		tr := &Transaction{
			Sortcode:      "987654",
			AccountNumber: 1,
			Date:          "2026-01-15",
			Time:          "103000",
			Type:          typ,
			Amount:        int64(i * 100),
		}
		require.NoError(t, tx.AppendTransaction(ctx, tr))
		assert.Equal(t, int64(i+1), tr.ID)
	}

	trans, err := tx.TransactionsByAccount(ctx, "987654", 1, 0)
	require.NoError(t, err)
	require.Len(t, trans, 3)
	assert.Equal(t, "DEB", trans[0].Type)
	assert.Equal(t, "CRE", trans[1].Type)
	assert.Equal(t, "OCA", trans[2].Type)

	capped, err := tx.TransactionsByAccount(ctx, "987654", 1, 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, "DEB", capped[0].Type)
}
