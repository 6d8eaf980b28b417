package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bankcore/internal/store"
)

func TestGenerateCounts(t *testing.T) {
	mem := store.NewMemory(1)
	ctx := context.Background()
	tx, err := mem.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	gen := NewGenerator("987654", 42)
	stats, err := gen.Generate(ctx, tx, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Customers)
	assert.Equal(t, 15, stats.Accounts)

	customers, err := tx.ListCustomers(ctx, "987654", 0)
	require.NoError(t, err)
	require.Len(t, customers, 5)
	for i, c := range customers {
		assert.Equal(t, int64(i+1), c.Number)
		assert.GreaterOrEqual(t, c.CreditScore, 1)
		assert.LessOrEqual(t, c.CreditScore, 999)
		assert.NotEmpty(t, c.DateOfBirth)

		accounts, err := tx.AccountsByCustomer(ctx, "987654", c.Number, 0)
		require.NoError(t, err)
		assert.Len(t, accounts, 3)
		for _, a := range accounts {
			assert.Equal(t, a.AvailableBalance, a.ActualBalance)
			assert.GreaterOrEqual(t, a.ActualBalance, int64(0))
			assert.Equal(t, typeRates[a.Type], a.InterestRate)
		}
	}
}

func TestGeneratedNamesCarryValidTitles(t *testing.T) {
	gen := NewGenerator("987654", 7)

	valid := make(map[string]bool)
	for _, title := range titlesWeighted {
		valid[title] = true
	}

	for i := 0; i < 100; i++ {
		name := gen.randomName()
		title := strings.Fields(name)[0]
		assert.True(t, valid[title], "name %q", name)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	ctx := context.Background()

	run := func() []*store.Customer {
		mem := store.NewMemory(1)
		tx, err := mem.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		_, err = NewGenerator("987654", 99).Generate(ctx, tx, 3, 1)
		require.NoError(t, err)
		customers, err := tx.ListCustomers(ctx, "987654", 0)
		require.NoError(t, err)
		return customers
	}

	assert.Equal(t, run(), run())
}
