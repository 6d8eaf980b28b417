package bank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bankcore/internal/store"
)

type stubScorer struct {
	score int
	err   error
	calls int
}

func (s *stubScorer) Score(ctx context.Context) (int, error) {
	s.calls++
	return s.score, s.err
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *stubScorer, store.Tx) {
	t.Helper()
	scorer := &stubScorer{score: 500}
	svc := NewService("987654", scorer, WithClock(fixedClock))
	mem := store.NewMemory(1)
	tx, err := mem.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return svc, scorer, tx
}

func mustCreateCustomer(t *testing.T, svc *Service, tx store.Tx, name string) *store.Customer {
	t.Helper()
	cust, err := svc.CreateCustomer(context.Background(), tx, CreateCustomerRequest{
		Name:        name,
		Address:     "12 Acacia Avenue, Norwich",
		DateOfBirth: "1980-06-01",
	})
	require.NoError(t, err)
	return cust
}

func TestCreateCustomer(t *testing.T) {
	svc, scorer, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")

	assert.Equal(t, int64(1), cust.Number)
	assert.Equal(t, "987654", cust.Sortcode)
	assert.Equal(t, 500, cust.CreditScore)
	assert.Equal(t, "2026-01-15", cust.ScoreReviewDate)
	assert.Equal(t, 1, scorer.calls)

	trans, err := svc.GetTransactionsByAccount(ctx, tx, 0, 10)
	require.NoError(t, err)
	require.Len(t, trans, 1)
	assert.Equal(t, TransCustomerCreated, trans[0].Type)
	assert.Equal(t, "2026-01-15", trans[0].Date)
	assert.Equal(t, "103000", trans[0].Time)
}

func TestCreateCustomerTitles(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{
		"Mr John Smith",
		"Professor Ada Lovelace",
		"Lady Jane Grey",
		"", // missing title token is allowed
	} {
		_, err := svc.CreateCustomer(ctx, tx, CreateCustomerRequest{Name: name, DateOfBirth: "1970-01-01"})
		assert.NoError(t, err, "name %q", name)
	}

	_, err := svc.CreateCustomer(ctx, tx, CreateCustomerRequest{Name: "Captain Jack Sparrow", DateOfBirth: "1970-01-01"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCustomerNumbersAreGapless(t *testing.T) {
	svc, _, tx := newTestService(t)

	for want := int64(1); want <= 3; want++ {
		cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
		assert.Equal(t, want, cust.Number)
	}
}

func TestCreateCustomerScorerFailureAborts(t *testing.T) {
	scorer := &stubScorer{err: errors.New("agencies unavailable")}
	svc := NewService("987654", scorer, WithClock(fixedClock))
	mem := store.NewMemory(1)
	tx, err := mem.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback(context.Background())

	_, err = svc.CreateCustomer(context.Background(), tx, CreateCustomerRequest{Name: "Mr John Smith"})
	require.Error(t, err)

	_, err = tx.GetCustomer(context.Background(), "987654", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetCustomerSentinels(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	first := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	last := mustCreateCustomer(t, svc, tx, "Mrs Mary Smith")

	got, err := svc.GetCustomer(ctx, tx, MaxCustomerNumber)
	require.NoError(t, err)
	assert.Equal(t, last.Number, got.Number)

	got, err = svc.GetCustomer(ctx, tx, 0)
	require.NoError(t, err)
	assert.Contains(t, []int64{first.Number, last.Number}, got.Number)

	_, err = svc.GetCustomer(ctx, tx, 42)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestUpdateCustomer(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")

	newAddr := "1 New Road, York"
	got, err := svc.UpdateCustomer(ctx, tx, cust.Number, UpdateCustomerRequest{Address: &newAddr})
	require.NoError(t, err)
	assert.Equal(t, "Mr John Smith", got.Name)
	assert.Equal(t, newAddr, got.Address)

	badName := "Captain John Smith"
	_, err = svc.UpdateCustomer(ctx, tx, cust.Number, UpdateCustomerRequest{Name: &badName})
	assert.ErrorIs(t, err, ErrValidation)

	// updates are not money-affecting so no audit entry beyond the OCC one
	trans, err := svc.GetTransactionsByAccount(ctx, tx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, trans, 1)
}

func TestCreateAccountDefaults(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")

	isa, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeISA})
	require.NoError(t, err)
	assert.Equal(t, int64(1), isa.Number)
	assert.Equal(t, 250, isa.InterestRate)
	assert.Equal(t, int64(0), isa.OverdraftLimit)
	assert.Equal(t, int64(0), isa.AvailableBalance)
	assert.Equal(t, int64(0), isa.ActualBalance)
	assert.Equal(t, "2026-01-15", isa.Opened)

	current, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeCurrent})
	require.NoError(t, err)
	assert.Equal(t, int64(2), current.Number)
	assert.Equal(t, 0, current.InterestRate)
	assert.Equal(t, int64(0), current.OverdraftLimit)

	rate := 99
	limit := int64(50000)
	loan, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{
		CustomerNumber: cust.Number,
		Type:           TypeLoan,
		InterestRate:   &rate,
		OverdraftLimit: &limit,
	})
	require.NoError(t, err)
	assert.Equal(t, 99, loan.InterestRate)
	assert.Equal(t, int64(50000), loan.OverdraftLimit)
}

func TestCreateAccountRejectsUnknownType(t *testing.T) {
	svc, _, tx := newTestService(t)

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	_, err := svc.CreateAccount(context.Background(), tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: "GOLD"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateAccount(context.Background(), tx, CreateAccountRequest{CustomerNumber: 999, Type: TypeCurrent})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestDebitCredit(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	acc, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeCurrent})
	require.NoError(t, err)

	bal, err := svc.DebitCredit(ctx, tx, acc.Number, 10000, false)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), bal.AvailableBalance)
	assert.Equal(t, int64(10000), bal.ActualBalance)

	bal, err = svc.DebitCredit(ctx, tx, acc.Number, 2500, true)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), bal.AvailableBalance)
	assert.Equal(t, int64(7500), bal.ActualBalance)

	trans, err := svc.GetTransactionsByAccount(ctx, tx, acc.Number, 10)
	require.NoError(t, err)
	require.Len(t, trans, 3) // OCA, CRE, DEB; newest first
	assert.Equal(t, TransDebit, trans[0].Type)
	assert.Equal(t, int64(2500), trans[0].Amount)
	assert.Equal(t, TransCredit, trans[1].Type)
	assert.Equal(t, TransAccountCreated, trans[2].Type)
}

func TestDebitInsufficientFunds(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	acc, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeCurrent})
	require.NoError(t, err)

	_, err = svc.DebitCredit(ctx, tx, acc.Number, 5000, false)
	require.NoError(t, err)

	_, err = svc.DebitCredit(ctx, tx, acc.Number, 5001, true)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	got, err := svc.GetAccount(ctx, tx, acc.Number)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.AvailableBalance)
	assert.Equal(t, int64(5000), got.ActualBalance)

	// exact drain to zero is allowed
	bal, err := svc.DebitCredit(ctx, tx, acc.Number, 5000, true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.AvailableBalance)
}

func TestDebitRejectedOnLoanAndMortgage(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	for _, typ := range []string{TypeLoan, TypeMortgage} {
		acc, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: typ})
		require.NoError(t, err)

		_, err = svc.DebitCredit(ctx, tx, acc.Number, 100, false)
		require.NoError(t, err, "credits stay allowed on %s", typ)

		_, err = svc.DebitCredit(ctx, tx, acc.Number, 100, true)
		assert.ErrorIs(t, err, ErrValidation, "debit on %s", typ)
	}
}

func TestDebitCreditRejectsNegativeAmount(t *testing.T) {
	svc, _, tx := newTestService(t)

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	acc, err := svc.CreateAccount(context.Background(), tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeCurrent})
	require.NoError(t, err)

	_, err = svc.DebitCredit(context.Background(), tx, acc.Number, -1, false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransferHasNoSufficiencyCheck(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	from, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeCurrent})
	require.NoError(t, err)
	to, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeSaving})
	require.NoError(t, err)

	_, err = svc.DebitCredit(ctx, tx, from.Number, 5000, false)
	require.NoError(t, err)

	result, err := svc.TransferFunds(ctx, tx, from.Number, to.Number, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(-5000), result.FromBalance)
	assert.Equal(t, int64(10000), result.ToBalance)

	fromAcc, err := svc.GetAccount(ctx, tx, from.Number)
	require.NoError(t, err)
	assert.Equal(t, int64(-5000), fromAcc.AvailableBalance)
	assert.Equal(t, int64(-5000), fromAcc.ActualBalance)

	fromTrans, err := svc.GetTransactionsByAccount(ctx, tx, from.Number, 1)
	require.NoError(t, err)
	require.Len(t, fromTrans, 1)
	assert.Equal(t, TransTransfer, fromTrans[0].Type)
	assert.Contains(t, fromTrans[0].Description, "Transfer to")

	toTrans, err := svc.GetTransactionsByAccount(ctx, tx, to.Number, 1)
	require.NoError(t, err)
	require.Len(t, toTrans, 1)
	assert.Contains(t, toTrans[0].Description, "Transfer from")
}

func TestTransferRejectsNegativeAmount(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	from, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeCurrent})
	require.NoError(t, err)
	to, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeSaving})
	require.NoError(t, err)

	_, err = svc.TransferFunds(ctx, tx, from.Number, to.Number, -100)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransferUnknownAccounts(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	acc, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeCurrent})
	require.NoError(t, err)

	_, err = svc.TransferFunds(ctx, tx, 999, acc.Number, 100)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = svc.TransferFunds(ctx, tx, acc.Number, 999, 100)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestDeleteCustomerCascades(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	var accountNumbers []int64
	for _, typ := range []string{TypeCurrent, TypeSaving, TypeISA} {
		acc, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: typ})
		require.NoError(t, err)
		accountNumbers = append(accountNumbers, acc.Number)
	}

	require.NoError(t, svc.DeleteCustomer(ctx, tx, cust.Number))

	_, err := svc.GetCustomer(ctx, tx, cust.Number)
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	for _, n := range accountNumbers {
		_, err := svc.GetAccount(ctx, tx, n)
		assert.ErrorIs(t, err, ErrAccountNotFound)

		trans, err := svc.GetTransactionsByAccount(ctx, tx, n, 10)
		require.NoError(t, err)
		require.NotEmpty(t, trans)
		assert.Equal(t, TransAccountDeleted, trans[0].Type)
	}

	custTrans, err := svc.GetTransactionsByAccount(ctx, tx, 0, 10)
	require.NoError(t, err)
	require.Len(t, custTrans, 2) // ODC then OCC, newest first
	assert.Equal(t, TransCustomerDeleted, custTrans[0].Type)
	assert.Equal(t, TransCustomerCreated, custTrans[1].Type)
}

func TestDeleteCustomerMissingWritesNothing(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	err := svc.DeleteCustomer(ctx, tx, 42)
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	trans, err := svc.GetTransactionsByAccount(ctx, tx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, trans)
}

func TestGetAccountsByCustomerCap(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	for i := 0; i < MaxAccountsPerQuery+5; i++ {
		_, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeCurrent})
		require.NoError(t, err)
	}

	accounts, err := svc.GetAccountsByCustomer(ctx, tx, cust.Number)
	require.NoError(t, err)
	assert.Len(t, accounts, MaxAccountsPerQuery)
	for i := 1; i < len(accounts); i++ {
		assert.Less(t, accounts[i-1].Number, accounts[i].Number)
	}

	_, err = svc.GetAccountsByCustomer(ctx, tx, 999)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestGetAccountLastSentinel(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	_, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeCurrent})
	require.NoError(t, err)
	last, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeSaving})
	require.NoError(t, err)

	got, err := svc.GetAccount(ctx, tx, MaxAccountNumber)
	require.NoError(t, err)
	assert.Equal(t, last.Number, got.Number)
}

func TestUpdateAccount(t *testing.T) {
	svc, _, tx := newTestService(t)
	ctx := context.Background()

	cust := mustCreateCustomer(t, svc, tx, "Mr John Smith")
	acc, err := svc.CreateAccount(ctx, tx, CreateAccountRequest{CustomerNumber: cust.Number, Type: TypeCurrent})
	require.NoError(t, err)

	newType := TypeSaving
	rate := 175
	got, err := svc.UpdateAccount(ctx, tx, acc.Number, UpdateAccountRequest{Type: &newType, InterestRate: &rate})
	require.NoError(t, err)
	assert.Equal(t, TypeSaving, got.Type)
	assert.Equal(t, 175, got.InterestRate)

	bad := "GOLD"
	_, err = svc.UpdateAccount(ctx, tx, acc.Number, UpdateAccountRequest{Type: &bad})
	assert.ErrorIs(t, err, ErrValidation)
}
