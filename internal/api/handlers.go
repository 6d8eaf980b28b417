package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/example/bankcore/internal/bank"
	"github.com/example/bankcore/internal/seed"
	"github.com/example/bankcore/internal/store"
)

type createCustomerRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"`
}

type updateCustomerRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

type createAccountRequest struct {
	CustomerNumber int64  `json:"customer_number"`
	AccountType    string `json:"account_type"`
	InterestRate   *int   `json:"interest_rate"`
	OverdraftLimit *int64 `json:"overdraft_limit"`
}

type updateAccountRequest struct {
	AccountType    *string `json:"account_type"`
	InterestRate   *int    `json:"interest_rate"`
	OverdraftLimit *int64  `json:"overdraft_limit"`
}

type transferRequest struct {
	FromAccount int64 `json:"from_account"`
	ToAccount   int64 `json:"to_account"`
	Amount      int64 `json:"amount"`
}

type debitCreditRequest struct {
	Amount  int64 `json:"amount"`
	IsDebit bool  `json:"is_debit"`
}

type seedRequest struct {
	Customers           int `json:"customers"`
	AccountsPerCustomer int `json:"accounts_per_customer"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]string{
		"company":  s.company,
		"sortcode": s.bank.Sortcode(),
	}, "")
}

func pathNumber(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "number")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid number %q", bank.ErrValidation, raw)
	}
	return n, nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", bank.ErrValidation)
	}
	return nil
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			limit = i
		}
	}

	var customers []*store.Customer
	err := s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		var err error
		customers, err = s.bank.ListCustomers(r.Context(), tx, limit)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, customers, "")
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var cust *store.Customer
	err = s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		var err error
		cust, err = s.bank.GetCustomer(r.Context(), tx, number)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, cust, "")
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var cust *store.Customer
	err := s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		var err error
		cust, err = s.bank.CreateCustomer(r.Context(), tx, bank.CreateCustomerRequest{
			Name:        req.Name,
			Address:     req.Address,
			DateOfBirth: req.DateOfBirth,
		})
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, cust, "Customer created")
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateCustomerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var cust *store.Customer
	err = s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		var err error
		cust, err = s.bank.UpdateCustomer(r.Context(), tx, number, bank.UpdateCustomerRequest{
			Name:    req.Name,
			Address: req.Address,
		})
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, cust, "Customer updated")
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}

	err = s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		return s.bank.DeleteCustomer(r.Context(), tx, number)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil, "Customer deleted")
}

func (s *Server) handleCustomerAccounts(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var accounts []*store.Account
	err = s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		var err error
		accounts, err = s.bank.GetAccountsByCustomer(r.Context(), tx, number)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, accounts, "")
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var acc *store.Account
	err = s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		var err error
		acc, err = s.bank.GetAccount(r.Context(), tx, number)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, acc, "")
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var acc *store.Account
	err := s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		var err error
		acc, err = s.bank.CreateAccount(r.Context(), tx, bank.CreateAccountRequest{
			CustomerNumber: req.CustomerNumber,
			Type:           req.AccountType,
			InterestRate:   req.InterestRate,
			OverdraftLimit: req.OverdraftLimit,
		})
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, acc, "Account created")
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateAccountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var acc *store.Account
	err = s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		var err error
		acc, err = s.bank.UpdateAccount(r.Context(), tx, number, bank.UpdateAccountRequest{
			Type:           req.AccountType,
			InterestRate:   req.InterestRate,
			OverdraftLimit: req.OverdraftLimit,
		})
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, acc, "Account updated")
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}

	err = s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		return s.bank.DeleteAccount(r.Context(), tx, number)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil, "Account deleted")
}

func (s *Server) handleDebitCredit(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req debitCreditRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var balances *bank.Balances
	err = s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		var err error
		balances, err = s.bank.DebitCredit(r.Context(), tx, number, req.Amount, req.IsDebit)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	message := "Credit applied"
	if req.IsDebit {
		message = "Debit applied"
	}
	writeOK(w, balances, message)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var result *bank.TransferResult
	err := s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		var err error
		result, err = s.bank.TransferFunds(r.Context(), tx, req.FromAccount, req.ToAccount, req.Amount)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, result, "Transfer completed")
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			limit = i
		}
	}

	var transactions []*store.Transaction
	err = s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		var err error
		transactions, err = s.bank.GetTransactionsByAccount(r.Context(), tx, number, limit)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, transactions, "")
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	req := seedRequest{Customers: 10, AccountsPerCustomer: 2}
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Customers < 1 || req.AccountsPerCustomer < 0 {
		writeError(w, fmt.Errorf("%w: invalid seed counts", bank.ErrValidation))
		return
	}

	gen := seed.NewGenerator(s.bank.Sortcode(), s.seedSource())
	var stats *seed.Stats
	err := s.withUnitOfWork(r.Context(), func(tx store.Tx) error {
		var err error
		stats, err = gen.Generate(r.Context(), tx, req.Customers, req.AccountsPerCustomer)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, stats, "Test data generated")
}
