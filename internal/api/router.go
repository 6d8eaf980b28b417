// Package api is the thin request layer over the ledger engine. Each
// request opens one unit of work, invokes one engine operation, and
// commits or rolls back; serialization conflicts replay the whole unit.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/bankcore/internal/bank"
	"github.com/example/bankcore/internal/store"
)

// Dependencies wires the router.
type Dependencies struct {
	Logger      *slog.Logger
	Store       store.Store
	Bank        *bank.Service
	Auditor     Auditor
	CompanyName string

	// SeedSource seeds the test-data generator per request. Defaults to the
	// wall clock.
	SeedSource func() int64
}

// Server carries the wired dependencies behind the handlers.
type Server struct {
	logger     *slog.Logger
	store      store.Store
	bank       *bank.Service
	company    string
	seedSource func() int64
}

// NewRouter builds the HTTP handler tree.
func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.SeedSource == nil {
		deps.SeedSource = func() int64 { return time.Now().UnixNano() }
	}

	s := &Server{
		logger:     deps.Logger,
		store:      deps.Store,
		bank:       deps.Bank,
		company:    deps.CompanyName,
		seedSource: deps.SeedSource,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(CorrelationID)
	r.Use(RequestLogger(deps.Logger))
	if deps.Auditor != nil {
		r.Use(AuditTrail(deps.Auditor))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/info", s.handleInfo)

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", s.handleListCustomers)
			r.Post("/", s.handleCreateCustomer)
			r.Get("/{number}", s.handleGetCustomer)
			r.Put("/{number}", s.handleUpdateCustomer)
			r.Delete("/{number}", s.handleDeleteCustomer)
			r.Get("/{number}/accounts", s.handleCustomerAccounts)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", s.handleCreateAccount)
			r.Get("/{number}", s.handleGetAccount)
			r.Put("/{number}", s.handleUpdateAccount)
			r.Delete("/{number}", s.handleDeleteAccount)
			r.Post("/{number}/debit-credit", s.handleDebitCredit)
		})

		r.Post("/transfers", s.handleTransfer)
		r.Get("/transactions/{number}", s.handleTransactions)
		r.Post("/seed", s.handleSeed)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Success: false, Message: "method not allowed"})
	})

	return r
}

// withUnitOfWork runs fn inside one unit of work: commit on success, roll
// back on failure. Retryable store conflicts (serialization failures, lost
// allocation races) replay the whole unit a bounded number of times —
// retries belong to the request layer, never to the engine.
func (s *Server) withUnitOfWork(ctx context.Context, fn func(tx store.Tx) error) error {
	const maxRetries = 3

	for attempt := 0; ; attempt++ {
		tx, err := s.store.Begin(ctx)
		if err != nil {
			return err
		}

		err = fn(tx)
		if err == nil {
			err = tx.Commit(ctx)
		}
		if err == nil {
			return nil
		}
		_ = tx.Rollback(ctx)

		if store.IsRetryable(err) && attempt < maxRetries-1 {
			time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
			continue
		}
		return err
	}
}
