package bank

import "errors"

// Sentinel errors for the four recoverable failure kinds. Operations wrap
// these with key context via %w, so callers classify with errors.Is and
// read the detail from the message.
var (
	// ErrCustomerNotFound is returned when a customer key matches no row.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrAccountNotFound is returned when an account key matches no row.
	ErrAccountNotFound = errors.New("account not found")

	// ErrValidation is returned for an invalid title, an account type
	// outside the fixed set, a negative amount, or a debit against a LOAN
	// or MORTGAGE account.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds is returned when a debit would drive the
	// available balance negative. The overdraft limit is deliberately not
	// consulted on this path.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// IsClientError reports whether the error is the caller's fault rather
// than a store or infrastructure failure. The unit of work is rolled back
// and the condition reported; the process keeps running.
func IsClientError(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientFunds)
}
