package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidIdentity = errors.New("invalid identity")
	ErrCartEmpty       = errors.New("cart is empty")
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrInvalidPayment  = errors.New("invalid payment")
)

// StockExceededError is raised by cart mutations that would push a line past
// the known stock. MaxAllowed tells the operator the highest quantity that
// would have been accepted.
type StockExceededError struct {
	ProductID  ProductID
	Name       string
	MaxAllowed int
	Requested  int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("stock exceeded for %s: max allowed %d, requested %d", e.Name, e.MaxAllowed, e.Requested)
}

// InsufficientStockError is the commit-time variant, raised when the
// authoritative re-read (or the conditional decrement inside the atomic
// write) finds less stock than the cart requests.
type InsufficientStockError struct {
	ProductID ProductID
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.Name, e.Available, e.Requested)
}

type CreditLimitExceededError struct {
	CustomerID CustomerID
	Limit      decimal.Decimal
	Balance    decimal.Decimal
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *CreditLimitExceededError) Error() string {
	return fmt.Sprintf("credit limit exceeded for customer %s: available %s, requested %s",
		e.CustomerID, FormatGHS(e.Available), FormatGHS(e.Requested))
}

type SplitPaymentMismatchError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *SplitPaymentMismatchError) Error() string {
	return fmt.Sprintf("split payments sum to %s, cart total is %s", FormatGHS(e.Actual), FormatGHS(e.Expected))
}

// CommitFailedError wraps a failure of the atomic write itself. The caller
// must not assume the sale did not land; reconcile with a fresh read before
// retrying.
type CommitFailedError struct {
	Err error
}

func (e *CommitFailedError) Error() string {
	return fmt.Sprintf("sale commit failed: %v", e.Err)
}

func (e *CommitFailedError) Unwrap() error { return e.Err }
