// Package sale turns a validated cart snapshot plus a payment plan into a
// committed sale through the store's single atomic write.
package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"accrapos/internal/domain"
	"accrapos/internal/store"
)

const DefaultCommitTimeout = 10 * time.Second

// Engine validates and commits sales. Validation is fail-fast and ordered:
// empty cart, line identities, per-line stock re-read, credit check, split
// sum, cash tender. Only after every check passes does the write run, and the
// write itself re-verifies stock and credit inside the store transaction.
type Engine struct {
	repo          store.Repository
	commitTimeout time.Duration
}

func NewEngine(repo store.Repository, commitTimeout time.Duration) *Engine {
	if commitTimeout <= 0 {
		commitTimeout = DefaultCommitTimeout
	}
	return &Engine{repo: repo, commitTimeout: commitTimeout}
}

// Commit is not blindly retryable: each call that reaches the write stage
// produces a new sale. Callers keep one user action mapped to one call and,
// after a CommitFailedError, reconcile with a fresh read before retrying.
func (e *Engine) Commit(ctx context.Context, lines []domain.CartLine, plan domain.PaymentPlan, cashierID string) (*domain.Sale, error) {
	if len(lines) == 0 {
		return nil, domain.ErrCartEmpty
	}

	for _, line := range lines {
		if !line.ProductID.Valid() {
			return nil, fmt.Errorf("line %q: %w", line.Name, domain.ErrInvalidIdentity)
		}
		if line.Quantity < 1 {
			return nil, fmt.Errorf("line %q has quantity %d: %w", line.Name, line.Quantity, store.ErrInvalidInput)
		}
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	total = domain.RoundGHS(total)

	// The cart's stock figures are a stale snapshot; another terminal may
	// have sold the same units since. Always re-read.
	for _, line := range lines {
		available, err := e.repo.GetProductStock(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("product %s: %w", line.ProductID, store.ErrNotFound)
			}
			return nil, err
		}
		if available < line.Quantity {
			return nil, &domain.InsufficientStockError{
				ProductID: line.ProductID,
				Name:      line.Name,
				Available: available,
				Requested: line.Quantity,
			}
		}
	}

	input := domain.SaleInput{
		CashierID:     cashierID,
		PaymentMethod: plan.Method,
		Subtotal:      total,
		Discount:      decimal.Zero,
		Tax:           decimal.Zero,
		Total:         total,
		AmountPaid:    total,
		Lines:         saleLines(lines),
	}

	switch plan.Method {
	case domain.PaymentCredit:
		if plan.CustomerID == nil || !plan.CustomerID.Valid() {
			return nil, fmt.Errorf("credit sale requires a customer: %w", domain.ErrInvalidPayment)
		}
		customer, err := e.repo.GetCustomer(ctx, *plan.CustomerID)
		if err != nil {
			return nil, err
		}
		if err := CheckCredit(customer, total); err != nil {
			return nil, err
		}
		input.CustomerID = plan.CustomerID
		input.IsCredit = true
		input.AmountPaid = decimal.Zero
		input.BalanceDue = total

	case domain.PaymentSplit:
		if len(plan.Splits) < 2 {
			return nil, fmt.Errorf("split payment needs at least two parts: %w", domain.ErrInvalidPayment)
		}
		for _, part := range plan.Splits {
			if !isSettlementMethod(part.Method) {
				return nil, fmt.Errorf("split part method %q: %w", part.Method, domain.ErrInvalidPayment)
			}
			if !part.Amount.IsPositive() {
				return nil, fmt.Errorf("split part amount must be positive: %w", domain.ErrInvalidPayment)
			}
		}
		if sum := domain.SumSplits(plan.Splits); !sum.Equal(total) {
			return nil, &domain.SplitPaymentMismatchError{Expected: total, Actual: sum}
		}
		input.Splits = plan.Splits

	case domain.PaymentCash:
		tendered := domain.RoundGHS(plan.AmountTendered)
		if tendered.LessThan(total) {
			return nil, fmt.Errorf("tendered %s is below total %s: %w",
				domain.FormatGHS(tendered), domain.FormatGHS(total), domain.ErrInvalidPayment)
		}
		input.AmountTendered = tendered
		input.ChangeAmount = tendered.Sub(total)

	case domain.PaymentCard, domain.PaymentMobileMoney:
		// Settled externally at full amount; nothing extra to validate.

	default:
		return nil, fmt.Errorf("payment method %q: %w", plan.Method, domain.ErrInvalidPayment)
	}

	commitCtx, cancel := context.WithTimeout(ctx, e.commitTimeout)
	defer cancel()

	committed, err := e.repo.CreateSale(commitCtx, input)
	if err != nil {
		var insufficient *domain.InsufficientStockError
		var credit *domain.CreditLimitExceededError
		if errors.As(err, &insufficient) || errors.As(err, &credit) {
			return nil, err
		}
		return nil, &domain.CommitFailedError{Err: err}
	}
	return committed, nil
}

// CheckCredit enforces the credit policy: a zero limit blocks all credit, and
// any positive limit is strict. The error carries the available-credit figure
// for operator feedback.
func CheckCredit(customer *domain.Customer, total decimal.Decimal) error {
	available := customer.CreditLimit.Sub(customer.OutstandingBalance)
	if available.IsNegative() {
		available = decimal.Zero
	}
	if customer.CreditLimit.IsZero() || customer.OutstandingBalance.Add(total).GreaterThan(customer.CreditLimit) {
		return &domain.CreditLimitExceededError{
			CustomerID: customer.ID,
			Limit:      customer.CreditLimit,
			Balance:    customer.OutstandingBalance,
			Available:  available,
			Requested:  total,
		}
	}
	return nil
}

func saleLines(lines []domain.CartLine) []domain.SaleLineInput {
	out := make([]domain.SaleLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, domain.SaleLineInput{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return out
}

func isSettlementMethod(method string) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentMobileMoney:
		return true
	}
	return false
}
