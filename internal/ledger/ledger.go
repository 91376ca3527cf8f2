// Package ledger is the read-only credit projection: live balance and limit
// for a customer plus their open credit sales. Balance mutation never happens
// here; it flows through the sale engine or a recorded customer payment.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"accrapos/internal/domain"
	"accrapos/internal/store"
)

type View struct {
	repo store.Repository
}

func NewView(repo store.Repository) *View {
	return &View{repo: repo}
}

// CreditStanding is what the credit-sale selector shows for a customer.
type CreditStanding struct {
	Customer  domain.Customer `json:"customer"`
	Available decimal.Decimal `json:"available_credit"`
}

func (v *View) StandingFor(ctx context.Context, customerID domain.CustomerID) (*CreditStanding, error) {
	customer, err := v.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	available := customer.CreditLimit.Sub(customer.OutstandingBalance)
	if available.IsNegative() {
		available = decimal.Zero
	}
	return &CreditStanding{Customer: *customer, Available: available}, nil
}

// OpenCreditSalesFor lists the customer's sales that still carry a balance
// due, newest first, so a payment can be earmarked against a specific sale.
func (v *View) OpenCreditSalesFor(ctx context.Context, customerID domain.CustomerID) ([]domain.OpenCreditSale, error) {
	if !customerID.Valid() {
		return nil, domain.ErrInvalidIdentity
	}
	return v.repo.ListOpenCreditSales(ctx, customerID)
}
