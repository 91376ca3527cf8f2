package sale

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"accrapos/internal/domain"
	"accrapos/internal/store/memory"
)

func ghs(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "test-admin-pass")
	t.Setenv("SEED_CASHIER_PASSWORD", "test-cashier-pass")
	repo := memory.NewSeeded()
	return NewEngine(repo, time.Second), repo
}

func cartLines(t *testing.T, repo *memory.Store, quantities map[int64]int) []domain.CartLine {
	t.Helper()
	lines := make([]domain.CartLine, 0, len(quantities))
	for rawID, qty := range quantities {
		product, err := repo.GetProductByID(context.Background(), domain.ProductID(rawID))
		if err != nil {
			t.Fatalf("seed product %d missing: %v", rawID, err)
		}
		lines = append(lines, domain.CartLine{
			ProductID:      product.ID,
			Barcode:        product.Barcode,
			Name:           product.Name,
			UnitPrice:      product.RetailPrice,
			Quantity:       qty,
			LastKnownStock: product.StockQuantity,
		})
	}
	return lines
}

// Seed product 2 sells at 7.00, so five units total 35.00.

func TestCommitCashComputesChange(t *testing.T) {
	engine, repo := newTestEngine(t)
	lines := cartLines(t, repo, map[int64]int{2: 5}) // total 35.00
	lines[0].UnitPrice = ghs("7.50")                 // make the total the round 37.50

	sale, err := engine.Commit(context.Background(), lines, domain.PaymentPlan{
		Method:         domain.PaymentCash,
		AmountTendered: ghs("50.00"),
	}, "cashier")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !sale.Total.Equal(ghs("37.50")) {
		t.Fatalf("total = %s, want 37.50", sale.Total)
	}
	if !sale.ChangeAmount.Equal(ghs("12.50")) {
		t.Fatalf("change = %s, want 12.50", sale.ChangeAmount)
	}

	stock, err := repo.GetProductStock(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetProductStock: %v", err)
	}
	if stock != 115 {
		t.Fatalf("stock after sale = %d, want 115", stock)
	}
}

func TestCommitCashRejectsShortTender(t *testing.T) {
	engine, repo := newTestEngine(t)
	lines := cartLines(t, repo, map[int64]int{2: 5})
	lines[0].UnitPrice = ghs("7.50")

	_, err := engine.Commit(context.Background(), lines, domain.PaymentPlan{
		Method:         domain.PaymentCash,
		AmountTendered: ghs("30.00"),
	}, "cashier")
	if !errors.Is(err, domain.ErrInvalidPayment) {
		t.Fatalf("want ErrInvalidPayment, got %v", err)
	}

	// Rejection happens before the write: stock untouched.
	stock, _ := repo.GetProductStock(context.Background(), 2)
	if stock != 120 {
		t.Fatalf("stock = %d after rejected tender, want 120", stock)
	}
}

func TestCommitEmptyCart(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.Commit(context.Background(), nil, domain.PaymentPlan{Method: domain.PaymentCash}, "cashier")
	if !errors.Is(err, domain.ErrCartEmpty) {
		t.Fatalf("want ErrCartEmpty, got %v", err)
	}
}

func TestCommitRejectsInvalidLineIdentity(t *testing.T) {
	engine, repo := newTestEngine(t)
	lines := cartLines(t, repo, map[int64]int{2: 1})
	lines = append(lines, domain.CartLine{ProductID: 0, Name: "ghost", UnitPrice: ghs("1.00"), Quantity: 1})

	_, err := engine.Commit(context.Background(), lines, domain.PaymentPlan{
		Method:         domain.PaymentCash,
		AmountTendered: ghs("100.00"),
	}, "cashier")
	if !errors.Is(err, domain.ErrInvalidIdentity) {
		t.Fatalf("want ErrInvalidIdentity, got %v", err)
	}
}

func TestCommitSplitExactSum(t *testing.T) {
	engine, repo := newTestEngine(t)
	lines := cartLines(t, repo, map[int64]int{2: 5})
	lines[0].UnitPrice = ghs("7.50") // total 37.50

	plan := domain.PaymentPlan{
		Method: domain.PaymentSplit,
		Splits: []domain.SplitPart{
			{Method: domain.PaymentCash, Amount: ghs("20.00")},
			{Method: domain.PaymentMobileMoney, Amount: ghs("17.50")},
		},
	}
	sale, err := engine.Commit(context.Background(), lines, plan, "cashier")
	if err != nil {
		t.Fatalf("Commit split: %v", err)
	}
	if len(sale.Splits) != 2 {
		t.Fatalf("splits not recorded: %+v", sale.Splits)
	}
}

func TestCommitSplitOffByOnePesewa(t *testing.T) {
	engine, repo := newTestEngine(t)
	lines := cartLines(t, repo, map[int64]int{2: 5})
	lines[0].UnitPrice = ghs("7.50") // total 37.50

	plan := domain.PaymentPlan{
		Method: domain.PaymentSplit,
		Splits: []domain.SplitPart{
			{Method: domain.PaymentCash, Amount: ghs("20.00")},
			{Method: domain.PaymentMobileMoney, Amount: ghs("17.49")},
		},
	}
	_, err := engine.Commit(context.Background(), lines, plan, "cashier")
	var mismatch *domain.SplitPaymentMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("want SplitPaymentMismatchError, got %v", err)
	}
	if !mismatch.Expected.Equal(ghs("37.50")) || !mismatch.Actual.Equal(ghs("37.49")) {
		t.Fatalf("mismatch figures: expected %s actual %s", mismatch.Expected, mismatch.Actual)
	}

	stock, _ := repo.GetProductStock(context.Background(), 2)
	if stock != 120 {
		t.Fatalf("stock = %d after rejected split, want 120", stock)
	}
}

func TestCommitSplitRejectsCreditPart(t *testing.T) {
	engine, repo := newTestEngine(t)
	lines := cartLines(t, repo, map[int64]int{2: 1})

	plan := domain.PaymentPlan{
		Method: domain.PaymentSplit,
		Splits: []domain.SplitPart{
			{Method: domain.PaymentCash, Amount: ghs("3.00")},
			{Method: domain.PaymentCredit, Amount: ghs("4.00")},
		},
	}
	if _, err := engine.Commit(context.Background(), lines, plan, "cashier"); !errors.Is(err, domain.ErrInvalidPayment) {
		t.Fatalf("want ErrInvalidPayment for credit split part, got %v", err)
	}
}

func TestCommitCreditWithinLimit(t *testing.T) {
	engine, repo := newTestEngine(t)
	customerID := domain.CustomerID(1) // Ama Mensah, limit 100.00

	// Push her balance to 80.00 first.
	seedCreditSale(t, engine, repo, customerID, "80.00")

	// Total 15.00 fits: 80 + 15 <= 100.
	lines := cartLines(t, repo, map[int64]int{6: 5}) // 5 x 3.00 Milo
	sale, err := engine.Commit(context.Background(), lines, domain.PaymentPlan{
		Method:     domain.PaymentCredit,
		CustomerID: &customerID,
	}, "cashier")
	if err != nil {
		t.Fatalf("Commit credit: %v", err)
	}
	if !sale.IsCredit || !sale.BalanceDue.Equal(ghs("15.00")) || !sale.AmountPaid.IsZero() {
		t.Fatalf("credit fields wrong: %+v", sale)
	}

	customer, err := repo.GetCustomer(context.Background(), customerID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if !customer.OutstandingBalance.Equal(ghs("95.00")) {
		t.Fatalf("balance = %s, want 95.00", customer.OutstandingBalance)
	}
}

func TestCommitCreditOverLimit(t *testing.T) {
	engine, repo := newTestEngine(t)
	customerID := domain.CustomerID(1)
	seedCreditSale(t, engine, repo, customerID, "80.00")

	// Total 25.00 does not fit: 80 + 25 > 100.
	lines := cartLines(t, repo, map[int64]int{2: 5})
	lines[0].UnitPrice = ghs("5.00") // 25.00
	_, err := engine.Commit(context.Background(), lines, domain.PaymentPlan{
		Method:     domain.PaymentCredit,
		CustomerID: &customerID,
	}, "cashier")

	var credit *domain.CreditLimitExceededError
	if !errors.As(err, &credit) {
		t.Fatalf("want CreditLimitExceededError, got %v", err)
	}
	if !credit.Available.Equal(ghs("20.00")) {
		t.Fatalf("available = %s, want 20.00", credit.Available)
	}
	if domain.FormatGHS(credit.Available) != "GHS 20.00" {
		t.Fatalf("formatted available = %q", domain.FormatGHS(credit.Available))
	}

	customer, _ := repo.GetCustomer(context.Background(), customerID)
	if !customer.OutstandingBalance.Equal(ghs("80.00")) {
		t.Fatalf("balance moved to %s on rejected credit sale", customer.OutstandingBalance)
	}
}

func TestCommitCreditZeroLimitBlocked(t *testing.T) {
	engine, repo := newTestEngine(t)
	customerID := domain.CustomerID(2) // Kofi Boateng, limit 0

	lines := cartLines(t, repo, map[int64]int{6: 1}) // 3.00
	_, err := engine.Commit(context.Background(), lines, domain.PaymentPlan{
		Method:     domain.PaymentCredit,
		CustomerID: &customerID,
	}, "cashier")
	var credit *domain.CreditLimitExceededError
	if !errors.As(err, &credit) {
		t.Fatalf("zero-limit customer must be blocked, got %v", err)
	}
}

func TestCommitCreditRequiresCustomer(t *testing.T) {
	engine, repo := newTestEngine(t)
	lines := cartLines(t, repo, map[int64]int{6: 1})
	if _, err := engine.Commit(context.Background(), lines, domain.PaymentPlan{Method: domain.PaymentCredit}, "cashier"); !errors.Is(err, domain.ErrInvalidPayment) {
		t.Fatalf("want ErrInvalidPayment, got %v", err)
	}
}

func TestCommitStaleCartStockRejected(t *testing.T) {
	engine, repo := newTestEngine(t)
	lines := cartLines(t, repo, map[int64]int{3: 2})

	// Another terminal drains the stock after the cart snapshot.
	one := 1
	if _, err := repo.UpdateProduct(context.Background(), 3, domain.ProductUpdateRequest{StockQuantity: &one}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	_, err := engine.Commit(context.Background(), lines, domain.PaymentPlan{
		Method:         domain.PaymentCash,
		AmountTendered: ghs("100.00"),
	}, "cashier")
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 1 || insufficient.Requested != 2 {
		t.Fatalf("figures: available %d requested %d", insufficient.Available, insufficient.Requested)
	}
}

func TestCommitAllOrNothing(t *testing.T) {
	engine, repo := newTestEngine(t)
	// Two lines; the second one requests more than is in stock, so the first
	// line's decrement must not survive.
	lines := cartLines(t, repo, map[int64]int{2: 1, 3: 2})
	one := 1
	if _, err := repo.UpdateProduct(context.Background(), 3, domain.ProductUpdateRequest{StockQuantity: &one}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	_, err := engine.Commit(context.Background(), lines, domain.PaymentPlan{
		Method:         domain.PaymentCash,
		AmountTendered: ghs("100.00"),
	}, "cashier")
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}

	stock2, _ := repo.GetProductStock(context.Background(), 2)
	if stock2 != 120 {
		t.Fatalf("sibling line decremented on failed sale: stock %d", stock2)
	}
}

func TestCommitLastUnitRace(t *testing.T) {
	engine, repo := newTestEngine(t)
	one := 1
	if _, err := repo.UpdateProduct(context.Background(), 7, domain.ProductUpdateRequest{StockQuantity: &one}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	lines := cartLines(t, repo, map[int64]int{7: 1})
	plan := domain.PaymentPlan{Method: domain.PaymentCash, AmountTendered: ghs("100.00")}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Copy the line so the goroutines do not share a slice.
			own := append([]domain.CartLine(nil), lines...)
			_, err := engine.Commit(context.Background(), own, plan, "cashier")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var insufficient *domain.InsufficientStockError
		if !errors.As(err, &insufficient) {
			t.Fatalf("loser got %v, want InsufficientStockError", err)
		}
		if insufficient.Available != 0 {
			t.Fatalf("loser available = %d, want 0", insufficient.Available)
		}
		failed++
	}
	if succeeded != 1 || failed != 1 {
		t.Fatalf("race outcome: %d succeeded, %d failed", succeeded, failed)
	}

	stock, _ := repo.GetProductStock(context.Background(), 7)
	if stock != 0 {
		t.Fatalf("stock after race = %d, want 0", stock)
	}
}

func TestCommitUnknownMethod(t *testing.T) {
	engine, repo := newTestEngine(t)
	lines := cartLines(t, repo, map[int64]int{6: 1})
	if _, err := engine.Commit(context.Background(), lines, domain.PaymentPlan{Method: "cheque"}, "cashier"); !errors.Is(err, domain.ErrInvalidPayment) {
		t.Fatalf("want ErrInvalidPayment, got %v", err)
	}
}

// seedCreditSale commits a credit sale that leaves the customer owing amount.
func seedCreditSale(t *testing.T, engine *Engine, repo *memory.Store, customerID domain.CustomerID, amount string) {
	t.Helper()
	lines := cartLines(t, repo, map[int64]int{8: 1})
	lines[0].UnitPrice = ghs(amount)
	if _, err := engine.Commit(context.Background(), lines, domain.PaymentPlan{
		Method:     domain.PaymentCredit,
		CustomerID: &customerID,
	}, "cashier"); err != nil {
		t.Fatalf("seed credit sale: %v", err)
	}
}
