package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"accrapos/internal/domain"
	"accrapos/internal/store"
)

type staticStocks map[domain.ProductID]int

func (s staticStocks) GetProductStock(_ context.Context, id domain.ProductID) (int, error) {
	stock, ok := s[id]
	if !ok {
		return 0, errors.New("unknown product")
	}
	return stock, nil
}

func sampleProduct(id int64, price string, stock int) domain.Product {
	return domain.Product{
		ID:            domain.ProductID(id),
		Barcode:       "123456789",
		Name:          "Test Product",
		RetailPrice:   decimal.RequireFromString(price),
		StockQuantity: stock,
	}
}

func TestAddMergesRepeatedScans(t *testing.T) {
	c := New()
	p := sampleProduct(1, "5.00", 10)

	for i := 0; i < 3; i++ {
		if err := c.Add(p); err != nil {
			t.Fatalf("Add #%d: %v", i+1, err)
		}
	}

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("want 1 merged line, got %d", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Fatalf("want quantity 3, got %d", lines[0].Quantity)
	}
	if !c.Total().Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("total = %s, want 15.00", c.Total())
	}
}

func TestAddRejectsInvalidIdentityAndOutOfStock(t *testing.T) {
	c := New()

	if err := c.Add(sampleProduct(0, "5.00", 10)); !errors.Is(err, domain.ErrInvalidIdentity) {
		t.Fatalf("want ErrInvalidIdentity, got %v", err)
	}
	if err := c.Add(sampleProduct(1, "5.00", 0)); !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("want ErrOutOfStock, got %v", err)
	}
	if !c.Empty() {
		t.Fatal("cart must stay empty after rejected adds")
	}
}

func TestAddStopsAtKnownStock(t *testing.T) {
	c := New()
	p := sampleProduct(1, "5.00", 2)

	if err := c.Add(p); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Add(p); err != nil {
		t.Fatalf("Add: %v", err)
	}

	err := c.Add(p)
	var exceeded *domain.StockExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("want StockExceededError, got %v", err)
	}
	if exceeded.MaxAllowed != 2 || exceeded.Requested != 3 {
		t.Fatalf("want max 2 requested 3, got max %d requested %d", exceeded.MaxAllowed, exceeded.Requested)
	}
	if got := c.Lines()[0].Quantity; got != 2 {
		t.Fatalf("quantity moved to %d after rejected add", got)
	}
}

func TestChangeQuantityUsesFreshStock(t *testing.T) {
	c := New()
	// Snapshot says 2 units; the store has since restocked to 10.
	if err := c.Add(sampleProduct(1, "5.00", 2)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Add(sampleProduct(1, "5.00", 2)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	stocks := staticStocks{1: 10}
	if err := c.ChangeQuantity(context.Background(), 1, +5, stocks); err != nil {
		t.Fatalf("ChangeQuantity: %v", err)
	}
	line := c.Lines()[0]
	if line.Quantity != 7 {
		t.Fatalf("want quantity 7, got %d", line.Quantity)
	}
	if line.LastKnownStock != 10 {
		t.Fatalf("snapshot not refreshed: %d", line.LastKnownStock)
	}
}

func TestChangeQuantityRejectsBeyondFreshStock(t *testing.T) {
	c := New()
	if err := c.Add(sampleProduct(1, "5.00", 10)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// The store has meanwhile sold down to 1 unit.
	err := c.ChangeQuantity(context.Background(), 1, +4, staticStocks{1: 1})
	var exceeded *domain.StockExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("want StockExceededError, got %v", err)
	}
	if exceeded.MaxAllowed != 1 {
		t.Fatalf("max allowed should reflect the fresh read, got %d", exceeded.MaxAllowed)
	}
}

func TestChangeQuantityFloorsAtOne(t *testing.T) {
	c := New()
	if err := c.Add(sampleProduct(1, "5.00", 10)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := c.ChangeQuantity(context.Background(), 1, -5, staticStocks{1: 10}); err != nil {
		t.Fatalf("ChangeQuantity: %v", err)
	}
	if got := c.Lines()[0].Quantity; got != 1 {
		t.Fatalf("want floor quantity 1, got %d", got)
	}
}

func TestRemoveDropsWholeLine(t *testing.T) {
	c := New()
	a := sampleProduct(1, "5.00", 10)
	b := sampleProduct(2, "3.00", 10)
	if err := c.Add(a); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Add(a); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Add(b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	c.Remove(1)
	lines := c.Lines()
	if len(lines) != 1 || lines[0].ProductID != 2 {
		t.Fatalf("unexpected lines after remove: %+v", lines)
	}
	if !c.Total().Equal(decimal.RequireFromString("3.00")) {
		t.Fatalf("total = %s, want 3.00", c.Total())
	}
}

func TestTotalRecomputedEagerly(t *testing.T) {
	c := New()
	if err := c.Add(sampleProduct(1, "12.50", 10)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !c.Total().Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("total after add = %s", c.Total())
	}
	if err := c.ChangeQuantity(context.Background(), 1, +2, staticStocks{1: 10}); err != nil {
		t.Fatalf("ChangeQuantity: %v", err)
	}
	if !c.Total().Equal(decimal.RequireFromString("37.50")) {
		t.Fatalf("total after change = %s", c.Total())
	}
	c.Clear()
	if !c.Total().IsZero() || !c.Empty() {
		t.Fatal("clear must reset lines and total")
	}
}

func TestChangeQuantityUnknownLineIsNotFound(t *testing.T) {
	c := New()
	if err := c.Add(sampleProduct(1, "5.00", 10)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	err := c.ChangeQuantity(context.Background(), 99, +1, staticStocks{99: 10})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound for a product not in the cart, got %v", err)
	}
	if got := c.Lines()[0].Quantity; got != 1 {
		t.Fatalf("existing line quantity = %d, want 1", got)
	}
}
