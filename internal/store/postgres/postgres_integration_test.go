package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"accrapos/internal/domain"
)

// newIntegrationStore connects to the database named by
// ACCRAPOS_TEST_DATABASE_URL or skips the test.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("ACCRAPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set ACCRAPOS_TEST_DATABASE_URL to run postgres integration tests")
	}

	s, err := New(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedIntegrationProduct(t *testing.T, s *Store, stock int) *domain.Product {
	t.Helper()
	ctx := context.Background()
	barcode := fmt.Sprintf("it-%d", time.Now().UnixNano())

	product, err := s.CreateProduct(ctx, domain.ProductCreateRequest{
		Barcode:      barcode,
		Name:         "Integration Item " + barcode,
		Category:     "test",
		RetailPrice:  decimal.RequireFromString("9.50"),
		CostPrice:    decimal.RequireFromString("7.00"),
		InitialStock: stock,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE product_id = $1`, product.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
	})
	return product
}

func integrationSaleInput(product *domain.Product, qty int) domain.SaleInput {
	total := domain.RoundGHS(product.RetailPrice.Mul(decimal.NewFromInt(int64(qty))))
	return domain.SaleInput{
		CashierID:     "integration",
		PaymentMethod: domain.PaymentCash,
		Subtotal:      total,
		Total:         total,
		AmountPaid:    total,
		Lines: []domain.SaleLineInput{
			{ProductID: product.ID, Name: product.Name, Quantity: qty, UnitPrice: product.RetailPrice},
		},
	}
}

func TestCreateSaleDecrementsStockAtomically(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	product := seedIntegrationProduct(t, s, 10)

	committed, err := s.CreateSale(ctx, integrationSaleInput(product, 3))
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, committed.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, committed.ID)
	})

	stock, err := s.GetProductStock(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProductStock: %v", err)
	}
	if stock != 7 {
		t.Fatalf("stock = %d, want 7", stock)
	}

	fetched, err := s.GetSaleByID(ctx, committed.ID)
	if err != nil {
		t.Fatalf("GetSaleByID: %v", err)
	}
	if len(fetched.Lines) != 1 || fetched.Lines[0].Quantity != 3 {
		t.Fatalf("sale lines: %+v", fetched.Lines)
	}
}

func TestCreateSaleLastUnitRace(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	product := seedIntegrationProduct(t, s, 1)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	saleIDs := make(chan string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			committed, err := s.CreateSale(ctx, integrationSaleInput(product, 1))
			if err == nil {
				saleIDs <- committed.ID
			}
			results <- err
		}()
	}
	wg.Wait()
	close(results)
	close(saleIDs)

	for id := range saleIDs {
		t.Cleanup(func() {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, id)
			_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
		})
	}

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
		failed++
	}
	if succeeded != 1 || failed != 1 {
		t.Fatalf("race outcome: %d succeeded, %d failed", succeeded, failed)
	}

	stock, err := s.GetProductStock(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProductStock: %v", err)
	}
	if stock != 0 {
		t.Fatalf("stock after race = %d, want 0", stock)
	}
}
