// Package cart holds the in-memory line items for one terminal session.
// Quantities merge on repeated adds, the total is recomputed on every
// mutation, and lines with a malformed product identity are purged before
// they can reach the transaction engine.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"accrapos/internal/domain"
	"accrapos/internal/store"
)

// StockReader re-fetches authoritative stock for quantity changes. The
// snapshot carried on a line is advisory only.
type StockReader interface {
	GetProductStock(ctx context.Context, id domain.ProductID) (int, error)
}

type Cart struct {
	mu    sync.Mutex
	lines []domain.CartLine
	total decimal.Decimal
}

func New() *Cart {
	return &Cart{total: decimal.Zero}
}

// Add merges the product into the cart: an existing line gains one unit, a
// new product starts at quantity 1. The product's identity and stock snapshot
// are checked before the cart changes; on error the cart is untouched.
func (c *Cart) Add(product domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !product.ID.Valid() {
		return domain.ErrInvalidIdentity
	}
	if product.StockQuantity <= 0 {
		return domain.ErrOutOfStock
	}
	for i := range c.lines {
		if c.lines[i].ProductID == product.ID {
			if c.lines[i].Quantity+1 > c.lines[i].LastKnownStock {
				return &domain.StockExceededError{
					ProductID:  product.ID,
					Name:       c.lines[i].Name,
					MaxAllowed: c.lines[i].LastKnownStock,
					Requested:  c.lines[i].Quantity + 1,
				}
			}
			c.lines[i].Quantity++
			c.recompute()
			return nil
		}
	}
	c.lines = append(c.lines, domain.CartLine{
		ProductID:      product.ID,
		Barcode:        product.Barcode,
		Name:           product.Name,
		UnitPrice:      product.RetailPrice,
		Quantity:       1,
		LastKnownStock: product.StockQuantity,
	})
	c.recompute()
	return nil
}

// Remove drops the whole line regardless of quantity.
func (c *Cart) Remove(id domain.ProductID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == id {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			c.recompute()
			return
		}
	}
}

// ChangeQuantity applies a delta, flooring at 1. Increases are validated
// against a fresh stock read, not the line snapshot; the fresh figure also
// replaces the snapshot on success.
func (c *Cart) ChangeQuantity(ctx context.Context, id domain.ProductID, delta int, stocks StockReader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID != id {
			continue
		}
		next := c.lines[i].Quantity + delta
		if next < 1 {
			next = 1
		}
		if next > c.lines[i].Quantity {
			available, err := stocks.GetProductStock(ctx, id)
			if err != nil {
				return err
			}
			if next > available {
				return &domain.StockExceededError{
					ProductID:  id,
					Name:       c.lines[i].Name,
					MaxAllowed: available,
					Requested:  next,
				}
			}
			c.lines[i].LastKnownStock = available
		}
		c.lines[i].Quantity = next
		c.recompute()
		return nil
	}
	return fmt.Errorf("product %s not in cart: %w", id, store.ErrNotFound)
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.total = decimal.Zero
}

func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Lines returns a snapshot copy after the integrity sweep.
func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// recompute runs the integrity sweep and refreshes the total. Callers hold
// the mutex.
func (c *Cart) recompute() {
	kept := c.lines[:0]
	for _, line := range c.lines {
		if !line.ProductID.Valid() {
			continue
		}
		kept = append(kept, line)
	}
	c.lines = kept

	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.LineTotal())
	}
	c.total = domain.RoundGHS(total)
}
