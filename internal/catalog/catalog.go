// Package catalog resolves scanned codes and typed fragments to products. A
// hardware scanner emits a fast alphanumeric burst ending in Enter; a human
// types slower and wants incremental name search. The classification between
// the two lives in one named predicate so its thresholds stay testable.
package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"accrapos/internal/cache"
	"accrapos/internal/domain"
	"accrapos/internal/store"
)

const (
	// PassiveScanMinLength classifies input while it is still being typed;
	// the higher bar keeps short name fragments flowing to name search.
	PassiveScanMinLength = 8
	// ConfirmScanMinLength applies when the operator presses Enter.
	ConfirmScanMinLength = 3

	DefaultSearchLimit = 10
)

// ProductFinder is the slice of the store the lookup needs.
type ProductFinder interface {
	GetProductByCode(ctx context.Context, barcode string) (*domain.Product, error)
	SearchProductsByName(ctx context.Context, fragment string, limit int) ([]domain.Product, error)
}

// IsBarcodeShaped reports whether input looks like a scanned code: letters
// and digits only, no whitespace, at least minLen characters. A digits-only
// product name longer than the threshold still classifies as a code; the
// resolver's name-search fallback covers that ambiguity.
func IsBarcodeShaped(input string, minLen int) bool {
	if len(input) < minLen {
		return false
	}
	for _, r := range input {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

type Lookup struct {
	finder   ProductFinder
	cache    cache.SuggestionCache
	cacheTTL time.Duration
}

func NewLookup(finder ProductFinder, suggestionCache cache.SuggestionCache, cacheTTL time.Duration) *Lookup {
	if suggestionCache == nil {
		suggestionCache = cache.NoopSuggestionCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Lookup{finder: finder, cache: suggestionCache, cacheTTL: cacheTTL}
}

// Resolve maps operator input to products. Barcode-shaped input tries the
// exact code path first and falls back to name search on a miss; everything
// else goes straight to name search. minLen selects the passive or
// confirm-on-enter threshold.
func (l *Lookup) Resolve(ctx context.Context, input string, minLen int, limit int) ([]domain.Product, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	if IsBarcodeShaped(input, minLen) {
		product, err := l.finder.GetProductByCode(ctx, input)
		if err == nil {
			return []domain.Product{*product}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return l.Search(ctx, input, limit)
}

// Search is the cache-aside name search used for live suggestions.
func (l *Lookup) Search(ctx context.Context, fragment string, limit int) ([]domain.Product, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	key := suggestionKey(fragment, limit)
	if cached, ok, err := l.cache.Get(ctx, key); err == nil && ok {
		return cached, nil
	}

	products, err := l.finder.SearchProductsByName(ctx, fragment, limit)
	if err != nil {
		return nil, err
	}
	_ = l.cache.Set(ctx, key, products, l.cacheTTL)
	return products, nil
}

func suggestionKey(fragment string, limit int) string {
	h := sha1.Sum([]byte(strings.ToLower(fragment)))
	return "accrapos:suggest:" + hex.EncodeToString(h[:8]) + ":" + strconv.Itoa(limit)
}
