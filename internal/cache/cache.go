package cache

import (
	"context"
	"time"

	"accrapos/internal/domain"
)

// SuggestionCache holds recent product name-search results so the debounced
// live search does not hammer the store on every keystroke.
type SuggestionCache interface {
	Get(ctx context.Context, key string) ([]domain.Product, bool, error)
	Set(ctx context.Context, key string, products []domain.Product, ttl time.Duration) error
}

type NoopSuggestionCache struct{}

func (NoopSuggestionCache) Get(_ context.Context, _ string) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopSuggestionCache) Set(_ context.Context, _ string, _ []domain.Product, _ time.Duration) error {
	return nil
}
