package catalog

import (
	"context"
	"sync"
	"time"

	"accrapos/internal/domain"
)

const DefaultDebounce = 300 * time.Millisecond

// SearchResult is delivered to the Searcher callback for the winning request.
type SearchResult struct {
	Fragment string
	Products []domain.Product
	Err      error
}

// Searcher debounces live name search. Each Type call supersedes the one
// before it: the previous in-flight request is cancelled, and a response is
// delivered only if its generation is still current, so a slow early response
// can never overwrite results for newer input.
type Searcher struct {
	lookup   *Lookup
	debounce time.Duration
	limit    int

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

func NewSearcher(lookup *Lookup, debounce time.Duration, limit int) *Searcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &Searcher{lookup: lookup, debounce: debounce, limit: limit}
}

// Type registers a keystroke's worth of input. After the debounce window the
// search runs and deliver is invoked, unless a newer Type call superseded
// this one first. deliver runs on the searcher's goroutine.
func (s *Searcher) Type(ctx context.Context, fragment string, deliver func(SearchResult)) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	searchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()

		timer := time.NewTimer(s.debounce)
		defer timer.Stop()
		select {
		case <-searchCtx.Done():
			return
		case <-timer.C:
		}

		products, err := s.lookup.Search(searchCtx, fragment, s.limit)

		s.mu.Lock()
		current := s.generation == gen
		s.mu.Unlock()
		if !current || searchCtx.Err() != nil {
			return
		}
		deliver(SearchResult{Fragment: fragment, Products: products, Err: err})
	}()
}

// Flush cancels any pending debounce and runs the search immediately, the
// confirm-on-enter path. It still participates in generation ordering so a
// later Type call wins over an earlier Flush.
func (s *Searcher) Flush(ctx context.Context, fragment string) ([]domain.Product, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.mu.Unlock()

	return s.lookup.Resolve(ctx, fragment, ConfirmScanMinLength, s.limit)
}
