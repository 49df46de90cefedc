// File: internal/collector/collector.go

// Package collector implements the shared cursor-pagination engine used by
// every connection-style fetcher. The engine owns the loop mechanics
// (cursor advancement, stall detection, trimming, pacing) while the caller
// supplies a single-page fetch function.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
)

// ErrCursorStalled indicates the source reported more pages while handing
// back the same cursor twice in a row. Continuing would loop forever.
var ErrCursorStalled = errors.New("collector: pagination cursor stalled")

// DefaultInterPageDelay is the politeness floor between consecutive page
// fetches. Requested delays below it are raised to it.
const DefaultInterPageDelay = time.Second

// interPageFloor is the enforced minimum; tests shorten it.
var interPageFloor = DefaultInterPageDelay

// Page is one fetched slice of a connection.
type Page[T any] struct {
	Items    []T
	PageInfo schemas.PageInfo
}

// FetchFunc retrieves a single page. An empty cursor requests the first page.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// ProgressFunc is invoked after every page with the running item count.
type ProgressFunc func(collected int, pages int)

// Options tune a single collection run.
type Options struct {
	// MaxItems caps the result length; zero means unlimited.
	MaxItems int
	// PageDelay is the pause between consecutive page fetches. Values below
	// DefaultInterPageDelay are raised to it.
	PageDelay time.Duration
	// MaxPages caps the number of fetches; zero means unlimited.
	MaxPages int
	// OnProgress, when set, observes the run page by page.
	OnProgress ProgressFunc
}

// Collect drains a paginated source into a slice. Termination is reached
// when the source reports no further page, when a page comes back empty,
// when MaxItems or MaxPages is hit, or when the cursor stalls. Pacing never
// drops below DefaultInterPageDelay. On a mid-run fetch error or context
// cancellation the items gathered so far are returned alongside the error,
// so a partial harvest is never thrown away.
func Collect[T any](ctx context.Context, fetch FetchFunc[T], opts Options, logger *zap.Logger) ([]T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("Collector")

	var (
		items      []T
		cursor     string
		prevCursor string
		pages      int
	)

	for {
		if err := ctx.Err(); err != nil {
			return items, fmt.Errorf("collector: run interrupted: %w", err)
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			logger.Warn("Page fetch failed, returning partial results.",
				zap.Int("pages", pages), zap.Int("collected", len(items)), zap.Error(err))
			return items, fmt.Errorf("collector: fetching page %d: %w", pages+1, err)
		}
		pages++
		items = append(items, page.Items...)

		logger.Debug("Page collected.",
			zap.Int("page", pages),
			zap.Int("page_items", len(page.Items)),
			zap.Int("total_items", len(items)))

		if opts.OnProgress != nil {
			opts.OnProgress(len(items), pages)
		}

		// A page with zero items ends the run even when the source still
		// advertises a next page.
		if len(page.Items) == 0 {
			logger.Debug("Empty page ended the run.", zap.Int("pages", pages))
			return items, nil
		}
		if opts.MaxItems > 0 && len(items) >= opts.MaxItems {
			return items[:opts.MaxItems], nil
		}
		if !page.PageInfo.HasNextPage {
			return items, nil
		}
		if opts.MaxPages > 0 && pages >= opts.MaxPages {
			logger.Debug("Page cap reached.", zap.Int("max_pages", opts.MaxPages))
			return items, nil
		}

		// Stall guard. A source that promises more data but never advances
		// its cursor would otherwise spin forever.
		next := page.PageInfo.EndCursor
		if next == cursor || (cursor != "" && next == prevCursor) {
			logger.Warn("Cursor did not advance, aborting pagination.",
				zap.String("cursor", next), zap.Int("collected", len(items)))
			return items, ErrCursorStalled
		}
		prevCursor = cursor
		cursor = next

		delay := opts.PageDelay
		if delay < interPageFloor {
			delay = interPageFloor
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return items, fmt.Errorf("collector: run interrupted: %w", ctx.Err())
			}
		}
	}
}
