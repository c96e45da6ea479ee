package tracking

import (
	"context"
	"log/slog"
	"time"

	"github.com/37-Inc/goose.gifts/internal/models"
)

// CounterStore is the slice of the persistence layer tracking needs.
type CounterStore interface {
	IncrementBundleView(ctx context.Context, slug string) error
	IncrementBundleClick(ctx context.Context, slug string) error
	IncrementProductClick(ctx context.Context, productID string) error
	IncrementProductImpressions(ctx context.Context, productIDs []string) error
	LogClick(ctx context.Context, event models.ClickEvent) error
}

// Tracker records engagement counters. Tracking is best-effort: every method
// logs failures and returns nothing, so a counter outage can never break
// bundle viewing or outbound clicks.
type Tracker struct {
	store CounterStore
}

func New(store CounterStore) *Tracker {
	return &Tracker{store: store}
}

// RecordView bumps a bundle's view counter.
func (t *Tracker) RecordView(ctx context.Context, slug string) {
	if slug == "" {
		return
	}
	if err := t.store.IncrementBundleView(ctx, slug); err != nil {
		slog.Warn("Failed to record bundle view", "slug", slug, "error", err)
	}
}

// RecordClick bumps the product and bundle click counters and appends a row
// to the click-event log. Each write is independent; one failing does not
// stop the others.
func (t *Tracker) RecordClick(ctx context.Context, event models.ClickEvent) {
	if event.ProductID == "" && event.BundleSlug == "" {
		slog.Warn("Dropping click event with no product or bundle reference")
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	if event.ProductID != "" {
		if err := t.store.IncrementProductClick(ctx, event.ProductID); err != nil {
			slog.Warn("Failed to record product click", "productID", event.ProductID, "error", err)
		}
	}
	if event.BundleSlug != "" {
		if err := t.store.IncrementBundleClick(ctx, event.BundleSlug); err != nil {
			slog.Warn("Failed to record bundle click", "slug", event.BundleSlug, "error", err)
		}
	}
	if err := t.store.LogClick(ctx, event); err != nil {
		slog.Warn("Failed to log click event", "productID", event.ProductID, "error", err)
	}
}

// RecordImpressions bumps impression counters for the products shown to a
// visitor.
func (t *Tracker) RecordImpressions(ctx context.Context, productIDs []string) {
	if len(productIDs) == 0 {
		return
	}
	if err := t.store.IncrementProductImpressions(ctx, productIDs); err != nil {
		slog.Warn("Failed to record impressions", "count", len(productIDs), "error", err)
	}
}
