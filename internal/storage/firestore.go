package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/37-Inc/goose.gifts/internal/models"
)

const (
	bundlesCollection  = "bundles"
	productsCollection = "products"
	clicksCollection   = "clicks"
)

// Client wraps Firestore access for bundles, products, and click events.
// Bundle documents are keyed by slug and product documents by identity key,
// so uniqueness is enforced by the datastore itself.
type Client struct {
	client         *firestore.Client
	listFetchLimit int
}

func New(ctx context.Context, projectID string, listFetchLimit int) (*Client, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	if listFetchLimit <= 0 {
		listFetchLimit = 500
	}
	return &Client{client: client, listFetchLimit: listFetchLimit}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// TryCreateBundle inserts the bundle under its slug. Create fails if the
// document already exists, which is how slug uniqueness is enforced without a
// read-then-write race.
func (c *Client) TryCreateBundle(ctx context.Context, bundle models.GiftBundle) error {
	docRef := c.client.Collection(bundlesCollection).Doc(bundle.Slug)
	_, err := docRef.Create(ctx, bundle)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return models.ErrSlugTaken
		}
		return fmt.Errorf("failed to create bundle %s: %w", bundle.Slug, err)
	}
	return nil
}

// GetBundleBySlug retrieves a bundle by slug. Returns (nil, nil) when the
// bundle does not exist or has been soft-deleted.
func (c *Client) GetBundleBySlug(ctx context.Context, slug string) (*models.GiftBundle, error) {
	doc, err := c.client.Collection(bundlesCollection).Doc(slug).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bundle %s: %w", slug, err)
	}

	var bundle models.GiftBundle
	if err := doc.DataTo(&bundle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bundle %s: %w", slug, err)
	}
	if bundle.DeletedAt != nil {
		return nil, nil
	}
	return &bundle, nil
}

// BundleFilter narrows a bundle listing. Zero values mean "no constraint".
type BundleFilter struct {
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	HumorStyle    models.HumorStyle
	MinViews      int64
	// Text is matched case-insensitively against the recipient description
	// and SEO title.
	Text string
}

// ListOptions controls pagination and ordering of a bundle listing.
type ListOptions struct {
	Page     int
	PageSize int
	// SortBy is "createdAt" (default) or "viewCount".
	SortBy   string
	SortDesc bool
}

// BundleList is one page of a listing plus its totals.
type BundleList struct {
	Bundles    []models.GiftBundle
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ListBundles returns a filtered, sorted page of live bundles. Firestore
// cannot combine range filters, free-text matching, and arbitrary ordering in
// one query, so the query fetches up to listFetchLimit docs in sort order and
// the predicates are applied in memory.
func (c *Client) ListBundles(ctx context.Context, filter BundleFilter, opts ListOptions) (*BundleList, error) {
	opts = normalizeListOptions(opts)

	direction := firestore.Asc
	if opts.SortDesc {
		direction = firestore.Desc
	}
	sortField := "createdAt"
	if opts.SortBy == "viewCount" {
		sortField = "viewCount"
	}

	iter := c.client.Collection(bundlesCollection).
		OrderBy(sortField, direction).
		Limit(c.listFetchLimit).
		Documents(ctx)
	defer iter.Stop()

	var matched []models.GiftBundle
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate bundles: %w", err)
		}

		var bundle models.GiftBundle
		if err := doc.DataTo(&bundle); err != nil {
			slog.Warn("Skipping unreadable bundle document", "id", doc.Ref.ID, "error", err)
			continue
		}
		if bundleMatches(bundle, filter) {
			matched = append(matched, bundle)
		}
	}

	total := len(matched)
	totalPages := (total + opts.PageSize - 1) / opts.PageSize
	start := (opts.Page - 1) * opts.PageSize
	if start > total {
		start = total
	}
	end := start + opts.PageSize
	if end > total {
		end = total
	}

	return &BundleList{
		Bundles:    matched[start:end],
		Total:      total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: totalPages,
	}, nil
}

func normalizeListOptions(opts ListOptions) ListOptions {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}
	if opts.SortBy != "viewCount" {
		opts.SortBy = "createdAt"
	}
	return opts
}

func bundleMatches(bundle models.GiftBundle, filter BundleFilter) bool {
	if bundle.DeletedAt != nil {
		return false
	}
	if filter.CreatedAfter != nil && bundle.CreatedAt.Before(*filter.CreatedAfter) {
		return false
	}
	if filter.CreatedBefore != nil && bundle.CreatedAt.After(*filter.CreatedBefore) {
		return false
	}
	if filter.HumorStyle != "" && bundle.HumorStyle != filter.HumorStyle {
		return false
	}
	if filter.MinViews > 0 && bundle.ViewCount < filter.MinViews {
		return false
	}
	if filter.Text != "" {
		needle := strings.ToLower(filter.Text)
		if !strings.Contains(strings.ToLower(bundle.RecipientDescription), needle) &&
			!strings.Contains(strings.ToLower(bundle.SEOTitle), needle) {
			return false
		}
	}
	return true
}

// SoftDeleteBundle marks a bundle deleted without removing the document, so
// the slug stays reserved and can never be reassigned.
func (c *Client) SoftDeleteBundle(ctx context.Context, slug string) error {
	now := time.Now()
	_, err := c.client.Collection(bundlesCollection).Doc(slug).Update(ctx, []firestore.Update{
		{Path: "deletedAt", Value: now},
		{Path: "updatedAt", Value: now},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrBundleNotFound
		}
		return fmt.Errorf("failed to soft-delete bundle %s: %w", slug, err)
	}
	return nil
}

// SaveProducts upserts curated products into the products collection, keyed
// by identity key. Counters on documents that already exist are preserved:
// only the descriptive fields are rewritten.
func (c *Client) SaveProducts(ctx context.Context, products []models.CuratedProduct) error {
	for _, p := range products {
		docRef := c.client.Collection(productsCollection).Doc(p.ID)
		_, err := docRef.Create(ctx, p)
		if err == nil {
			continue
		}
		if status.Code(err) != codes.AlreadyExists {
			return fmt.Errorf("failed to create product %s: %w", p.ID, err)
		}

		_, err = docRef.Update(ctx, []firestore.Update{
			{Path: "rank", Value: p.Rank},
			{Path: "source", Value: p.Source},
			{Path: "sourceID", Value: p.SourceID},
			{Path: "title", Value: p.Title},
			{Path: "imageURL", Value: p.ImageURL},
			{Path: "price", Value: p.Price},
			{Path: "url", Value: p.URL},
			{Path: "conceptText", Value: p.ConceptText},
			{Path: "bundleSlug", Value: p.BundleSlug},
		})
		if err != nil {
			return fmt.Errorf("failed to update product %s: %w", p.ID, err)
		}
	}
	return nil
}

// IncrementBundleView bumps the view counter on a bundle.
func (c *Client) IncrementBundleView(ctx context.Context, slug string) error {
	return c.incrementBundle(ctx, slug, "viewCount")
}

// IncrementBundleClick bumps the click counter on a bundle.
func (c *Client) IncrementBundleClick(ctx context.Context, slug string) error {
	return c.incrementBundle(ctx, slug, "clickCount")
}

func (c *Client) incrementBundle(ctx context.Context, slug, field string) error {
	_, err := c.client.Collection(bundlesCollection).Doc(slug).Update(ctx, []firestore.Update{
		{Path: field, Value: firestore.Increment(1)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrBundleNotFound
		}
		return fmt.Errorf("failed to increment %s on bundle %s: %w", field, slug, err)
	}
	return nil
}

// IncrementProductClick bumps the click counter on a product doc. A missing
// product is a no-op: click tracking must never fail a redirect.
func (c *Client) IncrementProductClick(ctx context.Context, productID string) error {
	_, err := c.client.Collection(productsCollection).Doc(productID).Update(ctx, []firestore.Update{
		{Path: "clickCount", Value: firestore.Increment(1)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			slog.Debug("Click for unknown product ignored", "productID", productID)
			return nil
		}
		return fmt.Errorf("failed to increment clicks on product %s: %w", productID, err)
	}
	return nil
}

// IncrementProductImpressions batches impression increments for a set of
// product IDs through a BulkWriter. Unknown IDs are skipped.
func (c *Client) IncrementProductImpressions(ctx context.Context, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}

	// Duplicate IDs in one batch would race on the same document.
	ids := distinctIDs(productIDs)

	bulkWriter := c.client.BulkWriter(ctx)
	jobs := make(map[string]*firestore.BulkWriterJob, len(ids))
	for _, id := range ids {
		docRef := c.client.Collection(productsCollection).Doc(id)
		job, err := bulkWriter.Update(docRef, []firestore.Update{
			{Path: "impressionCount", Value: firestore.Increment(1)},
		})
		if err != nil {
			slog.Warn("Failed to queue impression increment", "productID", id, "error", err)
			continue
		}
		jobs[id] = job
	}
	bulkWriter.End()

	for id, job := range jobs {
		if _, err := job.Results(); err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return fmt.Errorf("failed to increment impressions on product %s: %w", id, err)
		}
	}
	return nil
}

// LogClick appends one row to the click-event log.
func (c *Client) LogClick(ctx context.Context, event models.ClickEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := c.client.Collection(clicksCollection).NewDoc().Create(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to log click event: %w", err)
	}
	return nil
}

func distinctIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
