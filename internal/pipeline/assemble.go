package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/37-Inc/goose.gifts/internal/models"
	"github.com/37-Inc/goose.gifts/internal/util"
)

const seoTitleMaxLen = 70

// assemble builds the final bundle and persists it, disambiguating the slug
// on collision. This is the only place the pipeline writes anything: if we
// never reach a successful TryCreateBundle, nothing was written.
func (g *Generator) assemble(ctx context.Context, description string, humor models.HumorStyle, concepts []models.GiftConcept, products []models.CuratedProduct) (*models.GiftBundle, error) {
	base := util.Slugify(description, g.cfg.SlugMaxLength)
	if base == "" {
		base = "gift-bundle"
	}

	now := time.Now()
	bundle := models.GiftBundle{
		Slug:                 base,
		RecipientDescription: description,
		HumorStyle:           humor,
		SEOTitle:             buildSEOTitle(description),
		SEODescription:       buildSEODescription(concepts),
		Concepts:             concepts,
		Products:             products,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	for i := range bundle.Products {
		bundle.Products[i].CreatedAt = now
	}

	if err := g.validate.ValidateStruct(bundle); err != nil {
		return nil, fmt.Errorf("assembled bundle failed validation: %w", err)
	}

	for attempt := 0; attempt < g.cfg.MaxSlugAttempts; attempt++ {
		slug := base
		switch {
		case attempt == 0:
			// base slug as-is
		case attempt < g.cfg.MaxSlugAttempts-1:
			slug = fmt.Sprintf("%s-%d", base, attempt+1)
		default:
			// Numeric suffixes exhausted; last attempt uses a random suffix.
			suffix, err := util.RandomSlugSuffix(6)
			if err != nil {
				return nil, fmt.Errorf("failed to generate slug suffix: %w", err)
			}
			slug = base + "-" + suffix
		}

		bundle.Slug = slug
		for i := range bundle.Products {
			bundle.Products[i].BundleSlug = slug
		}

		err := g.store.TryCreateBundle(ctx, bundle)
		if errors.Is(err, models.ErrSlugTaken) {
			slog.Info("Slug taken, retrying with suffix", "slug", slug)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to persist bundle: %w", err)
		}

		// Product counter docs are supplementary; the bundle is already the
		// source of truth, so a failure here degrades tracking, not the run.
		if err := g.store.SaveProducts(ctx, bundle.Products); err != nil {
			slog.Warn("Failed to save product counter docs", "slug", slug, "error", err)
		}
		return &bundle, nil
	}

	return nil, fmt.Errorf("%w: base %q after %d attempts", ErrSlugExhausted, base, g.cfg.MaxSlugAttempts)
}

func buildSEOTitle(description string) string {
	title := "Gift Ideas for " + strings.TrimSpace(description)
	if len(title) > seoTitleMaxLen {
		title = strings.TrimSpace(title[:seoTitleMaxLen])
	}
	return title
}

func buildSEODescription(concepts []models.GiftConcept) string {
	texts := make([]string, 0, len(concepts))
	for _, c := range concepts {
		texts = append(texts, c.Text)
	}
	return "Hand-picked gift ideas: " + strings.Join(texts, ", ") + "."
}
