package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/37-Inc/goose.gifts/internal/config"
	"github.com/37-Inc/goose.gifts/internal/models"
	"github.com/37-Inc/goose.gifts/internal/util"
	"github.com/37-Inc/goose.gifts/internal/validator"
)

// Generator runs the full bundle pipeline: concepts, query expansion,
// retrieval, dedup, curation, assembly. Nothing is persisted until assembly
// completes with a fully validated bundle, so a run's externally visible
// effect is atomic.
type Generator struct {
	ideas    IdeaGenerator
	searcher ProductSearcher
	store    BundleStore
	validate *validator.Validator
	cfg      *config.Config
}

func New(ideas IdeaGenerator, searcher ProductSearcher, store BundleStore, cfg *config.Config) *Generator {
	return &Generator{
		ideas:    ideas,
		searcher: searcher,
		store:    store,
		validate: validator.New(),
		cfg:      cfg,
	}
}

// Run generates and persists one gift bundle for the recipient description.
func (g *Generator) Run(ctx context.Context, description string, humor models.HumorStyle) (*models.GiftBundle, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("recipient description is empty")
	}
	if humor == "" {
		humor = models.HumorNone
	}

	concepts, err := g.generateConcepts(ctx, description, humor)
	if err != nil {
		return nil, err
	}
	slog.Info("Generated gift concepts", "count", len(concepts))

	surviving, queries, err := g.expandQueries(ctx, description, concepts)
	if err != nil {
		return nil, err
	}
	slog.Info("Expanded search queries", "concepts", len(surviving), "queries", len(queries))

	raw := g.retrieve(ctx, queries)
	slog.Info("Retrieved raw products", "count", len(raw))

	pool := DeduplicateAndCap(raw, g.cfg.MaxProductsBeforeLLM)
	slog.Info("Deduplicated candidate pool", "count", len(pool))

	curated, err := g.curate(ctx, description, pool)
	if err != nil {
		return nil, err
	}

	bundle, err := g.assemble(ctx, description, humor, surviving, curated)
	if err != nil {
		return nil, err
	}

	slog.Info("Bundle persisted", "slug", bundle.Slug, "products", len(bundle.Products))
	return bundle, nil
}

// generateConcepts asks for exactly N distinct concepts, retrying the model
// call once. Fewer than N usable concepts fails the run: downstream stages
// assume the full width.
func (g *Generator) generateConcepts(ctx context.Context, description string, humor models.HumorStyle) ([]models.GiftConcept, error) {
	n := g.cfg.ConceptCount
	var concepts []models.GiftConcept

	err := util.RetryWithBackoff(ctx, 1, func(int) error {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.LLMTimeout)
		defer cancel()

		texts, err := g.ideas.GenerateConcepts(callCtx, description, humor, n)
		if err != nil {
			return err
		}

		distinct := distinctNonEmpty(texts)
		if len(distinct) < n {
			return fmt.Errorf("got %d usable concepts, need %d", len(distinct), n)
		}

		concepts = concepts[:0]
		for i, text := range distinct[:n] {
			concepts = append(concepts, models.GiftConcept{Text: text, Order: i})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConceptGenerationFailed, err)
	}
	return concepts, nil
}

// expandQueries fans out one model call per concept. A concept whose
// expansion yields zero queries is dropped with a warning; only when every
// concept drops does the run fail.
func (g *Generator) expandQueries(ctx context.Context, description string, concepts []models.GiftConcept) ([]models.GiftConcept, []models.SearchQuery, error) {
	m := g.cfg.QueriesPerConcept
	perConcept := make([][]string, len(concepts))

	var eg errgroup.Group
	eg.SetLimit(g.cfg.SearchConcurrency)
	for i, concept := range concepts {
		eg.Go(func() error {
			err := util.RetryWithBackoff(ctx, 1, func(int) error {
				callCtx, cancel := context.WithTimeout(ctx, g.cfg.LLMTimeout)
				defer cancel()

				texts, err := g.ideas.ExpandQueries(callCtx, description, concept.Text, m)
				if err != nil {
					return err
				}
				distinct := distinctNonEmpty(texts)
				if len(distinct) > m {
					distinct = distinct[:m]
				}
				perConcept[i] = distinct
				return nil
			})
			if err != nil {
				slog.Warn("Query expansion failed for concept", "concept", concept.Text, "error", err)
			}
			return nil
		})
	}
	_ = eg.Wait() // branches absorb their own failures

	var surviving []models.GiftConcept
	var queries []models.SearchQuery
	for i, concept := range concepts {
		if len(perConcept[i]) == 0 {
			slog.Warn("Dropping concept with no queries", "concept", concept.Text)
			continue
		}
		surviving = append(surviving, concept)
		for _, text := range perConcept[i] {
			queries = append(queries, models.SearchQuery{Text: text, Concept: concept})
		}
	}

	if len(surviving) == 0 {
		return nil, nil, ErrQueryExpansionFailed
	}
	return surviving, queries, nil
}

// curate runs the single (unretried, expensive) curation call and defends
// against hallucinated picks by mapping everything back to the pool.
func (g *Generator) curate(ctx context.Context, description string, pool []models.CandidateProduct) ([]models.CuratedProduct, error) {
	limit := g.cfg.ProductsPerBundle
	minViable := limit / 2
	if minViable < 1 {
		minViable = 1
	}

	if len(pool) < minViable {
		return nil, fmt.Errorf("%w: only %d candidates available, need %d", ErrCurationUnderfilled, len(pool), minViable)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.LLMTimeout)
	defer cancel()

	picks, err := g.ideas.CurateProducts(callCtx, description, pool, limit)
	if err != nil {
		return nil, fmt.Errorf("curation call failed: %w", err)
	}

	byKey := make(map[string]models.CandidateProduct, len(pool))
	for _, cand := range pool {
		byKey[cand.IdentityKey] = cand
	}

	var curated []models.CuratedProduct
	seen := make(map[string]bool)
	for _, pick := range picks {
		if len(curated) == limit {
			break
		}
		cand, ok := byKey[pick.ProductID]
		if !ok {
			slog.Warn("Curator referenced unknown product, discarding", "id", pick.ProductID)
			continue
		}
		if seen[pick.ProductID] {
			continue
		}
		seen[pick.ProductID] = true

		conceptText := pick.Concept
		if conceptText == "" {
			conceptText = cand.Concept.Text
		}
		curated = append(curated, models.CuratedProduct{
			ID:          cand.IdentityKey,
			Rank:        len(curated),
			Source:      cand.Source,
			SourceID:    cand.SourceID,
			Title:       cand.Title,
			ImageURL:    cand.ImageURL,
			Price:       cand.Price,
			URL:         cand.URL,
			ConceptText: conceptText,
		})
	}

	if len(curated) < minViable {
		return nil, fmt.Errorf("%w: %d valid products, need at least %d", ErrCurationUnderfilled, len(curated), minViable)
	}
	return curated, nil
}

// distinctNonEmpty trims, drops empties, and deduplicates case-insensitively
// while preserving first-seen order.
func distinctNonEmpty(texts []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		folded := strings.ToLower(t)
		if seen[folded] {
			continue
		}
		seen[folded] = true
		out = append(out, t)
	}
	return out
}
