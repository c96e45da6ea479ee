package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/37-Inc/goose.gifts/internal/models"
	"github.com/37-Inc/goose.gifts/internal/search"
	"github.com/37-Inc/goose.gifts/internal/util"
)

// retrieve fans the query set out to the marketplace searcher with bounded
// parallelism. Each branch writes only its own slot, so no locking is needed.
// A query that keeps failing is skipped, never fatal; provenance (query +
// concept) is stamped on every raw record for the curator.
func (g *Generator) retrieve(ctx context.Context, queries []models.SearchQuery) []models.RawProduct {
	results := make([][]models.RawProduct, len(queries))

	var eg errgroup.Group
	eg.SetLimit(g.cfg.SearchConcurrency)
	for i, q := range queries {
		eg.Go(func() error {
			var batch []models.RawProduct
			err := util.RetryIf(ctx, 1, search.IsTransient, func(int) error {
				callCtx, cancel := context.WithTimeout(ctx, g.cfg.SearchTimeout)
				defer cancel()

				found, err := g.searcher.Search(callCtx, q.Text, g.cfg.Sources)
				if err != nil {
					return err
				}
				batch = found
				return nil
			})
			if err != nil {
				slog.Warn("Skipping failed search query", "query", q.Text, "concept", q.Concept.Text, "error", err)
				return nil
			}

			for j := range batch {
				batch[j].Query = q.Text
				batch[j].Concept = q.Concept
			}
			results[i] = batch
			return nil
		})
	}
	_ = eg.Wait()

	var all []models.RawProduct
	for _, batch := range results {
		all = append(all, batch...)
	}
	return all
}
