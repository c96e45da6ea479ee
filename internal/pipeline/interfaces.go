package pipeline

import (
	"context"

	"github.com/37-Inc/goose.gifts/internal/models"
)

// IdeaGenerator abstracts the language-model capability used for concept
// generation, query expansion, and curation. Implementations return
// schema-validated structured output; the pipeline still revalidates
// everything against known-good inputs.
type IdeaGenerator interface {
	GenerateConcepts(ctx context.Context, description string, humor models.HumorStyle, n int) ([]string, error)
	ExpandQueries(ctx context.Context, description, concept string, m int) ([]string, error)
	CurateProducts(ctx context.Context, description string, candidates []models.CandidateProduct, limit int) ([]models.CurationPick, error)
}

// ProductSearcher abstracts multi-source marketplace search.
type ProductSearcher interface {
	Search(ctx context.Context, query string, sources []models.Source) ([]models.RawProduct, error)
}

// BundleStore abstracts the persistence gateway used at assembly time.
type BundleStore interface {
	// TryCreateBundle inserts atomically and returns models.ErrSlugTaken on
	// a slug collision.
	TryCreateBundle(ctx context.Context, bundle models.GiftBundle) error
	SaveProducts(ctx context.Context, products []models.CuratedProduct) error
}
