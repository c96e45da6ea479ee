package pipeline

import "errors"

// Stage-level failures that abort the whole run. Branch-level transient
// failures (a single query or concept) are absorbed and logged instead.
var (
	ErrConceptGenerationFailed = errors.New("concept generation failed")
	ErrQueryExpansionFailed    = errors.New("query expansion failed for every concept")
	ErrCurationUnderfilled     = errors.New("curation returned too few valid products")
	ErrSlugExhausted           = errors.New("slug disambiguation attempts exhausted")
)
