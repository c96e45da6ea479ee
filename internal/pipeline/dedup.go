package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/37-Inc/goose.gifts/internal/models"
	"github.com/37-Inc/goose.gifts/internal/util"
)

// titleMatchMaxLengthDelta is the tunable tolerance for title-based identity
// matching when a product carries no stable source ID: two normalized titles
// from the same source merge when one is a prefix of the other and they
// differ by at most this many bytes.
const titleMatchMaxLengthDelta = 8

// DeduplicateAndCap normalizes image URLs, collapses records sharing an
// identity, and caps the pool at max candidates, keeping at least one
// candidate per concept where possible. The selection is deterministic for a
// given input order, and the whole transform is idempotent.
func DeduplicateAndCap(raw []models.RawProduct, max int) []models.CandidateProduct {
	pool := deduplicate(raw)
	return capWithConceptCoverage(pool, max)
}

func deduplicate(raw []models.RawProduct) []models.CandidateProduct {
	var pool []models.CandidateProduct
	indexByKey := make(map[string]int)

	for _, r := range raw {
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.URL) == "" {
			continue
		}

		cleanImage := util.CleanImageURL(r.ImageURL, string(r.Source))
		key := resolveIdentity(r, pool)

		if idx, ok := indexByKey[key]; ok {
			mergeCandidate(&pool[idx], r, cleanImage)
			continue
		}

		pool = append(pool, models.CandidateProduct{
			IdentityKey: key,
			SourceID:    r.SourceID,
			Source:      r.Source,
			Title:       r.Title,
			ImageURL:    cleanImage,
			Price:       r.Price,
			URL:         r.URL,
			Concept:     r.Concept,
		})
		indexByKey[key] = len(pool) - 1
	}
	return pool
}

// resolveIdentity prefers an exact source+sourceID key. Without a source ID
// it falls back to a normalized-title match against candidates already in
// the pool, so near-duplicate listings surfaced by different queries
// collapse.
func resolveIdentity(r models.RawProduct, pool []models.CandidateProduct) string {
	if r.SourceID != "" {
		return identityHash(string(r.Source) + "|" + strings.ToLower(r.SourceID))
	}

	norm := util.NormalizeTitle(r.Title)
	for _, existing := range pool {
		if existing.Source != r.Source {
			continue
		}
		if titlesMatch(norm, util.NormalizeTitle(existing.Title)) {
			return existing.IdentityKey
		}
	}
	return identityHash(string(r.Source) + "|t|" + norm)
}

func titlesMatch(a, b string) bool {
	if a == b {
		return a != ""
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if shorter == "" || len(longer)-len(shorter) > titleMatchMaxLengthDelta {
		return false
	}
	return strings.HasPrefix(longer, shorter)
}

func identityHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// mergeCandidate keeps the first-seen record but fills metadata gaps from
// later duplicates, preferring the most complete variant.
func mergeCandidate(existing *models.CandidateProduct, r models.RawProduct, cleanImage string) {
	if existing.ImageURL == "" && cleanImage != "" {
		existing.ImageURL = cleanImage
	}
	if existing.Price == nil && r.Price != nil {
		existing.Price = r.Price
	}
	if existing.SourceID == "" && r.SourceID != "" {
		existing.SourceID = r.SourceID
	}
}

// capWithConceptCoverage bounds the pool at max, first granting every
// concept one slot (in concept order), then filling the rest in first-seen
// order.
func capWithConceptCoverage(pool []models.CandidateProduct, max int) []models.CandidateProduct {
	if max <= 0 || len(pool) <= max {
		return pool
	}

	selected := make(map[int]bool, max)

	// One slot per concept, concepts visited in ascending order.
	conceptOrders := make(map[int]bool)
	var orders []int
	for _, c := range pool {
		if !conceptOrders[c.Concept.Order] {
			conceptOrders[c.Concept.Order] = true
			orders = append(orders, c.Concept.Order)
		}
	}
	sort.Ints(orders)

	for _, order := range orders {
		if len(selected) == max {
			break
		}
		for i, c := range pool {
			if c.Concept.Order == order && !selected[i] {
				selected[i] = true
				break
			}
		}
	}

	for i := range pool {
		if len(selected) == max {
			break
		}
		selected[i] = true
	}

	out := make([]models.CandidateProduct, 0, max)
	for i, c := range pool {
		if selected[i] {
			out = append(out, c)
		}
	}
	return out
}
