package pipeline

import (
	"testing"

	"github.com/37-Inc/goose.gifts/internal/models"
)

func fptr(v float64) *float64 { return &v }

func TestDeduplicate_SourceIDCollapse(t *testing.T) {
	raw := []models.RawProduct{
		{SourceID: "B001", Source: models.SourceAmazon, Title: "Garden Trowel", URL: "https://www.amazon.com/dp/B001"},
		{SourceID: "b001", Source: models.SourceAmazon, Title: "Garden Trowel Deluxe", URL: "https://www.amazon.com/dp/B001", Price: fptr(19.99)},
		{SourceID: "B001", Source: models.SourceEtsy, Title: "Garden Trowel", URL: "https://www.etsy.com/listing/B001"},
	}

	pool := DeduplicateAndCap(raw, 10)
	if len(pool) != 2 {
		t.Fatalf("got %d candidates, want 2 (same ID on same source collapses, different source does not)", len(pool))
	}
	// The later duplicate fills in the missing price.
	if pool[0].Price == nil || *pool[0].Price != 19.99 {
		t.Errorf("merged candidate price = %v, want 19.99", pool[0].Price)
	}
	// First-seen metadata wins for fields already set.
	if pool[0].Title != "Garden Trowel" {
		t.Errorf("merged candidate title = %q, want first-seen title", pool[0].Title)
	}
}

func TestDeduplicate_TitleFallback(t *testing.T) {
	raw := []models.RawProduct{
		{Source: models.SourceEtsy, Title: "Hand Knit Wool Scarf", URL: "https://www.etsy.com/listing/1"},
		{Source: models.SourceEtsy, Title: "Hand Knit Wool Scarf, Red", URL: "https://www.etsy.com/listing/2"},
		{Source: models.SourceEtsy, Title: "Hand Knit Wool Scarf in a Completely Different Colorway", URL: "https://www.etsy.com/listing/3"},
	}

	pool := DeduplicateAndCap(raw, 10)
	if len(pool) != 2 {
		t.Fatalf("got %d candidates, want 2 (near-identical titles merge, long variant stays)", len(pool))
	}
}

func TestDeduplicate_SkipsUnusableRecords(t *testing.T) {
	raw := []models.RawProduct{
		{Source: models.SourceAmazon, Title: "  ", URL: "https://www.amazon.com/dp/B001"},
		{Source: models.SourceAmazon, Title: "No URL Product", URL: ""},
		{SourceID: "B002", Source: models.SourceAmazon, Title: "Keeper", URL: "https://www.amazon.com/dp/B002"},
	}

	pool := DeduplicateAndCap(raw, 10)
	if len(pool) != 1 || pool[0].Title != "Keeper" {
		t.Fatalf("pool = %+v, want only the usable record", pool)
	}
}

func TestDeduplicateAndCap_ConceptCoverage(t *testing.T) {
	conceptA := models.GiftConcept{Text: "A", Order: 0}
	conceptB := models.GiftConcept{Text: "B", Order: 1}
	conceptC := models.GiftConcept{Text: "C", Order: 2}

	var raw []models.RawProduct
	for i := 0; i < 5; i++ {
		raw = append(raw, models.RawProduct{
			SourceID: "A" + string(rune('0'+i)), Source: models.SourceAmazon,
			Title: "Product A", URL: "https://www.amazon.com/dp/A", Concept: conceptA,
		})
	}
	raw = append(raw,
		models.RawProduct{SourceID: "B0", Source: models.SourceAmazon, Title: "Product B", URL: "https://www.amazon.com/dp/B", Concept: conceptB},
		models.RawProduct{SourceID: "C0", Source: models.SourceAmazon, Title: "Product C", URL: "https://www.amazon.com/dp/C", Concept: conceptC},
	)

	pool := DeduplicateAndCap(raw, 3)
	if len(pool) != 3 {
		t.Fatalf("got %d candidates, want cap of 3", len(pool))
	}
	seen := map[string]bool{}
	for _, c := range pool {
		seen[c.Concept.Text] = true
	}
	for _, want := range []string{"A", "B", "C"} {
		if !seen[want] {
			t.Errorf("concept %q lost its slot under the cap", want)
		}
	}
}

func TestDeduplicateAndCap_NoCapWhenUnderMax(t *testing.T) {
	raw := []models.RawProduct{
		{SourceID: "B001", Source: models.SourceAmazon, Title: "One", URL: "https://www.amazon.com/dp/B001"},
		{SourceID: "B002", Source: models.SourceAmazon, Title: "Two", URL: "https://www.amazon.com/dp/B002"},
	}
	pool := DeduplicateAndCap(raw, 10)
	if len(pool) != 2 {
		t.Fatalf("got %d candidates, want all 2 kept", len(pool))
	}
}

func TestDeduplicateAndCap_Deterministic(t *testing.T) {
	raw := []models.RawProduct{
		{SourceID: "B001", Source: models.SourceAmazon, Title: "One", URL: "https://www.amazon.com/dp/B001", Concept: models.GiftConcept{Text: "A", Order: 0}},
		{SourceID: "B002", Source: models.SourceAmazon, Title: "Two", URL: "https://www.amazon.com/dp/B002", Concept: models.GiftConcept{Text: "B", Order: 1}},
		{SourceID: "B003", Source: models.SourceAmazon, Title: "Three", URL: "https://www.amazon.com/dp/B003", Concept: models.GiftConcept{Text: "A", Order: 0}},
	}

	first := DeduplicateAndCap(raw, 2)
	second := DeduplicateAndCap(raw, 2)
	if len(first) != len(second) {
		t.Fatalf("runs disagree on size: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].IdentityKey != second[i].IdentityKey {
			t.Errorf("runs disagree at index %d: %q vs %q", i, first[i].IdentityKey, second[i].IdentityKey)
		}
	}
}

func TestDeduplicate_CleansImageURLs(t *testing.T) {
	raw := []models.RawProduct{{
		SourceID: "1234", Source: models.SourceEtsy, Title: "Mug",
		URL:      "https://www.etsy.com/listing/1234",
		ImageURL: "https://i.etsystatic.com/123/r/il/abc/il_340x270.456.jpg",
	}}

	pool := DeduplicateAndCap(raw, 10)
	if len(pool) != 1 {
		t.Fatalf("got %d candidates, want 1", len(pool))
	}
	if got, want := pool[0].ImageURL, "https://i.etsystatic.com/123/r/il/abc/il_fullxfull.456.jpg"; got != want {
		t.Errorf("image URL = %q, want %q", got, want)
	}
}
