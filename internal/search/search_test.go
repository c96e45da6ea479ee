package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/37-Inc/goose.gifts/internal/models"
)

const amazonFixture = `
<html><body>
<div data-component-type="s-search-result" data-asin="B0TESTASIN1">
  <img class="s-image" src="https://m.media-amazon.com/images/I/71abc._AC_UL320_.jpg"/>
  <h2><a href="/dp/B0TESTASIN1"><span>Ergonomic Garden Trowel</span></a></h2>
  <span class="a-price"><span class="a-offscreen">$18.99</span></span>
</div>
<div data-component-type="s-search-result" data-asin="B0TESTASIN2">
  <h2><a href="/dp/B0TESTASIN2"><span>Kneeling Pad for Gardening</span></a></h2>
</div>
<div data-component-type="s-search-result" data-asin="B0NOTITLE">
  <h2><a href="/dp/B0NOTITLE"><span></span></a></h2>
</div>
</body></html>`

const etsyFixture = `
<html><body>
<div class="v2-listing-card" data-listing-id="987654321">
  <a class="listing-link" href="https://www.etsy.com/listing/987654321/custom-garden-sign">
    <h3>Custom Garden Sign</h3>
  </a>
  <img src="https://i.etsystatic.com/1/r/il/a/987654321/il_340x270.987654321_k2xn.jpg"/>
  <span class="currency-value">34.50</span>
</div>
</body></html>`

func docFromString(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse fixture HTML: %v", err)
	}
	return doc
}

func TestParseAmazonResults(t *testing.T) {
	doc := docFromString(t, amazonFixture)
	products := parseAmazonResults(doc, DefaultSelectors().Amazon)

	if len(products) != 2 {
		t.Fatalf("Expected 2 products (titleless card skipped), got %d", len(products))
	}

	first := products[0]
	if first.SourceID != "B0TESTASIN1" {
		t.Errorf("SourceID = %q, want B0TESTASIN1", first.SourceID)
	}
	if first.Source != models.SourceAmazon {
		t.Errorf("Source = %q, want amazon", first.Source)
	}
	if first.Title != "Ergonomic Garden Trowel" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.URL != "https://www.amazon.com/dp/B0TESTASIN1" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Price == nil || *first.Price != 18.99 {
		t.Errorf("Price = %v, want 18.99", first.Price)
	}

	second := products[1]
	if second.Price != nil {
		t.Errorf("Expected nil price for card without price, got %v", *second.Price)
	}
	if second.ImageURL != "" {
		t.Errorf("Expected empty image URL, got %q", second.ImageURL)
	}
}

func TestParseEtsyResults(t *testing.T) {
	doc := docFromString(t, etsyFixture)
	products := parseEtsyResults(doc, DefaultSelectors().Etsy)

	if len(products) != 1 {
		t.Fatalf("Expected 1 product, got %d", len(products))
	}
	p := products[0]
	if p.SourceID != "987654321" {
		t.Errorf("SourceID = %q", p.SourceID)
	}
	if p.Source != models.SourceEtsy {
		t.Errorf("Source = %q, want etsy", p.Source)
	}
	if p.URL != "https://www.etsy.com/listing/987654321/custom-garden-sign" {
		t.Errorf("URL = %q", p.URL)
	}
	if p.Price == nil || *p.Price != 34.50 {
		t.Errorf("Price = %v, want 34.50", p.Price)
	}
}

func TestSearch_UnknownSourceIsPermanent(t *testing.T) {
	c := New(time.Second, 100, DefaultSelectors())
	_, err := c.Search(context.Background(), "garden gifts", []models.Source{"walmart"})
	if err == nil {
		t.Fatal("Expected error for unknown source")
	}
	if IsTransient(err) {
		t.Error("Unknown source should be a permanent error")
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(markTransient(errors.New("status code 503"))) {
		t.Error("Marked errors should be transient")
	}
	if !IsTransient(context.DeadlineExceeded) {
		t.Error("Deadline exceeded should be transient")
	}
	if IsTransient(errors.New("status code 404")) {
		t.Error("Plain errors should not be transient")
	}
	wrapped := markTransient(errors.New("inner"))
	if !IsTransient(errors.Join(errors.New("outer"), wrapped)) {
		t.Error("Transient marker should survive wrapping")
	}
}

func TestLoadSelectorsFromBytes(t *testing.T) {
	sel, err := LoadSelectorsFromBytes([]byte(`{"amazon":{"item":"div.result"}}`))
	if err != nil {
		t.Fatalf("LoadSelectorsFromBytes() error = %v", err)
	}
	if sel.Amazon.Item != "div.result" {
		t.Errorf("Amazon.Item = %q", sel.Amazon.Item)
	}

	if _, err := LoadSelectorsFromBytes([]byte(`not json`)); err == nil {
		t.Error("Expected parse error for invalid JSON")
	}
}

func TestFetchDocument_Allowlist(t *testing.T) {
	c := New(time.Second, 100, DefaultSelectors())
	if _, err := c.fetchDocument(context.Background(), "https://evil.example.com/s?k=x"); err == nil {
		t.Error("Expected allowlist violation error")
	}
	if _, err := c.fetchDocument(context.Background(), "http://www.amazon.com/s?k=x"); err == nil {
		t.Error("Expected scheme violation error for http")
	}
}
