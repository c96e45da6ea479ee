package models

import (
	"errors"
	"time"
)

// ErrSlugTaken is returned when inserting a bundle whose slug already exists.
var ErrSlugTaken = errors.New("bundle slug already taken")

// ErrBundleNotFound is returned by mutations targeting a slug that does not
// exist (or was soft-deleted).
var ErrBundleNotFound = errors.New("bundle not found")

// Source identifies a marketplace a product was retrieved from.
type Source string

const (
	SourceAmazon Source = "amazon"
	SourceEtsy   Source = "etsy"
)

// HumorStyle controls the tone of generated concepts and SEO copy.
type HumorStyle string

const (
	HumorNone     HumorStyle = "none"
	HumorPlayful  HumorStyle = "playful"
	HumorUnhinged HumorStyle = "unhinged"
)

// GiftConcept is one thematic angle for a bundle. Concepts are ephemeral
// within a pipeline run; the persisted bundle keeps an ordered snapshot.
type GiftConcept struct {
	Text  string `firestore:"text" json:"text"`
	Order int    `firestore:"order" json:"order"`
}

// SearchQuery is a marketplace query string derived from a concept.
type SearchQuery struct {
	Text    string
	Concept GiftConcept
}

// RawProduct is a product record as returned by a marketplace source. Query
// and Concept carry provenance, set by the retrieval aggregator so curation
// can weigh concept coverage. Records may contain near-duplicates across
// queries and uncleaned image URLs.
type RawProduct struct {
	SourceID string
	Source   Source
	Title    string
	ImageURL string
	Price    *float64
	URL      string
	Query    string
	Concept  GiftConcept
}

// CandidateProduct is a RawProduct after image normalization and identity
// resolution. No two candidates in a deduplicated pool share an IdentityKey.
type CandidateProduct struct {
	IdentityKey string
	SourceID    string
	Source      Source
	Title       string
	ImageURL    string
	Price       *float64
	URL         string
	Concept     GiftConcept
}

// CurationPick is a single curator selection, referencing a candidate by its
// identity key. Picks that reference unknown keys are discarded.
type CurationPick struct {
	ProductID string `json:"product_id"`
	Concept   string `json:"concept"`
}

// CuratedProduct is a curated, ranked product. The same shape is embedded in
// the bundle document (counters stay zero there) and stored in the products
// collection, where ClickCount/ImpressionCount are incremented atomically.
type CuratedProduct struct {
	ID              string     `firestore:"id" json:"id" validate:"required"`
	Rank            int        `firestore:"rank" json:"rank" validate:"gte=0"`
	Source          Source     `firestore:"source" json:"source" validate:"required"`
	SourceID        string     `firestore:"sourceID,omitempty" json:"sourceId,omitempty"`
	Title           string     `firestore:"title" json:"title" validate:"required"`
	ImageURL        string     `firestore:"imageURL,omitempty" json:"imageUrl,omitempty" validate:"omitempty,url"`
	Price           *float64   `firestore:"price,omitempty" json:"price,omitempty"`
	URL             string     `firestore:"url" json:"url" validate:"required,url"`
	ConceptText     string     `firestore:"conceptText,omitempty" json:"concept,omitempty"`
	ClickCount      int64      `firestore:"clickCount" json:"clickCount"`
	ImpressionCount int64      `firestore:"impressionCount" json:"impressionCount"`
	BundleSlug      string     `firestore:"bundleSlug,omitempty" json:"bundleSlug,omitempty"`
	CreatedAt       time.Time  `firestore:"createdAt" json:"createdAt"`
	DeletedAt       *time.Time `firestore:"deletedAt,omitempty" json:"-"`
}

// GiftBundle is the persisted artifact of a successful pipeline run. Slug is
// immutable once assigned, URL-safe, and globally unique. Bundles are only
// ever soft-deleted.
type GiftBundle struct {
	Slug                 string           `firestore:"slug" json:"slug" validate:"required"`
	RecipientDescription string           `firestore:"recipientDescription" json:"recipientDescription" validate:"required"`
	HumorStyle           HumorStyle       `firestore:"humorStyle" json:"humorStyle" validate:"required"`
	SEOTitle             string           `firestore:"seoTitle" json:"seoTitle" validate:"required"`
	SEODescription       string           `firestore:"seoDescription,omitempty" json:"seoDescription,omitempty"`
	Concepts             []GiftConcept    `firestore:"concepts" json:"concepts" validate:"min=1,dive"`
	Products             []CuratedProduct `firestore:"products" json:"products" validate:"min=1,dive"`
	ClickCount           int64            `firestore:"clickCount" json:"clickCount"`
	ViewCount            int64            `firestore:"viewCount" json:"viewCount"`
	CreatedAt            time.Time        `firestore:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time        `firestore:"updatedAt" json:"updatedAt"`
	DeletedAt            *time.Time       `firestore:"deletedAt,omitempty" json:"-"`
}

// ClickEvent is one row in the click-event log, recorded independently of the
// running counters for analytics.
type ClickEvent struct {
	ProductID  string    `firestore:"productID,omitempty"`
	BundleSlug string    `firestore:"bundleSlug,omitempty"`
	Source     string    `firestore:"source,omitempty"`
	Referrer   string    `firestore:"referrer,omitempty"`
	UserAgent  string    `firestore:"userAgent,omitempty"`
	CreatedAt  time.Time `firestore:"createdAt"`
}
