package validator

import (
	"testing"
	"time"

	"github.com/37-Inc/goose.gifts/internal/models"
)

func validBundle() models.GiftBundle {
	return models.GiftBundle{
		Slug:                 "mom-loves-gardening",
		RecipientDescription: "my mom who loves gardening",
		HumorStyle:           models.HumorNone,
		SEOTitle:             "Gift Ideas for my mom who loves gardening",
		Concepts:             []models.GiftConcept{{Text: "Gardening tools", Order: 0}},
		Products: []models.CuratedProduct{{
			ID:     "abc123",
			Source: models.SourceAmazon,
			Title:  "Ergonomic Garden Trowel",
			URL:    "https://www.amazon.com/dp/B001",
		}},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestValidator_ValidateStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		mutate  func(*models.GiftBundle)
		wantErr bool
	}{
		{name: "valid bundle", mutate: func(*models.GiftBundle) {}, wantErr: false},
		{name: "missing slug", mutate: func(b *models.GiftBundle) { b.Slug = "" }, wantErr: true},
		{name: "missing description", mutate: func(b *models.GiftBundle) { b.RecipientDescription = "" }, wantErr: true},
		{name: "no products", mutate: func(b *models.GiftBundle) { b.Products = nil }, wantErr: true},
		{name: "no concepts", mutate: func(b *models.GiftBundle) { b.Concepts = nil }, wantErr: true},
		{name: "product with bad URL", mutate: func(b *models.GiftBundle) { b.Products[0].URL = "not-a-url" }, wantErr: true},
		{name: "product with negative rank", mutate: func(b *models.GiftBundle) { b.Products[0].Rank = -1 }, wantErr: true},
		{name: "product without image is fine", mutate: func(b *models.GiftBundle) { b.Products[0].ImageURL = "" }, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := validBundle()
			tt.mutate(&bundle)
			err := v.ValidateStruct(bundle)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
