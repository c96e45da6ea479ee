package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/37-Inc/goose.gifts/internal/models"
)

type mockCounterStore struct {
	viewSlugs     []string
	clickSlugs    []string
	clickProducts []string
	impressions   [][]string
	events        []models.ClickEvent

	viewErr       error
	productErr    error
	bundleErr     error
	impressionErr error
	logErr        error
}

func (m *mockCounterStore) IncrementBundleView(_ context.Context, slug string) error {
	if m.viewErr != nil {
		return m.viewErr
	}
	m.viewSlugs = append(m.viewSlugs, slug)
	return nil
}

func (m *mockCounterStore) IncrementBundleClick(_ context.Context, slug string) error {
	if m.bundleErr != nil {
		return m.bundleErr
	}
	m.clickSlugs = append(m.clickSlugs, slug)
	return nil
}

func (m *mockCounterStore) IncrementProductClick(_ context.Context, productID string) error {
	if m.productErr != nil {
		return m.productErr
	}
	m.clickProducts = append(m.clickProducts, productID)
	return nil
}

func (m *mockCounterStore) IncrementProductImpressions(_ context.Context, productIDs []string) error {
	if m.impressionErr != nil {
		return m.impressionErr
	}
	m.impressions = append(m.impressions, productIDs)
	return nil
}

func (m *mockCounterStore) LogClick(_ context.Context, event models.ClickEvent) error {
	if m.logErr != nil {
		return m.logErr
	}
	m.events = append(m.events, event)
	return nil
}

func TestRecordView(t *testing.T) {
	store := &mockCounterStore{}
	tracker := New(store)

	tracker.RecordView(context.Background(), "mom-loves-gardening")
	tracker.RecordView(context.Background(), "")

	if len(store.viewSlugs) != 1 || store.viewSlugs[0] != "mom-loves-gardening" {
		t.Errorf("viewSlugs = %v, want one view for the slug", store.viewSlugs)
	}
}

func TestRecordClick_AllWrites(t *testing.T) {
	store := &mockCounterStore{}
	tracker := New(store)

	tracker.RecordClick(context.Background(), models.ClickEvent{
		ProductID:  "prod-1",
		BundleSlug: "mom-loves-gardening",
		Source:     "amazon",
	})

	if len(store.clickProducts) != 1 || store.clickProducts[0] != "prod-1" {
		t.Errorf("clickProducts = %v, want product counter bumped", store.clickProducts)
	}
	if len(store.clickSlugs) != 1 || store.clickSlugs[0] != "mom-loves-gardening" {
		t.Errorf("clickSlugs = %v, want bundle counter bumped", store.clickSlugs)
	}
	if len(store.events) != 1 {
		t.Fatalf("got %d logged events, want 1", len(store.events))
	}
	if store.events[0].CreatedAt.IsZero() {
		t.Error("logged event should carry a timestamp")
	}
}

func TestRecordClick_PartialFailureStillLogs(t *testing.T) {
	store := &mockCounterStore{productErr: errors.New("firestore down")}
	tracker := New(store)

	tracker.RecordClick(context.Background(), models.ClickEvent{
		ProductID:  "prod-1",
		BundleSlug: "mom-loves-gardening",
	})

	// The product increment failed but the bundle counter and event log
	// still got their writes.
	if len(store.clickSlugs) != 1 {
		t.Errorf("clickSlugs = %v, want bundle counter bumped despite product failure", store.clickSlugs)
	}
	if len(store.events) != 1 {
		t.Errorf("got %d logged events, want 1", len(store.events))
	}
}

func TestRecordClick_NoReference(t *testing.T) {
	store := &mockCounterStore{}
	tracker := New(store)

	tracker.RecordClick(context.Background(), models.ClickEvent{Source: "amazon"})

	if len(store.events) != 0 || len(store.clickSlugs) != 0 || len(store.clickProducts) != 0 {
		t.Error("a click with no reference should be dropped entirely")
	}
}

func TestRecordImpressions(t *testing.T) {
	store := &mockCounterStore{}
	tracker := New(store)

	tracker.RecordImpressions(context.Background(), []string{"prod-1", "prod-2"})
	tracker.RecordImpressions(context.Background(), nil)

	if len(store.impressions) != 1 || len(store.impressions[0]) != 2 {
		t.Errorf("impressions = %v, want one batch of two", store.impressions)
	}
}

func TestTrackerSwallowsStoreErrors(t *testing.T) {
	store := &mockCounterStore{
		viewErr:       errors.New("down"),
		productErr:    errors.New("down"),
		bundleErr:     errors.New("down"),
		impressionErr: errors.New("down"),
		logErr:        errors.New("down"),
	}
	tracker := New(store)

	// None of these may panic or propagate the failure.
	tracker.RecordView(context.Background(), "slug")
	tracker.RecordClick(context.Background(), models.ClickEvent{ProductID: "p", BundleSlug: "s"})
	tracker.RecordImpressions(context.Background(), []string{"p"})
}
