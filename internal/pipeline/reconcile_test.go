package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline-data/catalog-cli/internal/model"
)

const priceSelector = ".product-price .price-value"

func pricePage(text string) string {
	return `<html><body><div class="product-price"><span class="price-value">` +
		text + `</span></div></body></html>`
}

func TestReconcileStageCorrectsDisagreeingPrices(t *testing.T) {
	batch := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{products: []model.Product{
		{ID: 1, URL: "https://shop.example/a", PriceCents: ptrInt64(8990), ScrapedAt: batch},
		{ID: 2, URL: "https://shop.example/b", PriceCents: ptrInt64(9500), ScrapedAt: batch},
	}}
	f := &fakeFetcher{pages: map[string]string{
		"https://shop.example/a": pricePage("79,90 €"),
		"https://shop.example/b": pricePage("95,00 €"),
	}}

	outcome, err := NewReconcileStage(store, f, priceSelector).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Examined)
	assert.Equal(t, 1, outcome.Changed)
	assert.Equal(t, int64(7990), *store.find(1).PriceCents, "live page wins over stored price")
	assert.Equal(t, int64(9500), *store.find(2).PriceCents, "agreeing price is left alone")
}

func TestReconcileStageMarksAbsentPricesUnresolved(t *testing.T) {
	batch := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{products: []model.Product{
		{ID: 1, URL: "https://shop.example/gone", PriceCents: ptrInt64(8990), ScrapedAt: batch},
	}}
	f := &fakeFetcher{pages: map[string]string{
		"https://shop.example/gone": `<html><body><p>Produit retiré</p></body></html>`,
	}}

	outcome, err := NewReconcileStage(store, f, priceSelector).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Changed)
	p := store.find(1)
	assert.True(t, p.PriceUnresolved)
	assert.Nil(t, p.PriceCents)
}

func TestReconcileStageFetchFailureLeavesRowUntouched(t *testing.T) {
	batch := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{products: []model.Product{
		{ID: 1, URL: "https://shop.example/down", PriceCents: ptrInt64(8990), ScrapedAt: batch},
	}}
	f := &fakeFetcher{failures: map[string]error{
		"https://shop.example/down": assert.AnError,
	}}

	outcome, err := NewReconcileStage(store, f, priceSelector).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Errors)
	assert.Equal(t, 0, outcome.Changed)
	p := store.find(1)
	assert.Equal(t, int64(8990), *p.PriceCents, "could-not-check keeps the stored price")
	assert.False(t, p.PriceUnresolved, "could-not-check never marks a row unresolved")
}

func TestReconcileStageRecoversPreviouslyUnresolvedRow(t *testing.T) {
	batch := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{products: []model.Product{
		{ID: 1, URL: "https://shop.example/back", PriceUnresolved: true, ScrapedAt: batch},
	}}
	f := &fakeFetcher{pages: map[string]string{
		"https://shop.example/back": pricePage("64,50 €"),
	}}

	outcome, err := NewReconcileStage(store, f, priceSelector).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Changed)
	p := store.find(1)
	assert.False(t, p.PriceUnresolved)
	require.NotNil(t, p.PriceCents)
	assert.Equal(t, int64(6450), *p.PriceCents)
}

func TestReconcileStageStoreError(t *testing.T) {
	store := &fakeStore{storageErr: assert.AnError}

	_, err := NewReconcileStage(store, &fakeFetcher{}, priceSelector).Run(context.Background())
	assert.Error(t, err)
}
