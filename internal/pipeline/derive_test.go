package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline-data/catalog-cli/internal/model"
)

func TestDeriveBrand(t *testing.T) {
	tests := []struct {
		description string
		want        string
	}{
		{description: "Michelin 205/55R16 91V Primacy 4", want: "Michelin"},
		{description: "  Goodyear   EfficientGrip Performance ", want: "Goodyear"},
		{description: "Continental", want: "Continental"},
		{description: "", want: ""},
		{description: "   \t  ", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveBrand(tt.description), "description %q", tt.description)
	}
}

func TestDeriveStageBackfillsMissingBrands(t *testing.T) {
	batch := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{products: []model.Product{
		{ID: 1, Description: "Michelin 205/55R16 91V", ScrapedAt: batch},
		{ID: 2, Description: "Pirelli Cinturato P7", Brand: ptrString("Pirelli"), ScrapedAt: batch},
		{ID: 3, Description: "", ScrapedAt: batch},
	}}

	outcome, err := NewDeriveStage(store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Examined, "only rows without a brand are candidates")
	assert.Equal(t, 1, outcome.Changed)

	require.NotNil(t, store.find(1).Brand)
	assert.Equal(t, "Michelin", *store.find(1).Brand)
	assert.Equal(t, "Pirelli", *store.find(2).Brand, "existing brands are never overwritten")
	assert.Nil(t, store.find(3).Brand, "no brand can be derived from an empty description")
}

func TestDeriveStageIdempotent(t *testing.T) {
	batch := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{products: []model.Product{
		{ID: 1, Description: "Michelin 205/55R16 91V", ScrapedAt: batch},
	}}

	first, err := NewDeriveStage(store).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.Changed)

	second, err := NewDeriveStage(store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Changed)
	assert.Equal(t, 0, second.Examined)
}

func TestDeriveStageStoreError(t *testing.T) {
	store := &fakeStore{storageErr: assert.AnError}

	_, err := NewDeriveStage(store).Run(context.Background())
	assert.Error(t, err)
}
