package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/gridline-data/catalog-cli/internal/catalog"
	"github.com/gridline-data/catalog-cli/internal/model"
)

// DedupeStage removes rows that duplicate another row under the
// (url, price, scrape timestamp) equivalence key. The lowest id in each
// group survives. Dependent rows are removed with their owners inside one
// transaction; the store rolls everything back on a mid-operation failure.
type DedupeStage struct {
	store catalog.Store
}

func NewDedupeStage(store catalog.Store) *DedupeStage {
	return &DedupeStage{store: store}
}

func (s *DedupeStage) Name() string { return "dedupe" }

func (s *DedupeStage) Run(ctx context.Context) (*model.StageOutcome, error) {
	removed, err := s.store.DeleteDuplicates(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "dedupe: delete duplicates")
	}

	return &model.StageOutcome{
		Removed: int(removed),
		Summary: fmt.Sprintf("%d duplicate rows removed", removed),
	}, nil
}
