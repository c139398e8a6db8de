package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/gridline-data/catalog-cli/internal/catalog"
	"github.com/gridline-data/catalog-cli/internal/model"
)

// PurgeStage removes every product still marked price-unresolved after
// reconciliation, together with its dependent rows, inside one
// transaction. An unresolved marker must never leak to the served catalog.
type PurgeStage struct {
	store catalog.Store
}

func NewPurgeStage(store catalog.Store) *PurgeStage {
	return &PurgeStage{store: store}
}

func (s *PurgeStage) Name() string { return "purge" }

func (s *PurgeStage) Run(ctx context.Context) (*model.StageOutcome, error) {
	removed, err := s.store.PurgeUnresolved(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "purge: delete unresolved")
	}

	return &model.StageOutcome{
		Removed: int(removed),
		Summary: fmt.Sprintf("%d unresolved-price rows removed", removed),
	}, nil
}
