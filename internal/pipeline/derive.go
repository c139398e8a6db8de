package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/gridline-data/catalog-cli/internal/catalog"
	"github.com/gridline-data/catalog-cli/internal/model"
)

// DeriveBrand extracts a brand from a free-text description: the token
// before the first whitespace run, or the whole description when it holds
// no whitespace. Pure and deterministic so it stays unit-testable outside
// any database engine.
func DeriveBrand(description string) string {
	fields := strings.Fields(description)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// DeriveStage backfills the brand column from the description for every
// row whose brand is still empty. Rows that already carry a brand are never
// touched, which makes the stage idempotent.
type DeriveStage struct {
	store catalog.Store
}

func NewDeriveStage(store catalog.Store) *DeriveStage {
	return &DeriveStage{store: store}
}

func (s *DeriveStage) Name() string { return "derive" }

func (s *DeriveStage) Run(ctx context.Context) (*model.StageOutcome, error) {
	candidates, err := s.store.ListMissingBrand(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "derive: list missing brand")
	}

	var changed int
	for _, c := range candidates {
		brand := DeriveBrand(c.Description)
		if brand == "" {
			continue
		}
		if err := s.store.UpdateBrand(ctx, c.ID, brand); err != nil {
			return nil, eris.Wrap(err, "derive: update brand")
		}
		changed++
	}

	return &model.StageOutcome{
		Examined: len(candidates),
		Changed:  changed,
		Summary:  fmt.Sprintf("%d of %d missing brands derived from descriptions", changed, len(candidates)),
	}, nil
}
