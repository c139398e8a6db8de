package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/gridline-data/catalog-cli/internal/catalog"
	"github.com/gridline-data/catalog-cli/internal/model"
)

// AuditStage counts the rows ingested by the most recent scrape. It is
// purely observational: no mutation, and it fails only when the store is
// unreachable.
type AuditStage struct {
	store catalog.Store
}

func NewAuditStage(store catalog.Store) *AuditStage {
	return &AuditStage{store: store}
}

func (s *AuditStage) Name() string { return "audit" }

func (s *AuditStage) Run(ctx context.Context) (*model.StageOutcome, error) {
	batch, err := s.store.LatestBatch(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "audit: latest batch")
	}
	if batch == nil {
		return &model.StageOutcome{Summary: "catalog is empty, nothing ingested"}, nil
	}

	count, err := s.store.CountBatch(ctx, *batch)
	if err != nil {
		return nil, eris.Wrap(err, "audit: count batch")
	}

	return &model.StageOutcome{
		Examined: count,
		Summary:  fmt.Sprintf("%d rows ingested by the latest scrape (%s)", count, batch.Format("2006-01-02 15:04:05")),
	}, nil
}
