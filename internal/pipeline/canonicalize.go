package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gridline-data/catalog-cli/internal/catalog"
	"github.com/gridline-data/catalog-cli/internal/fetcher"
	"github.com/gridline-data/catalog-cli/internal/model"
)

// CanonicalizeStage resolves the redirect chain of every latest-batch row
// and rewrites the stored URL to the final resolved form. A per-row fetch
// error is logged and the row left unchanged; one bad URL must not abort
// the batch. Only a storage error fails the stage.
type CanonicalizeStage struct {
	store   catalog.Store
	fetcher fetcher.Fetcher
}

func NewCanonicalizeStage(store catalog.Store, f fetcher.Fetcher) *CanonicalizeStage {
	return &CanonicalizeStage{store: store, fetcher: f}
}

func (s *CanonicalizeStage) Name() string { return "canonicalize" }

func (s *CanonicalizeStage) Run(ctx context.Context) (*model.StageOutcome, error) {
	log := zap.L().With(zap.String("stage", s.Name()))

	batch, err := s.store.LatestBatch(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "canonicalize: latest batch")
	}
	if batch == nil {
		return &model.StageOutcome{Summary: "catalog is empty"}, nil
	}

	products, err := s.store.ListBatch(ctx, *batch)
	if err != nil {
		return nil, eris.Wrap(err, "canonicalize: list batch")
	}

	var changed, fetchErrs int
	for _, p := range products {
		final, err := s.fetcher.Resolve(ctx, p.URL)
		if err != nil {
			fetchErrs++
			log.Warn("url resolution failed, keeping stored url",
				zap.Int64("product_id", p.ID),
				zap.String("url", p.URL),
				zap.Error(err),
			)
			continue
		}
		if final == p.URL {
			continue
		}
		if err := s.store.UpdateURL(ctx, p.ID, final); err != nil {
			return nil, eris.Wrap(err, "canonicalize: update url")
		}
		changed++
	}

	return &model.StageOutcome{
		Examined: len(products),
		Changed:  changed,
		Errors:   fetchErrs,
		Summary: fmt.Sprintf("%d of %d urls rewritten, %d fetch errors skipped",
			changed, len(products), fetchErrs),
	}, nil
}
