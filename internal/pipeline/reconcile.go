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

// ReconcileStage re-fetches the live page of every latest-batch row and
// overwrites the stored price when the page disagrees. A page with no
// extractable price marks the row unresolved so the purge stage removes it
// instead of serving a possibly stale price. A fetch failure is the
// distinct "could not check" case: the row is left untouched and the error
// logged. Only a storage error fails the stage.
type ReconcileStage struct {
	store    catalog.Store
	fetcher  fetcher.Fetcher
	selector string
}

func NewReconcileStage(store catalog.Store, f fetcher.Fetcher, selector string) *ReconcileStage {
	return &ReconcileStage{store: store, fetcher: f, selector: selector}
}

func (s *ReconcileStage) Name() string { return "reconcile" }

func (s *ReconcileStage) Run(ctx context.Context) (*model.StageOutcome, error) {
	log := zap.L().With(zap.String("stage", s.Name()))

	batch, err := s.store.LatestBatch(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: latest batch")
	}
	if batch == nil {
		return &model.StageOutcome{Summary: "catalog is empty"}, nil
	}

	products, err := s.store.ListBatch(ctx, *batch)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: list batch")
	}

	var changed, unresolved, fetchErrs int
	for _, p := range products {
		html, _, err := s.fetcher.GetHTML(ctx, p.URL)
		if err != nil {
			fetchErrs++
			log.Warn("page fetch failed, price left untouched",
				zap.Int64("product_id", p.ID),
				zap.String("url", p.URL),
				zap.Error(err),
			)
			continue
		}

		cents, found, err := ExtractPrice(html, s.selector)
		if err != nil {
			fetchErrs++
			log.Warn("page unreadable, price left untouched",
				zap.Int64("product_id", p.ID),
				zap.String("url", p.URL),
				zap.Error(err),
			)
			continue
		}

		if !found {
			if err := s.store.MarkPriceUnresolved(ctx, p.ID); err != nil {
				return nil, eris.Wrap(err, "reconcile: mark price unresolved")
			}
			unresolved++
			continue
		}

		if p.PriceCents != nil && *p.PriceCents == cents && !p.PriceUnresolved {
			continue
		}
		if err := s.store.UpdatePrice(ctx, p.ID, cents); err != nil {
			return nil, eris.Wrap(err, "reconcile: update price")
		}
		changed++
	}

	return &model.StageOutcome{
		Examined: len(products),
		Changed:  changed + unresolved,
		Errors:   fetchErrs,
		Summary: fmt.Sprintf("%d of %d prices corrected, %d marked unresolved, %d fetch errors skipped",
			changed, len(products), unresolved, fetchErrs),
	}, nil
}
