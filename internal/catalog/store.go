// Package catalog provides persistence for the scraped product catalog:
// the product table plus its two dependent tables (characteristics,
// dimensions), the dimensions-by-model reference table, and API users.
package catalog

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/gridline-data/catalog-cli/internal/model"
)

// ErrAlreadyExists reports a unique-key violation on a write, e.g. a second
// registration for the same username. Callers can match it with errors.Is
// and react without treating it as a storage failure.
var ErrAlreadyExists = eris.New("catalog: already exists")

// Store defines the persistence interface shared by the pipeline stages and
// the query API.
type Store interface {
	// Batch resolution. LatestBatch returns nil when the product table is
	// empty. Stages recompute the batch at entry; they never receive it
	// from a predecessor.
	LatestBatch(ctx context.Context) (*time.Time, error)
	CountBatch(ctx context.Context, batch time.Time) (int, error)
	ListBatch(ctx context.Context, batch time.Time) ([]model.Product, error)

	// Row mutation (canonicalize, reconcile, derive).
	UpdateURL(ctx context.Context, id int64, url string) error
	UpdatePrice(ctx context.Context, id int64, cents int64) error
	MarkPriceUnresolved(ctx context.Context, id int64) error
	ListMissingBrand(ctx context.Context) ([]model.BrandCandidate, error)
	UpdateBrand(ctx context.Context, id int64, brand string) error

	// Transactional deletes (dedupe, purge). Both cascade the same id set
	// through every dependent table before touching products, inside one
	// transaction, and return the number of product rows removed.
	DeleteDuplicates(ctx context.Context) (int64, error)
	PurgeUnresolved(ctx context.Context) (int64, error)

	// Query API reads.
	SearchByBrand(ctx context.Context, brand string) ([]model.Product, error)
	DimensionsForModel(ctx context.Context, brand, modelName string, year int) ([]model.ModelDimensions, error)

	// API users.
	CreateUser(ctx context.Context, u model.User) error
	GetUser(ctx context.Context, username string) (*model.User, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
