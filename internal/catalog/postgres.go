package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/gridline-data/catalog-cli/internal/db"
	"github.com/gridline-data/catalog-cli/internal/model"
)

// PostgresStore implements Store over a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore on an already-connected pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	id               BIGSERIAL PRIMARY KEY,
	url              TEXT NOT NULL,
	price_cents      BIGINT,
	description      TEXT NOT NULL DEFAULT '',
	info             TEXT NOT NULL DEFAULT '',
	rating           DOUBLE PRECISION NOT NULL DEFAULT 0,
	brand            TEXT,
	price_unresolved BOOLEAN NOT NULL DEFAULT FALSE,
	scraped_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS characteristics (
	id         BIGSERIAL PRIMARY KEY,
	product_id BIGINT NOT NULL REFERENCES products(id),
	name       TEXT NOT NULL,
	value      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS dimensions (
	id           BIGSERIAL PRIMARY KEY,
	product_id   BIGINT NOT NULL REFERENCES products(id),
	width        INTEGER NOT NULL DEFAULT 0,
	aspect_ratio INTEGER NOT NULL DEFAULT 0,
	rim_diameter INTEGER NOT NULL DEFAULT 0,
	load_index   TEXT NOT NULL DEFAULT '',
	speed_rating TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS dimensions_by_model (
	id       BIGSERIAL PRIMARY KEY,
	brand    TEXT NOT NULL,
	model    TEXT NOT NULL,
	year     INTEGER NOT NULL,
	trim     TEXT NOT NULL DEFAULT '',
	width    INTEGER NOT NULL DEFAULT 0,
	height   INTEGER NOT NULL DEFAULT 0,
	diameter INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS api_users (
	username      TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	full_name     TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS pipeline_stages (
	id           BIGSERIAL PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES pipeline_runs(id),
	stage        TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	summary      TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_products_scraped_at ON products(scraped_at);
CREATE INDEX IF NOT EXISTS idx_products_brand ON products(brand);
CREATE INDEX IF NOT EXISTS idx_products_unresolved ON products(price_unresolved) WHERE price_unresolved;
CREATE INDEX IF NOT EXISTS idx_characteristics_product ON characteristics(product_id);
CREATE INDEX IF NOT EXISTS idx_dimensions_product ON dimensions(product_id);
CREATE INDEX IF NOT EXISTS idx_dimensions_by_model_lookup ON dimensions_by_model(lower(brand), lower(model), year);
CREATE INDEX IF NOT EXISTS idx_pipeline_stages_run ON pipeline_stages(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) LatestBatch(ctx context.Context) (*time.Time, error) {
	var batch *time.Time
	err := s.pool.QueryRow(ctx, `SELECT max(scraped_at) FROM products`).Scan(&batch)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest batch")
	}
	return batch, nil
}

func (s *PostgresStore) CountBatch(ctx context.Context, batch time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM products WHERE scraped_at = $1`,
		batch,
	).Scan(&count)
	return count, eris.Wrap(err, "postgres: count batch")
}

func (s *PostgresStore) ListBatch(ctx context.Context, batch time.Time) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, price_cents, description, info, rating, brand, price_unresolved, scraped_at
		 FROM products WHERE scraped_at = $1 ORDER BY id`,
		batch,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batch")
	}
	defer rows.Close()

	return scanProducts(rows, "postgres: list batch")
}

func (s *PostgresStore) UpdateURL(ctx context.Context, id int64, url string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET url = $1 WHERE id = $2`,
		url, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update url %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("product not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) UpdatePrice(ctx context.Context, id int64, cents int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET price_cents = $1, price_unresolved = FALSE WHERE id = $2`,
		cents, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update price %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("product not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) MarkPriceUnresolved(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET price_cents = NULL, price_unresolved = TRUE WHERE id = $1`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark price unresolved %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("product not found: %d", id)
	}
	return nil
}

// duplicateIDs ranks rows inside each (url, price, batch) partition by id
// ascending; everything past rank 1 is a duplicate. The lowest id survives.
const duplicateIDs = `
SELECT id FROM (
	SELECT id, row_number() OVER (
		PARTITION BY url, price_cents, scraped_at ORDER BY id
	) AS rn
	FROM products
) ranked
WHERE rn > 1`

func (s *PostgresStore) DeleteDuplicates(ctx context.Context) (int64, error) {
	return s.deleteCascade(ctx, duplicateIDs, "delete duplicates")
}

func (s *PostgresStore) PurgeUnresolved(ctx context.Context) (int64, error) {
	return s.deleteCascade(ctx,
		`SELECT id FROM products WHERE price_unresolved`,
		"purge unresolved",
	)
}

// deleteCascade removes the products selected by idQuery together with
// their dependent rows, in one transaction. Partial deletion across the
// dependent tables and products is not an acceptable end state.
func (s *PostgresStore) deleteCascade(ctx context.Context, idQuery, op string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: %s: begin", op)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, idQuery)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: %s: select ids", op)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, eris.Wrapf(err, "postgres: %s: scan id", op)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, eris.Wrapf(err, "postgres: %s: iterate ids", op)
	}

	if len(ids) == 0 {
		return 0, eris.Wrapf(tx.Commit(ctx), "postgres: %s: commit", op)
	}

	// Dependents first, then the owning rows. The two dependent tables are
	// independent siblings; their order does not matter.
	if _, err := tx.Exec(ctx, `DELETE FROM characteristics WHERE product_id = ANY($1)`, ids); err != nil {
		return 0, eris.Wrapf(err, "postgres: %s: delete characteristics", op)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM dimensions WHERE product_id = ANY($1)`, ids); err != nil {
		return 0, eris.Wrapf(err, "postgres: %s: delete dimensions", op)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: %s: delete products", op)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "postgres: %s: commit", op)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListMissingBrand(ctx context.Context) ([]model.BrandCandidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, description FROM products
		 WHERE brand IS NULL OR brand = '' ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list missing brand")
	}
	defer rows.Close()

	var out []model.BrandCandidate
	for rows.Next() {
		var c model.BrandCandidate
		if err := rows.Scan(&c.ID, &c.Description); err != nil {
			return nil, eris.Wrap(err, "postgres: scan brand candidate")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list missing brand iterate")
}

func (s *PostgresStore) UpdateBrand(ctx context.Context, id int64, brand string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET brand = $1 WHERE id = $2`,
		brand, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update brand %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("product not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) SearchByBrand(ctx context.Context, brand string) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, price_cents, description, info, rating, brand, price_unresolved, scraped_at
		 FROM products
		 WHERE brand = $1 AND NOT price_unresolved
		 ORDER BY id`,
		brand,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search by brand")
	}
	defer rows.Close()

	return scanProducts(rows, "postgres: search by brand")
}

func (s *PostgresStore) DimensionsForModel(ctx context.Context, brand, modelName string, year int) ([]model.ModelDimensions, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT brand, model, year, trim, width, height, diameter
		 FROM dimensions_by_model
		 WHERE lower(brand) = lower($1) AND lower(model) = lower($2) AND year = $3
		 ORDER BY trim`,
		brand, modelName, year,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dimensions for model")
	}
	defer rows.Close()

	var out []model.ModelDimensions
	for rows.Next() {
		var d model.ModelDimensions
		if err := rows.Scan(&d.Brand, &d.Model, &d.Year, &d.Trim, &d.Width, &d.Height, &d.Diameter); err != nil {
			return nil, eris.Wrap(err, "postgres: scan model dimensions")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: dimensions for model iterate")
}

func (s *PostgresStore) CreateUser(ctx context.Context, u model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_users (username, email, full_name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.Username, u.Email, u.FullName, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return eris.Wrapf(ErrAlreadyExists, "user %s", u.Username)
		}
		return eris.Wrapf(err, "postgres: create user %s", u.Username)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT username, email, full_name, password_hash, created_at
		 FROM api_users WHERE username = $1`,
		username,
	).Scan(&u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get user %s", username)
	}
	return &u, nil
}

func scanProducts(rows pgx.Rows, op string) ([]model.Product, error) {
	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.URL, &p.PriceCents, &p.Description, &p.Info,
			&p.Rating, &p.Brand, &p.PriceUnresolved, &p.ScrapedAt); err != nil {
			return nil, eris.Wrapf(err, "%s: scan product", op)
		}
		out = append(out, p)
	}
	return out, eris.Wrapf(rows.Err(), "%s: iterate", op)
}
