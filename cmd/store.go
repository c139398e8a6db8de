package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/gridline-data/catalog-cli/internal/catalog"
	"github.com/gridline-data/catalog-cli/internal/db"
	"github.com/gridline-data/catalog-cli/internal/fetcher"
	"github.com/gridline-data/catalog-cli/internal/runlog"
)

// initStore connects to Postgres and returns the catalog store plus the
// run log sharing the same pool. Closing the store closes the pool.
func initStore(ctx context.Context) (*catalog.PostgresStore, *runlog.RunLog, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, nil, eris.New("store.database_url is not configured")
	}

	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, db.Options{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "connect store")
	}

	return catalog.NewPostgres(pool), runlog.New(pool), nil
}

// initFetcher builds the HTTP fetcher from config.
func initFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:   cfg.Fetch.UserAgent,
		Timeout:     time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries:  cfg.Fetch.MaxRetries,
		RatePerHost: rate.Limit(cfg.Fetch.RatePerHost),
		Burst:       cfg.Fetch.Burst,
	})
}
