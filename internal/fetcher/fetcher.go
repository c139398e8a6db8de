// Package fetcher wraps net/http for the network stages of the
// reconciliation pipeline: redirect resolution and product-page fetches.
package fetcher

import "context"

// Fetcher defines the interface for hitting the live source.
type Fetcher interface {
	// Resolve dereferences rawURL through any redirect chain and returns
	// the final URL.
	Resolve(ctx context.Context, rawURL string) (string, error)

	// GetHTML fetches rawURL and returns the document body together with
	// the final post-redirect URL.
	GetHTML(ctx context.Context, rawURL string) (body string, finalURL string, err error)
}
