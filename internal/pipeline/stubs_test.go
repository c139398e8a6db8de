package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/gridline-data/catalog-cli/internal/catalog"
	"github.com/gridline-data/catalog-cli/internal/model"
)

// fakeStore is an in-memory catalog.Store for stage tests. Methods a test
// never reaches come from the embedded nil interface and panic loudly.
type fakeStore struct {
	catalog.Store

	products []model.Product

	storageErr error // returned by every method when set

	duplicatesRemoved int64
	purged            int64
}

func (f *fakeStore) find(id int64) *model.Product {
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i]
		}
	}
	return nil
}

func (f *fakeStore) LatestBatch(ctx context.Context) (*time.Time, error) {
	if f.storageErr != nil {
		return nil, f.storageErr
	}
	var max *time.Time
	for i := range f.products {
		ts := f.products[i].ScrapedAt
		if max == nil || ts.After(*max) {
			max = &ts
		}
	}
	return max, nil
}

func (f *fakeStore) CountBatch(ctx context.Context, batch time.Time) (int, error) {
	if f.storageErr != nil {
		return 0, f.storageErr
	}
	count := 0
	for _, p := range f.products {
		if p.ScrapedAt.Equal(batch) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListBatch(ctx context.Context, batch time.Time) ([]model.Product, error) {
	if f.storageErr != nil {
		return nil, f.storageErr
	}
	var out []model.Product
	for _, p := range f.products {
		if p.ScrapedAt.Equal(batch) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateURL(ctx context.Context, id int64, url string) error {
	if f.storageErr != nil {
		return f.storageErr
	}
	p := f.find(id)
	if p == nil {
		return eris.Errorf("product not found: %d", id)
	}
	p.URL = url
	return nil
}

func (f *fakeStore) UpdatePrice(ctx context.Context, id int64, cents int64) error {
	if f.storageErr != nil {
		return f.storageErr
	}
	p := f.find(id)
	if p == nil {
		return eris.Errorf("product not found: %d", id)
	}
	p.PriceCents = &cents
	p.PriceUnresolved = false
	return nil
}

func (f *fakeStore) MarkPriceUnresolved(ctx context.Context, id int64) error {
	if f.storageErr != nil {
		return f.storageErr
	}
	p := f.find(id)
	if p == nil {
		return eris.Errorf("product not found: %d", id)
	}
	p.PriceCents = nil
	p.PriceUnresolved = true
	return nil
}

func (f *fakeStore) ListMissingBrand(ctx context.Context) ([]model.BrandCandidate, error) {
	if f.storageErr != nil {
		return nil, f.storageErr
	}
	var out []model.BrandCandidate
	for _, p := range f.products {
		if p.Brand == nil || *p.Brand == "" {
			out = append(out, model.BrandCandidate{ID: p.ID, Description: p.Description})
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateBrand(ctx context.Context, id int64, brand string) error {
	if f.storageErr != nil {
		return f.storageErr
	}
	p := f.find(id)
	if p == nil {
		return eris.Errorf("product not found: %d", id)
	}
	p.Brand = &brand
	return nil
}

func (f *fakeStore) DeleteDuplicates(ctx context.Context) (int64, error) {
	if f.storageErr != nil {
		return 0, f.storageErr
	}
	type key struct {
		url   string
		price int64
		nilP  bool
		ts    time.Time
	}
	seen := make(map[key]bool)
	var kept []model.Product
	var removed int64
	for _, p := range f.products { // products ordered by id in tests
		k := key{url: p.URL, ts: p.ScrapedAt}
		if p.PriceCents != nil {
			k.price = *p.PriceCents
		} else {
			k.nilP = true
		}
		if seen[k] {
			removed++
			continue
		}
		seen[k] = true
		kept = append(kept, p)
	}
	f.products = kept
	f.duplicatesRemoved += removed
	return removed, nil
}

func (f *fakeStore) PurgeUnresolved(ctx context.Context) (int64, error) {
	if f.storageErr != nil {
		return 0, f.storageErr
	}
	var kept []model.Product
	var removed int64
	for _, p := range f.products {
		if p.PriceUnresolved {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	f.products = kept
	f.purged += removed
	return removed, nil
}

// fakeFetcher resolves URLs and serves pages from in-memory maps.
type fakeFetcher struct {
	finalURL map[string]string // identity when absent
	pages    map[string]string
	failures map[string]error
}

func (f *fakeFetcher) Resolve(ctx context.Context, rawURL string) (string, error) {
	if err, ok := f.failures[rawURL]; ok {
		return "", err
	}
	if final, ok := f.finalURL[rawURL]; ok {
		return final, nil
	}
	return rawURL, nil
}

func (f *fakeFetcher) GetHTML(ctx context.Context, rawURL string) (string, string, error) {
	if err, ok := f.failures[rawURL]; ok {
		return "", "", err
	}
	final := rawURL
	if u, ok := f.finalURL[rawURL]; ok {
		final = u
	}
	return f.pages[rawURL], final, nil
}

func ptrInt64(v int64) *int64    { return &v }
func ptrString(s string) *string { return &s }
