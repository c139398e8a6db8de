package model

import "time"

// Product is one scraped catalog row. Prices are stored in currency minor
// units (cents). PriceCents is nil together with PriceUnresolved=true when
// the last reconciliation attempt could not extract a price from the live
// page; that state never reaches API consumers because the purge stage
// removes such rows.
type Product struct {
	ID              int64     `json:"id"`
	URL             string    `json:"url"`
	PriceCents      *int64    `json:"price_cents,omitempty"`
	Description     string    `json:"description"`
	Info            string    `json:"info,omitempty"`
	Rating          float64   `json:"rating"`
	Brand           *string   `json:"brand,omitempty"`
	PriceUnresolved bool      `json:"price_unresolved,omitempty"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

// Characteristic is an attribute row owned by exactly one product.
type Characteristic struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Value     string `json:"value"`
}

// Dimension is a tire-size row owned by exactly one product.
type Dimension struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	Width       int    `json:"width"`
	AspectRatio int    `json:"aspect_ratio"`
	RimDiameter int    `json:"rim_diameter"`
	LoadIndex   string `json:"load_index,omitempty"`
	SpeedRating string `json:"speed_rating,omitempty"`
}

// ModelDimensions is a row of the dimensions-by-model reference table used
// by the query API (brand, model, year) lookup.
type ModelDimensions struct {
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	Year     int    `json:"year"`
	Trim     string `json:"trim,omitempty"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Diameter int    `json:"diameter"`
}

// BrandCandidate is a product still missing its brand, with the description
// the deriver reads the leading token from.
type BrandCandidate struct {
	ID          int64
	Description string
}

// User is an API account permitted to query the cleaned catalog.
type User struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
