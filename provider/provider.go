// Package provider defines the metadata provider contract and its two
// implementations: the GOG.com storefront scraper and the Steam web API
// client.
package provider

import (
	"context"
	"time"
)

// Candidate is one search-result row for a title query, not yet confirmed
// as the correct match. ID is the 0-based ordinal within its search and is
// stable only for that search.
type Candidate struct {
	ID        int
	Ref       string // opaque provider identifier (e.g. a Steam appid)
	Name      string
	DetailURL string
}

// Capabilities declares which metadata/media categories a provider can ever
// supply. Callers consult this before invoking the matching extractor.
type Capabilities struct {
	Data    bool
	Cover   bool
	Marquee bool
	Title   bool
	Screens bool
	Video   bool
}

// Detail is the provider-specific parsed representation from which all
// per-field extractors read. It is returned by FetchDetail and threaded
// explicitly to every extractor; extractors hold no fetch-order state.
type Detail interface {
	// Source names the provider this detail came from.
	Source() string
}

// Provider is the capability set shared by both catalog backends. Extractors
// are best-effort and independently failing: a missing value yields the
// type-appropriate zero (empty string, 0, zeroed time) and media extractors
// report ok=false when the category is unavailable for this title.
type Provider interface {
	Name() string
	Capabilities() Capabilities

	Search(ctx context.Context, query string) ([]Candidate, error)
	FetchDetail(ctx context.Context, c Candidate) (Detail, error)

	Title(d Detail) string
	Description(d Detail) string
	Developer(d Detail) string
	Publisher(d Detail) string
	Genre(d Detail) string
	Rating(d Detail) float64
	ReleaseDate(d Detail) time.Time
	Players(d Detail) int

	Cover(d Detail) (string, bool)
	Marquee(d Detail) (string, bool)
	TitleScreen(d Detail) (string, bool)
	Screenshot(d Detail) (string, bool)
	Video(d Detail) (string, bool)
}
