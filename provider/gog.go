package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"esscraper/logging"
)

const gogBaseURL = "https://www.gog.com"

var (
	gogCardRe    = regexp.MustCompile(`cardProduct: \{.*`)
	gogGenreRe   = regexp.MustCompile(`eventLabel: 'CAT: ([^']*)'`)
	gogRatingRe  = regexp.MustCompile(`ratingValue[^0-9]*([0-9.]+)`)
	gogDateRe    = regexp.MustCompile(`globalReleaseDate":"(\d{4}-\d{2}-\d{2})T\d{2}:\d{2}:\d{2}`)
	gogISOLayout = "2006-01-02T15:04:05"
)

// gogCard is the embedded JSON product block found on every GOG product
// page. Only the fields the scraper consumes are modeled; the page shape is
// unversioned and everything here must degrade to "absent" when it changes.
type gogCard struct {
	Title             string `json:"title"`
	BoxArtImage       string `json:"boxArtImage"`
	Logo              string `json:"logo"`
	GlobalReleaseDate string `json:"globalReleaseDate"`
	Screenshots       []struct {
		ImageURL string `json:"imageUrl"`
	} `json:"screenshots"`
	Videos []struct {
		URL      string `json:"url"`
		Provider string `json:"provider"`
	} `json:"videos"`
}

// gogDetail carries the raw product page plus whatever could be parsed out
// of it up front. card is nil when the embedded JSON block was missing, in
// which case extractors fall back to scanning the raw HTML.
type gogDetail struct {
	html string
	doc  *goquery.Document
	card *gogCard
}

func (*gogDetail) Source() string { return "gog" }

// GOG scrapes game metadata from GOG.com storefront pages.
type GOG struct {
	client *resty.Client
}

// NewGOG creates a GOG.com provider. A nil client gets a default one
// pointed at the public storefront.
func NewGOG(client *resty.Client) *GOG {
	if client == nil {
		client = resty.New()
	}
	if client.BaseURL == "" {
		client.SetBaseURL(gogBaseURL)
	}
	return &GOG{client: client}
}

func (p *GOG) Name() string { return "gog" }

// Capabilities reflects what the GOG product page can supply. Title screens
// are not published for GOG titles.
func (p *GOG) Capabilities() Capabilities {
	return Capabilities{
		Data:    true,
		Cover:   true,
		Marquee: true,
		Title:   false,
		Screens: true,
		Video:   true,
	}
}

// Search runs a full-text query against the storefront search page and
// parses the product tiles out of the result HTML.
func (p *GOG) Search(ctx context.Context, query string) ([]Candidate, error) {
	logging.Info("searching GOG.com", "query", query)

	res, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":    query,
			"order":    "desc:score",
			"hideDLCs": "true",
		}).
		Get("/en/games")
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("search for %q returned status %d", query, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var candidates []Candidate
	doc.Find("a.product-tile").Each(func(i int, sel *goquery.Selection) {
		candidates = append(candidates, Candidate{
			ID:        i,
			Name:      sel.Find("div.product-tile__title").AttrOr("title", ""),
			DetailURL: sel.AttrOr("href", ""),
		})
	})

	logging.Info("search complete", "query", query, "found", len(candidates))
	return candidates, nil
}

// FetchDetail retrieves the product page and extracts the embedded JSON
// card. A page without the card still yields a usable detail; extractors
// then rely on their HTML fallbacks.
func (p *GOG) FetchDetail(ctx context.Context, c Candidate) (Detail, error) {
	logging.Info("retrieving game data from GOG.com", "url", c.DetailURL)

	res, err := p.client.R().SetContext(ctx).Get(c.DetailURL)
	if err != nil {
		return nil, fmt.Errorf("game page request failed: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("game page %q returned status %d", c.DetailURL, res.StatusCode())
	}

	html := string(res.Body())
	detail := &gogDetail{html: html}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		detail.doc = doc
	} else {
		logging.Warn("failed to parse game page HTML", "error", err)
	}

	detail.card = parseGOGCard(html)
	return detail, nil
}

// parseGOGCard locates the "cardProduct: {...}" line embedded in the page
// JavaScript and decodes the object literal, which is plain JSON up to a
// trailing comma.
func parseGOGCard(html string) *gogCard {
	match := gogCardRe.FindString(html)
	if match == "" {
		logging.Warn("no embedded GOG json data block found")
		return nil
	}

	raw := strings.TrimPrefix(match, "cardProduct: ")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), ",")

	card := &gogCard{}
	if err := json.Unmarshal([]byte(raw), card); err != nil {
		logging.Warn("failed to decode embedded GOG json data", "error", err)
		return nil
	}

	logging.Info("extracted GOG.com embedded json data")
	return card
}

func (p *GOG) detail(d Detail) *gogDetail {
	gd, ok := d.(*gogDetail)
	if !ok || gd == nil {
		return nil
	}
	return gd
}

func (p *GOG) Title(d Detail) string {
	gd := p.detail(d)
	if gd == nil || gd.card == nil {
		logging.Warn("title extraction requires the embedded GOG json data")
		return ""
	}
	logging.Info("found title", "title", gd.card.Title)
	return gd.card.Title
}

func (p *GOG) Description(d Detail) string {
	gd := p.detail(d)
	if gd == nil || gd.doc == nil {
		return ""
	}
	desc := strings.TrimSpace(gd.doc.Find("div.description").First().Text())
	if desc != "" {
		logging.Info("found description")
	}
	return desc
}

func (p *GOG) Developer(d Detail) string {
	gd := p.detail(d)
	if gd == nil || gd.doc == nil {
		return ""
	}
	dev := strings.TrimSpace(gd.doc.Find(`a[href^="/games?developers="]`).First().Text())
	if dev != "" {
		logging.Info("found developer", "developer", dev)
	}
	return dev
}

func (p *GOG) Publisher(d Detail) string {
	gd := p.detail(d)
	if gd == nil || gd.doc == nil {
		return ""
	}
	pub := strings.TrimSpace(gd.doc.Find(`a[href^="/games?publishers="]`).First().Text())
	if pub != "" {
		logging.Info("found publisher", "publisher", pub)
	}
	return pub
}

// Genre lives inside a tracking attribute, not a dedicated element, so it
// is pulled out of the raw page with a regex.
func (p *GOG) Genre(d Detail) string {
	gd := p.detail(d)
	if gd == nil {
		return ""
	}
	m := gogGenreRe.FindStringSubmatch(gd.html)
	if m == nil {
		return ""
	}
	logging.Info("found genre", "genre", m[1])
	return m[1]
}

// Rating scans the page for the schema.org ratingValue (a 5-point scale)
// and normalizes it to 0.0-1.0.
func (p *GOG) Rating(d Detail) float64 {
	gd := p.detail(d)
	if gd == nil {
		return 0
	}
	m := gogRatingRe.FindStringSubmatch(gd.html)
	if m == nil {
		return 0
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		logging.Warn("unable to parse rating value", "value", m[1], "error", err)
		return 0
	}
	rating := value / 5
	logging.Info("found rating", "rating", rating)
	return rating
}

// ReleaseDate prefers the card's globalReleaseDate ISO timestamp, truncated
// to date-only, and falls back to a regex scan of the raw page.
func (p *GOG) ReleaseDate(d Detail) time.Time {
	gd := p.detail(d)
	if gd == nil {
		return time.Time{}
	}

	if gd.card != nil && gd.card.GlobalReleaseDate != "" {
		if t, err := time.Parse(gogISOLayout, gd.card.GlobalReleaseDate); err == nil {
			logging.Info("found release date (data block)", "date", gd.card.GlobalReleaseDate)
			return t.Truncate(24 * time.Hour)
		}
		if t, err := time.Parse("2006-01-02", firstN(gd.card.GlobalReleaseDate, 10)); err == nil {
			logging.Info("found release date (data block)", "date", gd.card.GlobalReleaseDate)
			return t
		}
	}

	if m := gogDateRe.FindStringSubmatch(gd.html); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]); err == nil {
			logging.Info("found release date (regex)", "date", m[1])
			return t
		}
	}
	return time.Time{}
}

// Players cannot be extracted from the page markup; the single/multi player
// block carries no identifying class or id.
func (p *GOG) Players(d Detail) int { return 1 }

func (p *GOG) Cover(d Detail) (string, bool) {
	gd := p.detail(d)
	if gd == nil || gd.card == nil || gd.card.BoxArtImage == "" {
		return "", false
	}
	logging.Info("found cover art URL (data block)", "url", gd.card.BoxArtImage)
	return gd.card.BoxArtImage, true
}

func (p *GOG) Marquee(d Detail) (string, bool) {
	gd := p.detail(d)
	if gd == nil || gd.card == nil || gd.card.Logo == "" {
		return "", false
	}
	logging.Info("found marquee art URL (data block)", "url", gd.card.Logo)
	return gd.card.Logo, true
}

// TitleScreen is not supported on GOG titles.
func (p *GOG) TitleScreen(d Detail) (string, bool) { return "", false }

func (p *GOG) Screenshot(d Detail) (string, bool) {
	gd := p.detail(d)
	if gd == nil || gd.card == nil || len(gd.card.Screenshots) == 0 {
		return "", false
	}
	url := gd.card.Screenshots[0].ImageURL + ".jpg"
	logging.Info("found screenshot", "url", url, "total", len(gd.card.Screenshots))
	return url, true
}

// Video returns the first YouTube-hosted clip; other video sources are not
// downloadable and are skipped.
func (p *GOG) Video(d Detail) (string, bool) {
	gd := p.detail(d)
	if gd == nil || gd.card == nil {
		return "", false
	}
	for _, v := range gd.card.Videos {
		if v.Provider != "youtube" {
			logging.Info("found video with unsupported source", "url", v.URL, "source", v.Provider)
			continue
		}
		logging.Info("found video", "url", v.URL)
		return v.URL, true
	}
	return "", false
}

func firstN(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
