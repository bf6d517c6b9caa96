package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"esscraper/catalog"
	"esscraper/logging"
)

const (
	steamStoreBaseURL = "https://store.steampowered.com"
	steamAppPageURL   = "https://store.steampowered.com/app/"
	steamAPIBaseURL   = "http://api.steampowered.com"
	steamAppListPath  = "/ISteamApps/GetAppList/v2/"

	// Local fuzzy-match threshold against the app catalog, out of 100.
	steamMatchThreshold = 75
)

// steamCookies bypass the storefront age gate on mature titles.
var steamCookies = []*http.Cookie{
	{Name: "birthtime", Value: "470682001"},
	{Name: "lastagecheck", Value: "1-0-1985"},
	{Name: "mature_content", Value: "1"},
}

// App is one appid/name pair from Steam's global app catalog.
type App struct {
	AppID int    `json:"appid"`
	Name  string `json:"name"`
}

// steamData is the "data" member of an appdetails response.
type steamData struct {
	Name                string   `json:"name"`
	DetailedDescription string   `json:"detailed_description"`
	Developers          []string `json:"developers"`
	Publishers          []string `json:"publishers"`
	Genres              []struct {
		Description string `json:"description"`
	} `json:"genres"`
	Metacritic *struct {
		Score float64 `json:"score"`
	} `json:"metacritic"`
	ReleaseDate struct {
		Date string `json:"date"`
	} `json:"release_date"`
	HeaderImage  string `json:"header_image"`
	CapsuleImage string `json:"capsule_image"`
	Screenshots  []struct {
		PathFull string `json:"path_full"`
	} `json:"screenshots"`
	Movies []struct {
		MP4 map[string]string `json:"mp4"`
	} `json:"movies"`
}

type steamDetail struct {
	data *steamData
}

func (*steamDetail) Source() string { return "steam" }

// Steam answers metadata queries from the Steam web API. Searching is local
// against the pre-fetched app catalog; only detail lookups hit the store.
type Steam struct {
	client *resty.Client
	apps   []App
}

// NewSteam creates a Steam provider over an already-loaded app catalog.
// A nil client gets a default one pointed at the public store.
func NewSteam(apps []App, client *resty.Client) *Steam {
	if client == nil {
		client = resty.New()
	}
	if client.BaseURL == "" {
		client.SetBaseURL(steamStoreBaseURL)
	}
	return &Steam{client: client, apps: apps}
}

// FetchAppList downloads Steam's global appid catalog.
func FetchAppList(ctx context.Context, client *resty.Client) ([]App, error) {
	if client == nil {
		client = resty.New()
	}
	if client.BaseURL == "" {
		client.SetBaseURL(steamAPIBaseURL)
	}

	logging.Info("retrieving Steam app entries", "url", client.BaseURL+steamAppListPath)

	res, err := client.R().
		SetContext(ctx).
		SetCookies(steamCookies).
		Get(steamAppListPath)
	if err != nil {
		return nil, fmt.Errorf("applist request failed: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("applist returned status %d", res.StatusCode())
	}

	var payload struct {
		AppList struct {
			Apps []App `json:"apps"`
		} `json:"applist"`
	}
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode applist: %w", err)
	}

	logging.Info("retrieved Steam app entries", "found", len(payload.AppList.Apps))
	return payload.AppList.Apps, nil
}

// LoadAppList returns the Steam app catalog, preferring a cache younger
// than ttl. A broken or stale cache degrades to a direct fetch, and a fresh
// fetch is written back on a best-effort basis.
func LoadAppList(ctx context.Context, client *resty.Client, cache *catalog.Cache, ttl time.Duration) ([]App, error) {
	if cache != nil {
		entries, fetchedAt, err := cache.Load()
		if err != nil {
			logging.Warn("failed to read app catalog cache", "error", err)
		} else if len(entries) > 0 && time.Since(fetchedAt) < ttl {
			logging.Info("using cached Steam app catalog", "entries", len(entries), "fetched_at", fetchedAt)
			apps := make([]App, len(entries))
			for i, e := range entries {
				apps[i] = App{AppID: e.AppID, Name: e.Name}
			}
			return apps, nil
		}
	}

	apps, err := FetchAppList(ctx, client)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		entries := make([]catalog.Entry, len(apps))
		for i, a := range apps {
			entries[i] = catalog.Entry{AppID: a.AppID, Name: a.Name}
		}
		if err := cache.Replace(entries); err != nil {
			logging.Warn("failed to update app catalog cache", "error", err)
		}
	}

	return apps, nil
}

func (p *Steam) Name() string { return "steam" }

// Capabilities reflects the appdetails payload. Title screens have no
// dedicated asset on Steam.
func (p *Steam) Capabilities() Capabilities {
	return Capabilities{
		Data:    true,
		Cover:   true,
		Marquee: true,
		Title:   false,
		Screens: true,
		Video:   true,
	}
}

// Search matches the query against the local app catalog: a case-insensitive
// substring hit or a token-sort similarity above the threshold qualifies.
func (p *Steam) Search(ctx context.Context, query string) ([]Candidate, error) {
	logging.Info("searching local Steam apps", "apps", len(p.apps), "query", query)

	upper := strings.ToUpper(query)
	var candidates []Candidate
	for _, app := range p.apps {
		if !strings.Contains(strings.ToUpper(app.Name), upper) &&
			TokenSortRatio(query, app.Name) <= steamMatchThreshold {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:        len(candidates),
			Ref:       strconv.Itoa(app.AppID),
			Name:      app.Name,
			DetailURL: steamAppPageURL + strconv.Itoa(app.AppID),
		})
	}

	logging.Info("search complete", "query", query, "found", len(candidates))
	return candidates, nil
}

// FetchDetail calls the appdetails API for the candidate's appid. A
// response without a success=true envelope yields a nil detail, which
// callers must treat as "no data".
func (p *Steam) FetchDetail(ctx context.Context, c Candidate) (Detail, error) {
	logging.Info("retrieving game data from Steam", "appid", c.Ref)

	res, err := p.client.R().
		SetContext(ctx).
		SetCookies(steamCookies).
		SetQueryParam("appids", c.Ref).
		Get("/api/appdetails")
	if err != nil {
		return nil, fmt.Errorf("appdetails request failed: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("appdetails for %s returned status %d", c.Ref, res.StatusCode())
	}

	var payload map[string]struct {
		Success bool       `json:"success"`
		Data    *steamData `json:"data"`
	}
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode appdetails: %w", err)
	}

	entry, ok := payload[c.Ref]
	if !ok || !entry.Success || entry.Data == nil {
		logging.Warn("Steam reported no data for app", "appid", c.Ref)
		return nil, nil
	}
	return &steamDetail{data: entry.Data}, nil
}

func (p *Steam) detail(d Detail) *steamData {
	sd, ok := d.(*steamDetail)
	if !ok || sd == nil {
		return nil
	}
	return sd.data
}

func (p *Steam) Title(d Detail) string {
	data := p.detail(d)
	if data == nil {
		logging.Warn("title extraction requires the appdetails data")
		return ""
	}
	logging.Info("found title", "title", data.Name)
	return data.Name
}

// Description strips the HTML markup Steam embeds in its detailed
// description before returning the plain text.
func (p *Steam) Description(d Detail) string {
	data := p.detail(d)
	if data == nil || data.DetailedDescription == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(data.DetailedDescription))
	if err != nil {
		logging.Warn("unable to strip description markup", "error", err)
		return data.DetailedDescription
	}
	logging.Info("found description")
	return doc.Text()
}

func (p *Steam) Developer(d Detail) string {
	data := p.detail(d)
	if data == nil || len(data.Developers) == 0 {
		return ""
	}
	dev := strings.Join(data.Developers, ", ")
	logging.Info("found developer", "developer", dev)
	return dev
}

func (p *Steam) Publisher(d Detail) string {
	data := p.detail(d)
	if data == nil || len(data.Publishers) == 0 {
		return ""
	}
	pub := strings.Join(data.Publishers, ", ")
	logging.Info("found publisher", "publisher", pub)
	return pub
}

func (p *Steam) Genre(d Detail) string {
	data := p.detail(d)
	if data == nil || len(data.Genres) == 0 {
		return ""
	}
	logging.Info("found genre", "genre", data.Genres[0].Description)
	return data.Genres[0].Description
}

// Rating normalizes the 100-point Metacritic score to 0.0-1.0.
func (p *Steam) Rating(d Detail) float64 {
	data := p.detail(d)
	if data == nil || data.Metacritic == nil {
		return 0
	}
	rating := data.Metacritic.Score / 100
	logging.Info("found rating", "rating", rating)
	return rating
}

// ReleaseDate reparses Steam's "DD Mon, YYYY" textual date into a date
// value with a zeroed time component.
func (p *Steam) ReleaseDate(d Detail) time.Time {
	data := p.detail(d)
	if data == nil || data.ReleaseDate.Date == "" {
		return time.Time{}
	}
	t, err := time.Parse("2 Jan, 2006", data.ReleaseDate.Date)
	if err != nil {
		logging.Warn("unable to parse release date", "date", data.ReleaseDate.Date, "error", err)
		return time.Time{}
	}
	logging.Info("found release date", "date", t.Format("2006-01-02"))
	return t
}

func (p *Steam) Players(d Detail) int { return 1 }

// Cover uses the store header image.
func (p *Steam) Cover(d Detail) (string, bool) {
	data := p.detail(d)
	if data == nil || data.HeaderImage == "" {
		return "", false
	}
	logging.Info("found cover", "url", data.HeaderImage)
	return data.HeaderImage, true
}

// Marquee uses the capsule image.
func (p *Steam) Marquee(d Detail) (string, bool) {
	data := p.detail(d)
	if data == nil || data.CapsuleImage == "" {
		return "", false
	}
	logging.Info("found marquee", "url", data.CapsuleImage)
	return data.CapsuleImage, true
}

// TitleScreen is not supported on Steam titles.
func (p *Steam) TitleScreen(d Detail) (string, bool) { return "", false }

func (p *Steam) Screenshot(d Detail) (string, bool) {
	data := p.detail(d)
	if data == nil || len(data.Screenshots) == 0 {
		return "", false
	}
	logging.Info("found screenshot", "url", data.Screenshots[0].PathFull, "total", len(data.Screenshots))
	return data.Screenshots[0].PathFull, true
}

// Video returns the 480p MP4 rendition of the first store movie.
func (p *Steam) Video(d Detail) (string, bool) {
	data := p.detail(d)
	if data == nil {
		return "", false
	}
	for _, m := range data.Movies {
		if url, ok := m.MP4["480"]; ok && url != "" {
			logging.Info("found video", "url", url)
			return url, true
		}
	}
	return "", false
}
