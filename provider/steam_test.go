package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testApps = []App{
	{AppID: 220, Name: "Half-Life 2"},
	{AppID: 70, Name: "Half-Life"},
	{AppID: 413150, Name: "Stardew Valley"},
	{AppID: 999, Name: "Completely Unrelated Tool"},
}

func TestSteamSearchSubstring(t *testing.T) {
	p := NewSteam(testApps, nil)

	candidates, err := p.Search(context.Background(), "half-life")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, 0, candidates[0].ID)
	assert.Equal(t, "220", candidates[0].Ref)
	assert.Equal(t, "Half-Life 2", candidates[0].Name)
	assert.Equal(t, "https://store.steampowered.com/app/220", candidates[0].DetailURL)
	assert.Equal(t, 1, candidates[1].ID)
	assert.Equal(t, "70", candidates[1].Ref)
}

func TestSteamSearchFuzzy(t *testing.T) {
	p := NewSteam([]App{{AppID: 1, Name: "Stardew Valley"}}, nil)

	// Not a substring hit, but close enough to clear the 75/100 bar.
	candidates, err := p.Search(context.Background(), "Stardew Vally")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Stardew Valley", candidates[0].Name)
}

func TestSteamSearchNoMatch(t *testing.T) {
	p := NewSteam(testApps, nil)

	candidates, err := p.Search(context.Background(), "Doom Eternal")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

const steamDetailBody = `{
	"220": {
		"success": true,
		"data": {
			"name": "Half-Life 2",
			"detailed_description": "<p>The <b>Seven Hour War</b> is lost.</p>",
			"developers": ["Valve"],
			"publishers": ["Valve", "Sierra"],
			"genres": [{"id": "1", "description": "Action"}, {"id": "23", "description": "Adventure"}],
			"metacritic": {"score": 96},
			"release_date": {"coming_soon": false, "date": "04 Sep, 2023"},
			"header_image": "https://cdn.steam/header.jpg",
			"capsule_image": "https://cdn.steam/capsule.jpg",
			"screenshots": [{"path_full": "https://cdn.steam/shot1.jpg"}, {"path_full": "https://cdn.steam/shot2.jpg"}],
			"movies": [{"mp4": {"480": "https://cdn.steam/movie480.mp4", "max": "https://cdn.steam/moviemax.mp4"}}]
		}
	}
}`

func newTestSteam(t *testing.T, handler http.Handler) *Steam {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSteam(testApps, resty.New().SetBaseURL(srv.URL))
}

func TestSteamFetchDetailAndExtractors(t *testing.T) {
	p := newTestSteam(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/appdetails", r.URL.Path)
		assert.Equal(t, "220", r.URL.Query().Get("appids"))

		cookie, err := r.Cookie("mature_content")
		require.NoError(t, err)
		assert.Equal(t, "1", cookie.Value)

		_, _ = w.Write([]byte(steamDetailBody))
	}))

	detail, err := p.FetchDetail(context.Background(), Candidate{Ref: "220", Name: "Half-Life 2"})
	require.NoError(t, err)
	require.NotNil(t, detail)

	assert.Equal(t, "Half-Life 2", p.Title(detail))
	assert.Equal(t, "The Seven Hour War is lost.", p.Description(detail))
	assert.Equal(t, "Valve", p.Developer(detail))
	assert.Equal(t, "Valve, Sierra", p.Publisher(detail))
	assert.Equal(t, "Action", p.Genre(detail))

	// 100-point scale normalized to 0.0-1.0
	assert.InDelta(t, 0.96, p.Rating(detail), 0.0001)

	assert.Equal(t, time.Date(2023, 9, 4, 0, 0, 0, 0, time.UTC), p.ReleaseDate(detail))
	assert.Equal(t, 1, p.Players(detail))

	cover, ok := p.Cover(detail)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.steam/header.jpg", cover)

	marquee, ok := p.Marquee(detail)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.steam/capsule.jpg", marquee)

	_, ok = p.TitleScreen(detail)
	assert.False(t, ok)

	shot, ok := p.Screenshot(detail)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.steam/shot1.jpg", shot)

	video, ok := p.Video(detail)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.steam/movie480.mp4", video)
}

func TestSteamFetchDetailSuccessFalse(t *testing.T) {
	p := newTestSteam(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"999": {"success": false}}`)
	}))

	detail, err := p.FetchDetail(context.Background(), Candidate{Ref: "999"})
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestSteamFetchDetailHTTPError(t *testing.T) {
	p := newTestSteam(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := p.FetchDetail(context.Background(), Candidate{Ref: "220"})
	assert.Error(t, err)
}

func TestSteamExtractorsOnMissingFields(t *testing.T) {
	p := NewSteam(nil, nil)
	detail := &steamDetail{data: &steamData{Name: "Bare"}}

	assert.Equal(t, "Bare", p.Title(detail))
	assert.Equal(t, "", p.Description(detail))
	assert.Equal(t, "", p.Developer(detail))
	assert.Equal(t, "", p.Genre(detail))
	assert.Equal(t, float64(0), p.Rating(detail))
	assert.True(t, p.ReleaseDate(detail).IsZero())

	_, ok := p.Cover(detail)
	assert.False(t, ok)
	_, ok = p.Video(detail)
	assert.False(t, ok)
}

func TestFetchAppList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"applist": {"apps": [{"appid": 220, "name": "Half-Life 2"}]}}`)
	}))
	t.Cleanup(srv.Close)

	apps, err := FetchAppList(context.Background(), resty.New().SetBaseURL(srv.URL))
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, 220, apps[0].AppID)
	assert.Equal(t, "Half-Life 2", apps[0].Name)
}
