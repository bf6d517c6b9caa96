// Package scraper drives the per-file scrape loop: search, disambiguate,
// fetch, extract, download media and persist to the gamelist.
package scraper

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"esscraper/gamelist"
	"esscraper/logging"
	"esscraper/provider"
	"esscraper/tracing"
)

// Options are the per-run feature toggles and batch filters.
type Options struct {
	EnableData  bool
	EnableArt   bool
	EnableVideo bool
	Overwrite   bool
	StartAt     string // process files starting alphabetically at this letter
	Game        string // process only this exact filename
}

// Resolver is the disambiguation port. Present renders the ranked candidate
// table; Choose blocks for a selection and reports ok=false when no valid
// selection was made. The core never touches stdin itself.
type Resolver interface {
	Present(candidates []provider.Candidate)
	Choose(candidates []provider.Candidate) (int, bool)
}

// Service orchestrates one scraping run over a ROM folder.
type Service struct {
	store    *gamelist.Store
	provider provider.Provider
	media    *MediaDownloader
	resolver Resolver
	opts     Options
}

// NewService wires a scraping run together.
func NewService(store *gamelist.Store, p provider.Provider, media *MediaDownloader, resolver Resolver, opts Options) *Service {
	return &Service{store: store, provider: p, media: media, resolver: resolver, opts: opts}
}

// Run processes every file in romPath sequentially. Individual files fail
// soft (logged and skipped); only listing the folder or writing the
// gamelist can abort the run.
func (s *Service) Run(ctx context.Context, romPath string) error {
	files, err := listROMs(romPath)
	if err != nil {
		return fmt.Errorf("failed to list rom folder: %w", err)
	}
	files = s.filterFiles(files)

	names := s.store.Names()
	logging.Info("found gamelist entries", "count", len(names))

	for _, f := range files {
		persisted, err := s.processFile(ctx, f, names)
		if err != nil {
			return err
		}
		if persisted {
			// Subsequent files must see up-to-date "already has an
			// entry" status.
			names = s.store.Names()
		}
	}
	return nil
}

// listROMs returns the regular files in path, in directory order.
func listROMs(path string) ([]string, error) {
	logging.Info("getting game names", "path", path)

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}

	logging.Info("found games", "count", len(files))
	return files, nil
}

func (s *Service) filterFiles(files []string) []string {
	if s.opts.Game != "" {
		if slices.Contains(files, s.opts.Game) {
			return []string{s.opts.Game}
		}
		logging.Warn("requested game not found in rom folder", "game", s.opts.Game)
		return nil
	}

	if s.opts.StartAt != "" {
		start := strings.ToUpper(s.opts.StartAt)
		var kept []string
		for _, f := range files {
			if strings.ToUpper(f) >= start {
				kept = append(kept, f)
			}
		}
		return kept
	}

	return files
}

// processFile runs the full state machine for one local file. The returned
// bool reports whether the gamelist was written; the error is non-nil only
// for gamelist write failures, which abort the whole run.
func (s *Service) processFile(ctx context.Context, file string, knownNames []string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "scrape.file")
	defer span.End()
	span.SetAttributes(attribute.String("file", file))

	key := StripName(file)

	candidates, err := s.provider.Search(ctx, key)
	if err != nil {
		logging.Warn("search failed", "query", key, "error", err)
		candidates = nil
	}

	s.resolver.Present(candidates)
	if len(candidates) == 0 {
		return false, nil
	}

	chosen, ok := s.selectCandidate(key, candidates)
	if !ok {
		return false, nil
	}
	logging.Info("continuing", "id", chosen.ID, "name", chosen.Name)

	detail, err := s.provider.FetchDetail(ctx, chosen)
	if err != nil {
		logging.Warn("failed to fetch game details", "name", chosen.Name, "error", err)
		return false, nil
	}
	if detail == nil {
		logging.Warn("provider returned no data", "name", chosen.Name)
		return false, nil
	}

	rec, mediaURLs := s.extract(detail, file, key, chosen)
	s.downloadMedia(ctx, mediaURLs, key)

	if !s.opts.EnableData {
		return false, nil
	}

	hasEntry := slices.Contains(knownNames, file)
	if hasEntry {
		if s.opts.Overwrite {
			logging.Info("updating existing gamelist.xml entry")
		} else {
			logging.Info("updating existing gamelist.xml entry (missing fields only)")
		}
		if err := s.store.Update(rec, s.opts.Overwrite); err != nil {
			return false, fmt.Errorf("failed to update gamelist: %w", err)
		}
	} else {
		logging.Info("creating new gamelist.xml entry")
		if err := s.store.Insert(rec, s.opts.Overwrite); err != nil {
			return false, fmt.Errorf("failed to write gamelist: %w", err)
		}
	}
	return true, nil
}

// selectCandidate auto-accepts a lone case-insensitive exact match and
// otherwise defers to the resolver. Any invalid selection skips the file.
func (s *Service) selectCandidate(key string, candidates []provider.Candidate) (provider.Candidate, bool) {
	if len(candidates) == 1 && strings.EqualFold(candidates[0].Name, key) {
		logging.Info("got one exact match", "name", candidates[0].Name)
		return candidates[0], true
	}

	idx, ok := s.resolver.Choose(candidates)
	if !ok || idx < 0 || idx >= len(candidates) {
		logging.Warn("not a valid found game ID, skipping file")
		return provider.Candidate{}, false
	}
	return candidates[idx], true
}

// mediaSet holds the representative URL per media category, when one was
// both supported and found.
type mediaSet struct {
	cover   string
	marquee string
	title   string
	screens string
	video   string
}

// extract populates the gamelist record and media URLs, gated by the
// provider capability table and the run's feature flags. Text destined for
// the frontend is forced to printable ASCII.
func (s *Service) extract(detail provider.Detail, file, key string, chosen provider.Candidate) (gamelist.Record, mediaSet) {
	caps := s.provider.Capabilities()

	rec := gamelist.Record{Path: file, Name: key, Players: 1}
	if chosen.Name != "" {
		rec.Name = chosen.Name
	}

	if caps.Data && s.opts.EnableData {
		if title := s.provider.Title(detail); title != "" {
			rec.Name = title
		}
		rec.Description = s.provider.Description(detail)
		rec.Developer = s.provider.Developer(detail)
		rec.Publisher = s.provider.Publisher(detail)
		rec.Genre = s.provider.Genre(detail)
		rec.Rating = s.provider.Rating(detail)
		rec.ReleaseDate = s.provider.ReleaseDate(detail)
		rec.Players = s.provider.Players(detail)

		rec.Name = ToASCII(rec.Name)
		rec.Description = ToASCII(rec.Description)
		rec.Developer = ToASCII(rec.Developer)
		rec.Publisher = ToASCII(rec.Publisher)
	}

	var urls mediaSet

	if caps.Video {
		if s.opts.EnableVideo {
			urls.video, _ = s.provider.Video(detail)
		} else {
			logging.Info("video downloads are disabled (hint: -v to retrieve video)")
		}
	} else {
		logging.Info("provider does not support video")
	}

	artSlots := []struct {
		name      string
		supported bool
		extract   func(provider.Detail) (string, bool)
		dest      *string
	}{
		{"title screens", caps.Title, s.provider.TitleScreen, &urls.title},
		{"screenshots", caps.Screens, s.provider.Screenshot, &urls.screens},
		{"marquee images", caps.Marquee, s.provider.Marquee, &urls.marquee},
		{"cover or box art", caps.Cover, s.provider.Cover, &urls.cover},
	}
	for _, slot := range artSlots {
		if !slot.supported {
			logging.Info("provider does not support " + slot.name)
			continue
		}
		if !s.opts.EnableArt {
			logging.Info("artwork downloading is disabled (hint: -a to retrieve artwork)", "type", slot.name)
			continue
		}
		*slot.dest, _ = slot.extract(detail)
	}

	return rec, urls
}

// downloadMedia pulls every collected URL. Each download fails soft.
func (s *Service) downloadMedia(ctx context.Context, urls mediaSet, baseName string) {
	if s.opts.EnableArt {
		art := []struct {
			artType string
			url     string
		}{
			{"screens", urls.screens},
			{"title", urls.title},
			{"marquee", urls.marquee},
			{"cover", urls.cover},
		}
		for _, a := range art {
			if a.url == "" {
				continue
			}
			if err := s.media.DownloadArt(ctx, a.artType, a.url, baseName, s.opts.Overwrite); err != nil {
				logging.Warn("art download failed", "type", a.artType, "error", err)
			}
		}
	}

	if s.opts.EnableVideo && urls.video != "" {
		if err := s.media.DownloadVideo(ctx, urls.video, baseName, s.opts.Overwrite); err != nil {
			logging.Warn("video download failed", "error", err)
		}
	}
}
