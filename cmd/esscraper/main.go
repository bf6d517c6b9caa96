// Command esscraper scrapes metadata and artwork for games in an
// EmulationStation folder from GOG.com or Steam and records the results in
// gamelist.xml.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"esscraper/catalog"
	"esscraper/config"
	"esscraper/gamelist"
	"esscraper/logging"
	"esscraper/provider"
	"esscraper/scraper"
	"esscraper/tracing"
)

var (
	flagProvider string
	flagRoms     string
	flagXML      string
	flagMedia    string
	flagData     bool
	flagArt      bool
	flagVideo    bool
	flagForce    bool
	flagStartAt  string
	flagGame     string
)

var rootCmd = &cobra.Command{
	Use:           "esscraper",
	Short:         "Scrape media and metadata for games in an EmulationStation folder",
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&flagProvider, "provider", "", `data provider: "gog" or "steam"`)
	rootCmd.Flags().StringVar(&flagRoms, "roms", "", "path to the folder of games to process")
	rootCmd.Flags().StringVar(&flagXML, "xml", "", "full path of the gamelist.xml to process")
	rootCmd.Flags().StringVar(&flagMedia, "media", "", "path to store downloaded media")
	rootCmd.Flags().BoolVarP(&flagData, "enable-data", "d", false, "enable text metadata downloading")
	rootCmd.Flags().BoolVarP(&flagArt, "enable-art", "a", false, "enable artwork (screens, titles, marquee, covers) image downloading")
	rootCmd.Flags().BoolVarP(&flagVideo, "enable-video", "v", false, "enable video downloading")
	rootCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "force overwrite of any existing artwork, video or metadata for each game")
	rootCmd.Flags().StringVar(&flagStartAt, "start-at", "", "only process files starting alphabetically at this letter")
	rootCmd.Flags().StringVar(&flagGame, "game", "", "only process this one filename")

	for _, required := range []string{"provider", "roms", "xml", "media"} {
		_ = rootCmd.MarkFlagRequired(required)
	}
}

// main is the only place that exits; run returns errors so its deferred
// cleanup (tracing flush, cache close) always executes first.
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Scraper will now exit.")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	logging.Setup(logging.Config{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})

	shutdown, err := tracing.Setup(ctx, tracing.DefaultConfig())
	if err != nil {
		logging.Error("failed to setup tracing", "error", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				logging.Error("failed to shutdown tracing", "error", err)
			}
		}()
	}

	logging.Info("scraper running",
		"data", flagData, "art", flagArt, "video", flagVideo, "overwrite", flagForce,
		"provider", flagProvider, "roms", flagRoms, "xml", flagXML, "media", flagMedia)

	p, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := gamelist.Open(flagXML)
	if err != nil {
		return fmt.Errorf("unable to open or create gamelist.xml: %w", err)
	}

	media := scraper.NewMediaDownloader(flagMedia, newClient(cfg))
	resolver := newConsoleResolver()

	service := scraper.NewService(store, p, media, resolver, scraper.Options{
		EnableData:  flagData,
		EnableArt:   flagArt,
		EnableVideo: flagVideo,
		Overwrite:   flagForce,
		StartAt:     flagStartAt,
		Game:        flagGame,
	})

	if err := service.Run(ctx, flagRoms); err != nil {
		logging.Error("scrape run failed", "error", err)
		return errors.New("scraping aborted")
	}
	return nil
}

func newClient(cfg *config.Config) *resty.Client {
	return resty.New().
		SetTimeout(cfg.HTTP.Timeout).
		SetHeader("User-Agent", cfg.HTTP.UserAgent)
}

func buildProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch strings.ToUpper(flagProvider) {
	case "GOG":
		return provider.NewGOG(newClient(cfg)), nil
	case "STEAM":
		cache, err := catalog.Open(cfg.Steam.CachePath)
		if err != nil {
			logging.Warn("app catalog cache unavailable", "error", err)
			cache = nil
		} else {
			defer func() { _ = cache.Close() }()
		}

		apps, err := provider.LoadAppList(ctx, newClient(cfg), cache, cfg.Steam.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to load Steam app catalog: %w", err)
		}
		return provider.NewSteam(apps, newClient(cfg)), nil
	default:
		return nil, errors.New("you must set the provider to be either 'gog' or 'steam'")
	}
}
