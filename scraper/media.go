package scraper

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
	"github.com/kkdai/youtube/v2"

	"esscraper/logging"
)

// artDirs maps art categories to the media subdirectories EmulationStation
// expects.
var artDirs = map[string]string{
	"screens": "screenshots",
	"cover":   "covers",
	"marquee": "marquees",
	"title":   "titlescreens",
}

// MediaDownloader streams artwork and video files into the media directory
// tree.
type MediaDownloader struct {
	client *resty.Client
	yt     *youtube.Client
	root   string
}

// NewMediaDownloader creates a downloader rooted at the given media
// directory. A nil client gets a default one.
func NewMediaDownloader(root string, client *resty.Client) *MediaDownloader {
	if client == nil {
		client = resty.New()
	}
	return &MediaDownloader{client: client, yt: &youtube.Client{}, root: root}
}

// DownloadArt fetches one artwork image into the category subdirectory as
// <baseName>.jpg. Existing files are kept unless overwrite is set. The
// target subdirectory must already exist.
func (m *MediaDownloader) DownloadArt(ctx context.Context, artType, url, baseName string, overwrite bool) error {
	subdir, ok := artDirs[artType]
	if !ok {
		return fmt.Errorf("unknown art type %q", artType)
	}

	dir := filepath.Join(m.root, subdir)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("download path %s does not exist", dir)
	}

	logging.Info("downloading art", "type", artType, "url", url)
	return m.download(ctx, url, filepath.Join(dir, baseName+".jpg"), overwrite)
}

// DownloadVideo fetches a video into videos/<baseName>.mp4. Direct mp4 URLs
// are streamed as-is; YouTube watch pages are first resolved to a progressive
// stream, since fetching the page itself would save HTML.
func (m *MediaDownloader) DownloadVideo(ctx context.Context, url, baseName string, overwrite bool) error {
	dir := filepath.Join(m.root, "videos")
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("download path %s does not exist", dir)
	}
	dest := filepath.Join(dir, baseName+".mp4")

	logging.Info("downloading video stream", "url", url)
	if isYouTubeURL(url) {
		if _, err := os.Stat(dest); err == nil && !overwrite {
			logging.Info("already exists, skipping (hint: -f to overwrite)", "path", dest)
			return nil
		}
		return m.downloadYouTube(ctx, url, dest)
	}
	return m.download(ctx, url, dest, overwrite)
}

func (m *MediaDownloader) download(ctx context.Context, url, dest string, overwrite bool) error {
	if _, err := os.Stat(dest); err == nil && !overwrite {
		logging.Info("already exists, skipping (hint: -f to overwrite)", "path", dest)
		return nil
	}

	res, err := m.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	body := res.RawBody()
	defer func() { _ = body.Close() }()

	if res.StatusCode() != 200 {
		return fmt.Errorf("download of %q returned status %d", url, res.StatusCode())
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, body); err != nil {
		return err
	}

	logging.Info("downloaded", "path", dest)
	return nil
}
