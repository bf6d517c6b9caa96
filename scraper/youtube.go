package scraper

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/kkdai/youtube/v2"

	"esscraper/logging"
)

// videoQualities is the preferred resolution order for YouTube streams.
var videoQualities = []string{"480p", "720p", "360p"}

// isYouTubeURL reports whether the URL points at a YouTube watch page, which
// must be resolved to a raw stream before downloading.
func isYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host == "youtube.com" || host == "m.youtube.com" || host == "youtu.be"
}

// downloadYouTube resolves a watch page to a progressive stream and writes it
// to dest. Resolutions are tried in preference order; a format without audio
// is only used when nothing better exists.
func (m *MediaDownloader) downloadYouTube(ctx context.Context, raw, dest string) error {
	video, err := m.yt.GetVideoContext(ctx, raw)
	if err != nil {
		return fmt.Errorf("failed to resolve youtube video: %w", err)
	}

	format := pickFormat(video)
	if format == nil {
		return fmt.Errorf("no downloadable stream for %q", raw)
	}
	logging.Info("found video stream", "quality", format.QualityLabel, "mime", format.MimeType)

	stream, _, err := m.yt.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("failed to open youtube stream: %w", err)
	}
	defer func() { _ = stream.Close() }()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, stream); err != nil {
		return err
	}

	logging.Info("downloaded", "path", dest)
	return nil
}

func pickFormat(video *youtube.Video) *youtube.Format {
	for _, quality := range videoQualities {
		if formats := video.Formats.Quality(quality).WithAudioChannels(); len(formats) > 0 {
			return &formats[0]
		}
	}
	if formats := video.Formats.WithAudioChannels(); len(formats) > 0 {
		return &formats[0]
	}
	if len(video.Formats) > 0 {
		return &video.Formats[0]
	}
	return nil
}
