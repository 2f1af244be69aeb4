// Package transcript fetches the caption track of a YouTube video as plain text.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"cavision/internal/cache"
	"cavision/internal/logger"

	"github.com/kkdai/youtube/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidURL       = errors.New("not a YouTube video link")
	ErrVideoUnavailable = errors.New("video is unavailable")
	ErrNoCaptions       = errors.New("transcript is disabled on this video")
)

// Source returns the caption segments of a video in playback order.
type Source interface {
	Transcript(ctx context.Context, videoID string) ([]string, error)
}

type Fetcher struct {
	source   Source
	cache    *cache.TextCache
	maxChars int
	log      *logger.Logger
	group    singleflight.Group
}

type Option func(*Fetcher)

// WithSource replaces the YouTube client; used by tests.
func WithSource(s Source) Option {
	return func(f *Fetcher) { f.source = s }
}

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.source = NewYouTubeSource(c) }
}

func NewFetcher(c *cache.TextCache, maxChars int, log *logger.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:   NewYouTubeSource(&http.Client{Timeout: 20 * time.Second}),
		cache:    c,
		maxChars: maxChars,
		log:      log,
	}
	if f.log == nil {
		f.log = logger.Nop()
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the transcript text for a video link, truncated to maxChars.
// Concurrent requests for the same video share one download.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	id, ok := VideoID(strings.TrimSpace(rawURL))
	if !ok {
		return "", ErrInvalidURL
	}

	if text, hit, err := f.cache.Get(ctx, id); err != nil {
		f.log.Warn("transcript cache read failed", "video_id", id, "error", err)
	} else if hit {
		return text, nil
	}

	v, err, shared := f.group.Do(id, func() (interface{}, error) {
		text, err := f.download(ctx, id)
		if err != nil {
			return "", err
		}
		if err := f.cache.Set(ctx, id, text); err != nil {
			f.log.Warn("transcript cache write failed", "video_id", id, "error", err)
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	f.log.Debug("transcript fetched", "video_id", id, "shared", shared)
	return v.(string), nil
}

func (f *Fetcher) download(ctx context.Context, id string) (string, error) {
	segments, err := f.source.Transcript(ctx, id)
	if err != nil {
		return "", err
	}
	parts := lo.FilterMap(segments, func(s string, _ int) (string, bool) {
		s = cleanCaption(s)
		return s, s != ""
	})
	if len(parts) == 0 {
		return "", ErrNoCaptions
	}
	return truncate(strings.Join(parts, " "), f.maxChars), nil
}

// YouTubeSource reads captions through the innertube API.
type YouTubeSource struct {
	client *youtube.Client
}

func NewYouTubeSource(hc *http.Client) *YouTubeSource {
	return &YouTubeSource{client: &youtube.Client{HTTPClient: hc}}
}

func (s *YouTubeSource) Transcript(ctx context.Context, videoID string) ([]string, error) {
	video, err := s.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVideoUnavailable, err)
	}
	lang := pickLanguage(video.CaptionTracks)
	if lang == "" {
		return nil, ErrNoCaptions
	}
	transcript, err := s.client.GetTranscriptCtx(ctx, video, lang)
	if errors.Is(err, youtube.ErrTranscriptDisabled) {
		return nil, ErrNoCaptions
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transcript: %w", err)
	}
	return lo.Map(transcript, func(seg youtube.TranscriptSegment, _ int) string { return seg.Text }), nil
}

// pickLanguage prefers a manual English track, then auto-generated English,
// then whatever comes first.
func pickLanguage(tracks []youtube.CaptionTrack) string {
	var manualEn, autoEn, first string
	for _, t := range tracks {
		if t.LanguageCode == "" {
			continue
		}
		if first == "" {
			first = t.LanguageCode
		}
		if !strings.HasPrefix(t.LanguageCode, "en") {
			continue
		}
		if t.Kind == "asr" {
			if autoEn == "" {
				autoEn = t.LanguageCode
			}
		} else if manualEn == "" {
			manualEn = t.LanguageCode
		}
	}
	for _, l := range []string{manualEn, autoEn, first} {
		if l != "" {
			return l
		}
	}
	return ""
}

func cleanCaption(s string) string {
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
