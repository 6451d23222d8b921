// Package resolve turns search terms and platform links into direct media URLs.
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

// ErrNoMedia means resolution finished without a playable URL.
var ErrNoMedia = errors.New("no playable media found")

// Track is a resolved audio stream. DurationSec may be 0 for unknown.
type Track struct {
	URL         string
	Title       string
	DurationSec int
}

const (
	audioFormats = "251/250/249/bestaudio[ext=webm]/bestaudio[ext=m4a]/bestaudio/best"
	browserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36"
	watchURL     = "https://www.youtube.com/watch?v="
	minVideoID   = 8

	defaultTitle = "Untitled"
)

var (
	linkPattern      = regexp.MustCompile(`(?i)^https?://`)
	shortLinkPattern = regexp.MustCompile(`(?i)youtu\.?be`)
	videoIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// lookupFunc runs one yt-dlp metadata dump. flat selects the single-result
// search mode; otherwise target is looked up directly.
type lookupFunc func(ctx context.Context, target string, flat bool) ([]byte, error)

// YouTube resolves music queries through yt-dlp.
type YouTube struct {
	lookup lookupFunc
	log    *slog.Logger
}

// NewYouTube creates a resolver backed by the yt-dlp binary.
func NewYouTube(log *slog.Logger) *YouTube {
	return &YouTube{lookup: ytdlpLookup, log: log}
}

// lookupInfo covers both response shapes yt-dlp produces: a flat playlist
// with entries, or a single object.
type lookupInfo struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Fulltitle string       `json:"fulltitle"`
	Duration  float64      `json:"duration"`
	URL       string       `json:"url"`
	Entries   []lookupInfo `json:"entries"`
	Formats   []struct {
		Ext string `json:"ext"`
		URL string `json:"url"`
	} `json:"formats"`
}

// IsLink reports whether the query is a direct link rather than a search term.
func IsLink(query string) bool {
	return linkPattern.MatchString(query) || shortLinkPattern.MatchString(query)
}

// Resolve maps a free-text search term or link to a direct audio stream.
func (y *YouTube) Resolve(ctx context.Context, query string) (Track, error) {
	if IsLink(query) {
		y.log.Debug("resolving direct link", "query", query)
		return y.fromTarget(ctx, query, Track{})
	}
	y.log.Debug("resolving by search", "query", query)
	return y.fromSearch(ctx, query)
}

// fromSearch performs the two round-trips of the search path: a flat
// single-result search for the video id, then a direct lookup of the
// reconstructed watch URL. The search result's own stream URL is not
// guaranteed resolvable; the canonical watch URL is.
func (y *YouTube) fromSearch(ctx context.Context, query string) (Track, error) {
	raw, err := y.lookup(ctx, query, true)
	if err != nil {
		return Track{}, fmt.Errorf("search lookup: %w", err)
	}
	var info lookupInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return Track{}, fmt.Errorf("search lookup: %w", err)
	}

	var videoID string
	seed := Track{Title: defaultTitle}
	switch {
	case len(info.Entries) > 0:
		entry := info.Entries[0]
		videoID = entry.ID
		if videoID == "" {
			videoID = idFromWatchURL(entry.URL)
		}
		seed.Title = firstNonEmpty(entry.Title, entry.Fulltitle, "First result")
		seed.DurationSec = int(entry.Duration)
	case info.ID != "":
		videoID = info.ID
		seed.Title = firstNonEmpty(info.Title, info.Fulltitle, "Result")
		seed.DurationSec = int(info.Duration)
	}

	videoID = strings.TrimSpace(videoID)
	if len(videoID) < minVideoID {
		return Track{}, fmt.Errorf("%w: search returned no usable video id", ErrNoMedia)
	}
	videoID = videoIDSanitizer.ReplaceAllString(videoID, "")

	target := watchURL + videoID
	y.log.Debug("constructed watch url", "url", target)
	return y.fromTarget(ctx, target, seed)
}

// fromTarget looks up one URL and extracts the stream URL, title and
// duration, keeping seed values where the response leaves them out.
func (y *YouTube) fromTarget(ctx context.Context, target string, seed Track) (Track, error) {
	raw, err := y.lookup(ctx, target, false)
	if err != nil {
		return Track{}, fmt.Errorf("media lookup: %w", err)
	}
	var info lookupInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return Track{}, fmt.Errorf("media lookup: %w", err)
	}

	track := Track{
		URL:         info.URL,
		Title:       firstNonEmpty(info.Title, info.Fulltitle, seed.Title, defaultTitle),
		DurationSec: seed.DurationSec,
	}
	if info.Duration > 0 {
		track.DurationSec = int(info.Duration)
	}
	if track.URL == "" {
		for _, format := range info.Formats {
			if format.Ext == "webm" || format.Ext == "m4a" {
				track.URL = format.URL
				break
			}
		}
	}
	if track.URL == "" {
		return Track{}, fmt.Errorf("%w: no audio stream url", ErrNoMedia)
	}
	return track, nil
}

// ytdlpLookup shells out to yt-dlp for a single JSON metadata dump.
func ytdlpLookup(ctx context.Context, target string, flat bool) ([]byte, error) {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		NoPlaylist().
		PreferFreeFormats().
		Format(audioFormats)

	args := []string{
		"--dump-single-json",
		"--add-header", "User-Agent:" + browserAgent,
		"--add-header", "Referer:https://www.youtube.com/",
	}
	if flat {
		args = append(args, "--flat-playlist", "--default-search", "ytsearch1")
	}

	result, err := cmd.Run(ctx, append(args, target)...)
	if err != nil {
		return nil, err
	}
	return []byte(result.Stdout), nil
}

// idFromWatchURL pulls the v= parameter out of a watch URL.
func idFromWatchURL(rawURL string) string {
	_, rest, found := strings.Cut(rawURL, "v=")
	if !found {
		return ""
	}
	if idx := strings.IndexByte(rest, '&'); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
