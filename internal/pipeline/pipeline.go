// Package pipeline downloads resolved media and transcodes it into voice notes.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/chatmedia/media-bot/internal/command"
)

const (
	// MaxDurationSec is the hard ceiling for music tracks.
	MaxDurationSec = 600
	// MaxVoiceNoteBytes is the delivery ceiling for transcoded audio.
	MaxVoiceNoteBytes = 16 << 20

	downloadAgent = "Mozilla/5.0"
)

// TooLongError reports a track over the duration ceiling before download.
type TooLongError struct {
	DurationSec int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("track too long: %s over %s", command.Clock(e.DurationSec), command.Clock(MaxDurationSec))
}

// TooHeavyError reports transcoded output over the size ceiling.
type TooHeavyError struct {
	SizeBytes int64
}

func (e *TooHeavyError) Error() string {
	return fmt.Sprintf("voice note too heavy: %.1f MB", e.MB())
}

// MB is the payload size in mebibytes.
func (e *TooHeavyError) MB() float64 {
	return float64(e.SizeBytes) / (1 << 20)
}

// CheckDuration enforces the music duration ceiling. A zero duration
// means unknown and passes.
func CheckDuration(durationSec int) error {
	if durationSec > MaxDurationSec {
		return &TooLongError{DurationSec: durationSec}
	}
	return nil
}

// CheckSize enforces the voice-note size ceiling.
func CheckSize(sizeBytes int64) error {
	if sizeBytes > MaxVoiceNoteBytes {
		return &TooHeavyError{SizeBytes: sizeBytes}
	}
	return nil
}

// Scratch creates a temporary file owned by one invocation. The cleanup
// function removes it and never fails; callers defer it on every path.
func Scratch(pattern string) (string, func(), error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("scratch file: %w", err)
	}
	path := file.Name()
	_ = file.Close()
	return path, func() { _ = os.Remove(path) }, nil
}

// Download streams the media behind rawURL into dst, following redirects
// with a generic browser user agent. A non-success status is terminal.
func Download(ctx context.Context, client *http.Client, rawURL, dst string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	req.Header.Set("User-Agent", downloadAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	file, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	return nil
}
