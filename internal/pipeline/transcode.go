package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// voiceFilters is the fixed music filter chain: loudness normalization,
// dynamics compander, flat gain, then noise reduction. The order is not
// configurable per request.
const voiceFilters = "loudnorm=I=-12:TP=-0.5:LRA=7:linear=true," +
	"compand=attacks=0.03:decays=0.25:points=-70/-70|-20/-15|0/-8|20/-8," +
	"volume=1.8," +
	"afftdn=nr=12:nf=-35:tn=1"

const maxDiagnosticBytes = 800

// Segment trims the input: seek to Start, keep Duration seconds.
type Segment struct {
	Start    int
	Duration int
}

// VoiceNoteOptions selects the encoding profile for one transcode.
type VoiceNoteOptions struct {
	// BitrateKbps is the Opus target bitrate.
	BitrateKbps int
	// Normalize applies the music filter chain.
	Normalize bool
	// VoiceProfile enables the voip application profile.
	VoiceProfile bool
	// Segment, when set, trims the input before encoding.
	Segment *Segment
}

// Transcoder shells out to ffmpeg to produce mono 48 kHz Opus-in-Ogg
// voice notes.
type Transcoder struct {
	// BinPath is the ffmpeg binary, fixed at startup.
	BinPath string
	Log     *slog.Logger
}

// VoiceNote encodes inPath into outPath. On failure the process
// diagnostic output is logged (truncated) and a generic error returned.
func (t *Transcoder) VoiceNote(ctx context.Context, inPath, outPath string, opts VoiceNoteOptions) error {
	args := buildArgs(inPath, outPath, opts)
	t.Log.Debug("ffmpeg start", "cmd", t.BinPath+" "+strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, t.BinPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Log.Error("ffmpeg failed", "error", err, "stderr", truncate(stderr.String(), maxDiagnosticBytes))
		return fmt.Errorf("transcode: %w", err)
	}
	t.Log.Debug("ffmpeg finished", "output", outPath)
	return nil
}

func buildArgs(inPath, outPath string, opts VoiceNoteOptions) []string {
	args := []string{"-nostdin", "-y"}
	if opts.Segment != nil {
		args = append(args, "-ss", strconv.Itoa(opts.Segment.Start))
	}
	args = append(args, "-i", inPath, "-vn")
	if opts.Segment != nil {
		args = append(args, "-t", strconv.Itoa(opts.Segment.Duration))
	}
	if opts.Normalize {
		args = append(args, "-af", voiceFilters)
	}
	args = append(args,
		"-c:a", "libopus",
		"-b:a", strconv.Itoa(opts.BitrateKbps)+"k",
		"-ac", "1",
		"-ar", "48000",
		"-vbr", "on",
		"-compression_level", "10",
		"-frame_duration", "20",
	)
	if opts.VoiceProfile {
		args = append(args, "-application", "voip")
	}
	return append(args, "-f", "ogg", outPath)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}
