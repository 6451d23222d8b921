package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/chatmedia/media-bot/internal/command"
	"github.com/chatmedia/media-bot/internal/pipeline"
)

const musicBitrateKbps = 64

func (h *Handler) handleMusic(ctx context.Context, chatID int64, cmd command.Command) {
	query, window := command.ParseMusic(cmd.Argument)
	if query == "" {
		_ = h.send.SendText(ctx, chatID, h.msg.MusicUsage)
		return
	}

	h.log.Info("music command", "prefix", cmd.Prefix, "query", query, "trimmed", window != nil)

	if err := h.deliverMusic(ctx, chatID, query, window); err != nil {
		h.log.Error("music command failed", "query", query, "error", err)
		_ = h.send.SendText(ctx, chatID, h.msg.MusicFailed)
	}
}

// deliverMusic runs resolve, gates, download, transcode and delivery.
// Limit breaches reply with their specific message and return nil: they
// are not failures.
func (h *Handler) deliverMusic(ctx context.Context, chatID int64, query string, window *command.Window) error {
	track, err := h.tracks.Resolve(ctx, query)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	durClock := command.Clock(track.DurationSec)
	if err := pipeline.CheckDuration(track.DurationSec); err != nil {
		_ = h.send.SendText(ctx, chatID, fmt.Sprintf(h.msg.MusicTooLong, durClock))
		return nil
	}

	segment := ""
	if window != nil {
		segment = fmt.Sprintf(h.msg.MusicSegment, window.Start, window.End, window.End-window.Start)
	}
	status := fmt.Sprintf(h.msg.MusicFound, truncateTitle(track.Title), durClock, segment)
	if err := h.send.SendText(ctx, chatID, status); err != nil {
		return err
	}

	inPath, dropIn, err := pipeline.Scratch("music-*.webm")
	if err != nil {
		return err
	}
	defer dropIn()

	if err := pipeline.Download(ctx, h.client, track.URL, inPath); err != nil {
		return err
	}
	h.log.Debug("audio stream downloaded", "path", inPath)

	outPath, dropOut, err := pipeline.Scratch("music-*.ogg")
	if err != nil {
		return err
	}
	defer dropOut()

	opts := pipeline.VoiceNoteOptions{
		BitrateKbps:  musicBitrateKbps,
		Normalize:    true,
		VoiceProfile: true,
	}
	if window != nil {
		opts.Segment = &pipeline.Segment{Start: window.Start, Duration: window.End - window.Start}
	}
	if err := h.transcoder.VoiceNote(ctx, inPath, outPath, opts); err != nil {
		return err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return err
	}
	if err := pipeline.CheckSize(int64(len(data))); err != nil {
		var heavy *pipeline.TooHeavyError
		if errors.As(err, &heavy) {
			_ = h.send.SendText(ctx, chatID, fmt.Sprintf(h.msg.MusicTooHeavy, heavy.MB()))
			return nil
		}
		return err
	}

	note := VoiceNote{
		Data:     data,
		MIME:     oggOpusMIME,
		FileName: sanitizeFileName(track.Title) + ".ogg",
	}
	if err := h.send.SendVoice(ctx, chatID, note); err != nil {
		return err
	}
	h.log.Info("voice note sent", "title", track.Title, "size_kb", len(data)/1024)

	segmentNote := ""
	if window != nil {
		segmentNote = h.msg.MusicSegmentNote
	}
	return h.send.SendText(ctx, chatID, fmt.Sprintf(h.msg.MusicSent, segmentNote, track.Title, durClock))
}
