package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/chatmedia/media-bot/internal/command"
	"github.com/chatmedia/media-bot/internal/pipeline"
	"github.com/chatmedia/media-bot/internal/resolve"
)

const clipBitrateKbps = 48

func (h *Handler) handleTikTok(ctx context.Context, chatID int64, cmd command.Command) {
	if !isTikTokLink(cmd.Argument) {
		_ = h.send.SendText(ctx, chatID, h.msg.TikTokUsage)
		return
	}

	h.log.Info("tiktok command", "prefix", cmd.Prefix, "url", cmd.Argument)

	if err := h.deliverTikTok(ctx, chatID, cmd.Kind, cmd.Argument); err != nil {
		h.log.Error("tiktok command failed", "url", cmd.Argument, "error", err)
		_ = h.send.SendText(ctx, chatID, h.msg.TikTokFailed)
	}
}

func (h *Handler) deliverTikTok(ctx context.Context, chatID int64, kind command.Kind, target string) error {
	if err := h.send.SendText(ctx, chatID, h.msg.TikTokDownloading); err != nil {
		return err
	}

	clip, err := h.clips.Resolve(ctx, target)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	if kind == command.Video {
		if err := h.sendClipVideo(ctx, chatID, clip); err != nil {
			return err
		}
	} else {
		if err := h.sendClipAudio(ctx, chatID, clip); err != nil {
			return err
		}
	}

	return h.send.SendText(ctx, chatID, h.msg.TikTokDone)
}

func (h *Handler) sendClipVideo(ctx context.Context, chatID int64, clip resolve.Clip) error {
	if clip.VideoURL == "" {
		return errors.New("no watermark-free video available")
	}

	path, drop, err := pipeline.Scratch("tiktok-*.mp4")
	if err != nil {
		return err
	}
	defer drop()

	if err := pipeline.Download(ctx, h.client, clip.VideoURL, path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := h.send.SendVideo(ctx, chatID, Video{Data: data, MIME: mp4MIME, Caption: h.msg.TikTokCaption}); err != nil {
		return err
	}
	h.log.Info("tiktok video sent", "size_kb", len(data)/1024)
	return nil
}

func (h *Handler) sendClipAudio(ctx context.Context, chatID int64, clip resolve.Clip) error {
	if clip.AudioURL == "" {
		return errors.New("no audio track available")
	}

	inPath, dropIn, err := pipeline.Scratch("tiktok-*.m4a")
	if err != nil {
		return err
	}
	defer dropIn()

	if err := pipeline.Download(ctx, h.client, clip.AudioURL, inPath); err != nil {
		return err
	}
	h.log.Debug("tiktok audio downloaded", "path", inPath)

	outPath, dropOut, err := pipeline.Scratch("tiktok-*.ogg")
	if err != nil {
		return err
	}
	defer dropOut()

	if err := h.transcoder.VoiceNote(ctx, inPath, outPath, pipeline.VoiceNoteOptions{BitrateKbps: clipBitrateKbps}); err != nil {
		return err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return err
	}

	if err := h.send.SendVoice(ctx, chatID, VoiceNote{Data: data, MIME: oggOpusMIME}); err != nil {
		return err
	}
	h.log.Info("tiktok voice note sent", "size_kb", len(data)/1024)
	return nil
}
