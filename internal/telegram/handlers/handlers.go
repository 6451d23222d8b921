// Package handlers implements the chat media commands.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/chatmedia/media-bot/internal/command"
	"github.com/chatmedia/media-bot/internal/i18n"
	"github.com/chatmedia/media-bot/internal/pipeline"
	"github.com/chatmedia/media-bot/internal/resolve"
)

const (
	oggOpusMIME = "audio/ogg; codecs=opus"
	mp4MIME     = "video/mp4"

	tiktokDomain  = "tiktok.com"
	maxTitleRunes = 50
)

// VoiceNote is an audio payload flagged for playback as a voice message.
type VoiceNote struct {
	Data     []byte
	MIME     string
	FileName string
}

// Video is a video payload with a caption.
type Video struct {
	Data    []byte
	MIME    string
	Caption string
}

// Sender delivers payloads into a conversation. Handlers only send;
// they never manage connection or session state.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendVoice(ctx context.Context, chatID int64, note VoiceNote) error
	SendVideo(ctx context.Context, chatID int64, video Video) error
}

// TrackResolver maps a music query or link to a direct audio stream.
type TrackResolver interface {
	Resolve(ctx context.Context, query string) (resolve.Track, error)
}

// ClipResolver maps a short-video link to watermark-free media URLs.
type ClipResolver interface {
	Resolve(ctx context.Context, url string) (resolve.Clip, error)
}

// VoiceTranscoder re-encodes a scratch file into an Opus voice note.
type VoiceTranscoder interface {
	VoiceNote(ctx context.Context, inPath, outPath string, opts pipeline.VoiceNoteOptions) error
}

// Handler routes command messages to the media flows. It holds no
// per-invocation state; every invocation owns its own scratch files.
type Handler struct {
	send       Sender
	tracks     TrackResolver
	clips      ClipResolver
	transcoder VoiceTranscoder
	client     *http.Client
	msg        i18n.Messages
	chatID     int64
	log        *slog.Logger
}

// New creates a command handler. chatID restricts the bot to one chat
// when non-zero.
func New(send Sender, tracks TrackResolver, clips ClipResolver, transcoder VoiceTranscoder, msg i18n.Messages, chatID int64, log *slog.Logger) *Handler {
	return &Handler{
		send:       send,
		tracks:     tracks,
		clips:      clips,
		transcoder: transcoder,
		client:     &http.Client{},
		msg:        msg,
		chatID:     chatID,
		log:        log,
	}
}

// Run processes updates until context cancellation. Invocations are
// independent; none waits on another.
func (h *Handler) Run(ctx context.Context, updates <-chan telego.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go h.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes a single update end to end.
func (h *Handler) HandleUpdate(ctx context.Context, update telego.Update) {
	message := update.Message
	if message == nil || message.Text == "" {
		return
	}
	if h.chatID != 0 && message.Chat.ID != h.chatID {
		return
	}
	cmd, ok := command.Match(message.Text)
	if !ok {
		return
	}
	switch cmd.Kind {
	case command.Music:
		h.handleMusic(ctx, message.Chat.ID, cmd)
	case command.Video, command.Audio:
		h.handleTikTok(ctx, message.Chat.ID, cmd)
	}
}

var fileNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]`)

func sanitizeFileName(title string) string {
	return fileNameSanitizer.ReplaceAllString(title, "_")
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleRunes {
		return title
	}
	return string(runes[:maxTitleRunes]) + "..."
}

func isTikTokLink(argument string) bool {
	return argument != "" && strings.Contains(argument, tiktokDomain)
}
