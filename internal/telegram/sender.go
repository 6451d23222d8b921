package telegram

import (
	"bytes"
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/chatmedia/media-bot/internal/telegram/handlers"
)

// botSender delivers handler payloads through the Telegram Bot API.
// Voice notes go out via SendVoice, which Telegram renders as a
// recorded voice message.
type botSender struct {
	bot *telego.Bot
}

func (s botSender) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	return err
}

func (s botSender) SendVoice(ctx context.Context, chatID int64, note handlers.VoiceNote) error {
	name := note.FileName
	if name == "" {
		name = "voice.ogg"
	}
	_, err := s.bot.SendVoice(ctx, &telego.SendVoiceParams{
		ChatID: tu.ID(chatID),
		Voice:  tu.File(tu.NameReader(bytes.NewReader(note.Data), name)),
	})
	return err
}

func (s botSender) SendVideo(ctx context.Context, chatID int64, video handlers.Video) error {
	_, err := s.bot.SendVideo(ctx, &telego.SendVideoParams{
		ChatID:  tu.ID(chatID),
		Video:   tu.File(tu.NameReader(bytes.NewReader(video.Data), "video.mp4")),
		Caption: video.Caption,
	})
	return err
}
