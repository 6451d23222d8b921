package i18n

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Messages contains localized strings for the bot.
type Messages struct {
	MusicUsage        string `yaml:"music_usage"`
	MusicFound        string `yaml:"music_found"`
	MusicSegment      string `yaml:"music_segment"`
	MusicTooLong      string `yaml:"music_too_long"`
	MusicTooHeavy     string `yaml:"music_too_heavy"`
	MusicSent         string `yaml:"music_sent"`
	MusicSegmentNote  string `yaml:"music_segment_note"`
	MusicFailed       string `yaml:"music_failed"`
	TikTokUsage       string `yaml:"tiktok_usage"`
	TikTokDownloading string `yaml:"tiktok_downloading"`
	TikTokCaption     string `yaml:"tiktok_caption"`
	TikTokDone        string `yaml:"tiktok_done"`
	TikTokFailed      string `yaml:"tiktok_failed"`
}

// Bundle combines language code and messages.
type Bundle struct {
	// Lang is the selected language.
	Lang string
	// Messages are localized strings.
	Messages Messages
}

//go:embed *.yaml
var files embed.FS

// Load loads messages for the requested language, falling back to English.
func Load(lang string) (Bundle, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = "en"
	}

	messages, err := loadMessages(lang)
	if err != nil && lang != "en" {
		messages, err = loadMessages("en")
		if err != nil {
			return Bundle{}, err
		}
		lang = "en"
	} else if err != nil {
		return Bundle{}, err
	}

	return Bundle{Lang: lang, Messages: messages}, nil
}

func loadMessages(lang string) (Messages, error) {
	data, err := files.ReadFile(fmt.Sprintf("%s.yaml", lang))
	if err != nil {
		return Messages{}, err
	}
	var msg Messages
	if err := yaml.Unmarshal(data, &msg); err != nil {
		return Messages{}, err
	}
	return msg, nil
}
