// Package command parses chat text into media commands.
package command

import (
	"strconv"
	"strings"
)

// Kind identifies the handler a command is addressed to.
type Kind int

const (
	// Music resolves a search term or link to a voice note.
	Music Kind = iota
	// Video delivers a watermark-free TikTok video.
	Video
	// Audio delivers a TikTok audio track as a voice note.
	Audio
)

// Command is a recognized prefix plus its raw argument.
type Command struct {
	Prefix   string
	Kind     Kind
	Argument string
}

// Window is an optional trim range in seconds, End always past Start.
type Window struct {
	Start int
	End   int
}

// Prefix table order matters: longer music prefixes come before ".p".
var prefixes = []struct {
	prefix string
	kind   Kind
}{
	{".yt", Music},
	{".play", Music},
	{".p", Music},
	{".tt4", Video},
	{".tt3", Audio},
}

// Match reports whether text is addressed to one of the handlers.
// A prefix matches case-insensitively when followed by a space, or
// exactly with an empty argument.
func Match(text string) (Command, bool) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, p := range prefixes {
		if lower == p.prefix {
			return Command{Prefix: p.prefix, Kind: p.kind}, true
		}
		if strings.HasPrefix(lower, p.prefix+" ") {
			arg := strings.TrimSpace(trimmed[len(p.prefix):])
			return Command{Prefix: p.prefix, Kind: p.kind, Argument: arg}, true
		}
	}
	return Command{}, false
}

// TimeToSeconds parses a time token: a bare integer is seconds and
// "MM:SS" is minutes*60+seconds. Any other shape fails.
func TimeToSeconds(token string) (int, bool) {
	parts := strings.Split(token, ":")
	switch len(parts) {
	case 1:
		sec, err := strconv.Atoi(parts[0])
		if err != nil || sec < 0 {
			return 0, false
		}
		return sec, true
	case 2:
		min, err := strconv.Atoi(parts[0])
		sec, err2 := strconv.Atoi(parts[1])
		if err != nil || err2 != nil || min < 0 || sec < 0 {
			return 0, false
		}
		return min*60 + sec, true
	default:
		return 0, false
	}
}

// ParseMusic splits a music argument into the search query and an
// optional trim window. The trailing two tokens are tried as start and
// end times; they only become a window when both parse and end > start,
// otherwise they stay part of the query.
func ParseMusic(argument string) (string, *Window) {
	tokens := strings.Fields(argument)
	if len(tokens) >= 3 {
		end, okEnd := TimeToSeconds(tokens[len(tokens)-1])
		start, okStart := TimeToSeconds(tokens[len(tokens)-2])
		if okEnd && okStart && end > start {
			return strings.Join(tokens[:len(tokens)-2], " "), &Window{Start: start, End: end}
		}
	}
	return strings.Join(tokens, " "), nil
}

// Clock renders seconds as zero-padded mm:ss, or "?" when unknown.
func Clock(seconds int) string {
	if seconds <= 0 {
		return "?"
	}
	return zeroPad(seconds/60) + ":" + zeroPad(seconds%60)
}

func zeroPad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
