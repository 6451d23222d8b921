package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatmedia/media-bot/internal/i18n"
	"github.com/chatmedia/media-bot/internal/pipeline"
	"github.com/chatmedia/media-bot/internal/resolve"
)

type fakeSender struct {
	texts  []string
	voices []VoiceNote
	videos []Video
}

func (s *fakeSender) SendText(_ context.Context, _ int64, text string) error {
	s.texts = append(s.texts, text)
	return nil
}

func (s *fakeSender) SendVoice(_ context.Context, _ int64, note VoiceNote) error {
	s.voices = append(s.voices, note)
	return nil
}

func (s *fakeSender) SendVideo(_ context.Context, _ int64, video Video) error {
	s.videos = append(s.videos, video)
	return nil
}

type fakeTracks struct {
	calls int
	track resolve.Track
	err   error
}

func (f *fakeTracks) Resolve(context.Context, string) (resolve.Track, error) {
	f.calls++
	return f.track, f.err
}

type fakeClips struct {
	calls int
	clip  resolve.Clip
	err   error
}

func (f *fakeClips) Resolve(context.Context, string) (resolve.Clip, error) {
	f.calls++
	return f.clip, f.err
}

type fakeTranscoder struct {
	calls   int
	inPath  string
	outPath string
	opts    pipeline.VoiceNoteOptions
	output  []byte
	err     error
}

func (f *fakeTranscoder) VoiceNote(_ context.Context, inPath, outPath string, opts pipeline.VoiceNoteOptions) error {
	f.calls++
	f.inPath = inPath
	f.outPath = outPath
	f.opts = opts
	if f.err != nil {
		return f.err
	}
	out := f.output
	if out == nil {
		out = []byte("OggS fake opus")
	}
	return os.WriteFile(outPath, out, 0o600)
}

func newTestHandler(tracks *fakeTracks, clips *fakeClips, tr *fakeTranscoder) (*Handler, *fakeSender) {
	bundle, err := i18n.Load("en")
	if err != nil {
		panic(err)
	}
	sender := &fakeSender{}
	logger := slog.New(slog.DiscardHandler)
	return New(sender, tracks, clips, tr, bundle.Messages, 0, logger), sender
}

func streamServer(t *testing.T, payload []byte) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func textUpdate(text string) telego.Update {
	return telego.Update{Message: &telego.Message{Text: text, Chat: telego.Chat{ID: 7}}}
}

func TestEmptyMusicQuerySendsUsageWithoutNetwork(t *testing.T) {
	tracks := &fakeTracks{}
	h, sender := newTestHandler(tracks, &fakeClips{}, &fakeTranscoder{})

	h.HandleUpdate(context.Background(), textUpdate(".yt"))

	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], ".yt bad bunny un x100to")
	assert.Zero(t, tracks.calls)
}

func TestTikTokArgWithoutDomainSendsUsageWithoutNetwork(t *testing.T) {
	clips := &fakeClips{}
	h, sender := newTestHandler(&fakeTracks{}, clips, &fakeTranscoder{})

	h.HandleUpdate(context.Background(), textUpdate(".tt4 https://example.com/video"))

	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], ".tt4 https://vt.tiktok.com")
	assert.Zero(t, clips.calls)
}

func TestUnrelatedTextIgnored(t *testing.T) {
	tracks := &fakeTracks{}
	clips := &fakeClips{}
	h, sender := newTestHandler(tracks, clips, &fakeTranscoder{})

	h.HandleUpdate(context.Background(), textUpdate("just chatting"))

	assert.Empty(t, sender.texts)
	assert.Zero(t, tracks.calls)
	assert.Zero(t, clips.calls)
}

func TestRestrictedChatIgnored(t *testing.T) {
	tracks := &fakeTracks{}
	bundle, err := i18n.Load("en")
	require.NoError(t, err)
	sender := &fakeSender{}
	h := New(sender, tracks, &fakeClips{}, &fakeTranscoder{}, bundle.Messages, 42, slog.New(slog.DiscardHandler))

	h.HandleUpdate(context.Background(), textUpdate(".yt song"))

	assert.Empty(t, sender.texts)
	assert.Zero(t, tracks.calls)
}

func TestMusicDurationGateStopsBeforeDownload(t *testing.T) {
	srv, hits := streamServer(t, []byte("audio"))
	tracks := &fakeTracks{track: resolve.Track{URL: srv.URL, Title: "Long Mix", DurationSec: 700}}
	tr := &fakeTranscoder{}
	h, sender := newTestHandler(tracks, &fakeClips{}, tr)

	h.HandleUpdate(context.Background(), textUpdate(".yt long mix"))

	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "11:40")
	assert.Zero(t, *hits, "download must not start")
	assert.Zero(t, tr.calls)
	assert.Empty(t, sender.voices)
}

func TestMusicEndToEndWithWindow(t *testing.T) {
	srv, hits := streamServer(t, []byte("webm-bytes"))
	tracks := &fakeTracks{track: resolve.Track{URL: srv.URL, Title: "Test Song!", DurationSec: 30}}
	tr := &fakeTranscoder{}
	h, sender := newTestHandler(tracks, &fakeClips{}, tr)

	h.HandleUpdate(context.Background(), textUpdate(".yt test song 0:10 0:20"))

	// Transcoder saw the trim window.
	require.Equal(t, 1, tr.calls)
	require.NotNil(t, tr.opts.Segment)
	assert.Equal(t, 10, tr.opts.Segment.Start)
	assert.Equal(t, 10, tr.opts.Segment.Duration)
	assert.Equal(t, 64, tr.opts.BitrateKbps)
	assert.True(t, tr.opts.Normalize)
	assert.True(t, tr.opts.VoiceProfile)

	assert.Equal(t, 1, *hits)

	// Status then completion, one voice note in between.
	require.Len(t, sender.texts, 2)
	assert.Contains(t, sender.texts[0], "Test Song!")
	assert.Contains(t, sender.texts[0], "00:30")
	assert.Contains(t, sender.texts[1], "Test Song!")

	require.Len(t, sender.voices, 1)
	assert.Equal(t, oggOpusMIME, sender.voices[0].MIME)
	assert.Equal(t, "Test_Song_.ogg", sender.voices[0].FileName)

	// Scratch files are gone.
	_, err := os.Stat(tr.inPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(tr.outPath)
	assert.True(t, os.IsNotExist(err))
}

func TestMusicSizeGateSkipsDelivery(t *testing.T) {
	srv, _ := streamServer(t, []byte("webm-bytes"))
	tracks := &fakeTracks{track: resolve.Track{URL: srv.URL, Title: "Big", DurationSec: 30}}
	tr := &fakeTranscoder{output: bytes.Repeat([]byte{0x4f}, pipeline.MaxVoiceNoteBytes+1)}
	h, sender := newTestHandler(tracks, &fakeClips{}, tr)

	h.HandleUpdate(context.Background(), textUpdate(".yt big track"))

	assert.Empty(t, sender.voices, "oversized output is discarded")
	require.Len(t, sender.texts, 2)
	assert.Contains(t, sender.texts[1], "16.0 MB")
}

func TestMusicResolveFailureSendsOneGenericMessage(t *testing.T) {
	tracks := &fakeTracks{err: errors.New("extractor broke")}
	h, sender := newTestHandler(tracks, &fakeClips{}, &fakeTranscoder{})

	h.HandleUpdate(context.Background(), textUpdate(".yt some song"))

	require.Len(t, sender.texts, 1)
	assert.NotContains(t, sender.texts[0], "extractor broke", "internal errors never reach the chat")
	assert.Contains(t, sender.texts[0], "❌")
}

func TestMusicTranscodeFailureCleansScratchFiles(t *testing.T) {
	srv, _ := streamServer(t, []byte("webm-bytes"))
	tracks := &fakeTracks{track: resolve.Track{URL: srv.URL, Title: "Broken", DurationSec: 30}}
	tr := &fakeTranscoder{err: errors.New("ffmpeg exit 1")}
	h, sender := newTestHandler(tracks, &fakeClips{}, tr)

	h.HandleUpdate(context.Background(), textUpdate(".yt broken track"))

	// Status message, then exactly one generic failure.
	require.Len(t, sender.texts, 2)
	assert.Contains(t, sender.texts[1], "❌")
	assert.Empty(t, sender.voices)

	_, err := os.Stat(tr.inPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(tr.outPath)
	assert.True(t, os.IsNotExist(err))
}

func TestTikTokVideoFlow(t *testing.T) {
	srv, hits := streamServer(t, []byte("mp4-bytes"))
	clips := &fakeClips{clip: resolve.Clip{VideoURL: srv.URL}}
	tr := &fakeTranscoder{}
	h, sender := newTestHandler(&fakeTracks{}, clips, tr)

	h.HandleUpdate(context.Background(), textUpdate(".tt4 https://vt.tiktok.com/ZSm1WeKf4/"))

	assert.Equal(t, 1, *hits)
	assert.Zero(t, tr.calls, "video path never transcodes")

	require.Len(t, sender.videos, 1)
	assert.Equal(t, mp4MIME, sender.videos[0].MIME)
	assert.Equal(t, []byte("mp4-bytes"), sender.videos[0].Data)
	assert.NotEmpty(t, sender.videos[0].Caption)

	// Downloading status, then completion.
	require.Len(t, sender.texts, 2)
	assert.Contains(t, sender.texts[1], "✅")
}

func TestTikTokAudioFlow(t *testing.T) {
	srv, _ := streamServer(t, []byte("m4a-bytes"))
	clips := &fakeClips{clip: resolve.Clip{VideoURL: srv.URL, AudioURL: srv.URL}}
	tr := &fakeTranscoder{}
	h, sender := newTestHandler(&fakeTracks{}, clips, tr)

	h.HandleUpdate(context.Background(), textUpdate(".tt3 https://vm.tiktok.com/Zxxxx/"))

	require.Equal(t, 1, tr.calls)
	assert.Equal(t, 48, tr.opts.BitrateKbps)
	assert.False(t, tr.opts.Normalize)
	assert.False(t, tr.opts.VoiceProfile)
	assert.Nil(t, tr.opts.Segment)

	require.Len(t, sender.voices, 1)
	assert.Equal(t, oggOpusMIME, sender.voices[0].MIME)
	assert.Empty(t, sender.voices[0].FileName)
}

func TestTikTokMissingAudioFails(t *testing.T) {
	clips := &fakeClips{clip: resolve.Clip{VideoURL: "https://cdn.example/v.mp4"}}
	h, sender := newTestHandler(&fakeTracks{}, clips, &fakeTranscoder{})

	h.HandleUpdate(context.Background(), textUpdate(".tt3 https://vm.tiktok.com/Zxxxx/"))

	require.Len(t, sender.texts, 2)
	assert.Contains(t, sender.texts[1], "❌")
	assert.Empty(t, sender.voices)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "Bad_Bunny___Un_x100to", sanitizeFileName("Bad Bunny - Un x100to"))
}

func TestTruncateTitle(t *testing.T) {
	long := strings.Repeat("a", 60)
	assert.Len(t, truncateTitle(long), maxTitleRunes+3)
	assert.Equal(t, "short", truncateTitle("short"))
}
