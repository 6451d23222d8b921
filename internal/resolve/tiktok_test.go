package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTikTokServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestTikTokFirstEndpointWins(t *testing.T) {
	first := newTikTokServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://vt.tiktok.com/x/", r.URL.Query().Get("url"))
		_, _ = w.Write([]byte(`{"data":{"play":"https://cdn.example/clean.mp4","music":"https://cdn.example/a.m4a"}}`))
	})
	second := newTikTokServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("second endpoint must not be consulted")
	})

	tik := &TikTok{client: &http.Client{}, log: discardLogger(), endpoints: []Endpoint{
		{Name: "one", URL: first.URL},
		{Name: "two", URL: second.URL},
	}}

	clip, err := tik.Resolve(context.Background(), "https://vt.tiktok.com/x/")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/clean.mp4", clip.VideoURL)
	assert.Equal(t, "https://cdn.example/a.m4a", clip.AudioURL)
}

func TestTikTokFallbackOrder(t *testing.T) {
	var order []string
	broken := newTikTokServer(t, func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "broken")
		_, _ = w.Write([]byte(`not json at all`))
	})
	empty := newTikTokServer(t, func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "empty")
		_, _ = w.Write([]byte(`{"data":{}}`))
	})
	good := newTikTokServer(t, func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "good")
		_, _ = w.Write([]byte(`{"data":{"noWaterMark":"https://cdn.example/nw.mp4"}}`))
	})

	tik := &TikTok{client: &http.Client{}, log: discardLogger(), endpoints: []Endpoint{
		{Name: "broken", URL: broken.URL},
		{Name: "empty", URL: empty.URL},
		{Name: "good", URL: good.URL},
	}}

	clip, err := tik.Resolve(context.Background(), "https://vt.tiktok.com/x/")
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "empty", "good"}, order)
	assert.Equal(t, "https://cdn.example/nw.mp4", clip.VideoURL)
	assert.Empty(t, clip.AudioURL)
}

func TestTikTokPlayFieldPriority(t *testing.T) {
	srv := newTikTokServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"play":"https://cdn.example/play.mp4","noWaterMark":"https://cdn.example/nw.mp4","hdplay":"https://cdn.example/hd.mp4"}}`))
	})

	tik := &TikTok{client: &http.Client{}, log: discardLogger(), endpoints: []Endpoint{{Name: "srv", URL: srv.URL}}}
	clip, err := tik.Resolve(context.Background(), "https://vt.tiktok.com/x/")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/play.mp4", clip.VideoURL)
}

func TestTikTokAllEndpointsExhausted(t *testing.T) {
	down := newTikTokServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	tik := &TikTok{client: &http.Client{}, log: discardLogger(), endpoints: []Endpoint{
		{Name: "down", URL: down.URL},
		{Name: "unreachable", URL: "http://127.0.0.1:1/nope"},
	}}

	_, err := tik.Resolve(context.Background(), "https://vt.tiktok.com/x/")
	assert.ErrorIs(t, err, ErrNoMedia)
}
