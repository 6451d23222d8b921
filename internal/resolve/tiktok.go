package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// Clip is a resolved short video. Either URL may be empty; VideoURL is
// set whenever an endpoint was accepted.
type Clip struct {
	VideoURL string
	AudioURL string
}

// Endpoint is one third-party no-watermark resolver.
type Endpoint struct {
	Name string
	URL  string
}

// DefaultEndpoints are tried in declared order; the first response
// exposing a play URL wins and later endpoints are never consulted.
var DefaultEndpoints = []Endpoint{
	{Name: "tikwm", URL: "https://tikwm.com/api/"},
	{Name: "tiklydown", URL: "https://api.tiklydown.eu.org/api/download"},
	{Name: "tikdown", URL: "https://tikdown.org/api/ajaxSearch"},
}

// TikTok resolves short-video links through a fallback list of endpoints.
type TikTok struct {
	client    *http.Client
	endpoints []Endpoint
	log       *slog.Logger
}

// NewTikTok creates a resolver over the default endpoint list.
func NewTikTok(log *slog.Logger) *TikTok {
	return &TikTok{client: &http.Client{}, endpoints: DefaultEndpoints, log: log}
}

// Resolve tries each endpoint in order until one exposes a watermark-free
// play URL. Per-endpoint failures are swallowed; exhausting the list is a
// resolution failure.
func (t *TikTok) Resolve(ctx context.Context, target string) (Clip, error) {
	for _, endpoint := range t.endpoints {
		clip, err := t.query(ctx, endpoint, target)
		if err != nil {
			t.log.Debug("resolver endpoint failed, trying next", "endpoint", endpoint.Name, "error", err)
			continue
		}
		t.log.Debug("resolver endpoint accepted", "endpoint", endpoint.Name)
		return clip, nil
	}
	return Clip{}, fmt.Errorf("%w: all resolver endpoints exhausted", ErrNoMedia)
}

func (t *TikTok) query(ctx context.Context, endpoint Endpoint, target string) (Clip, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.URL+"?url="+url.QueryEscape(target), nil)
	if err != nil {
		return Clip{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := t.client.Do(req)
	if err != nil {
		return Clip{}, err
	}
	defer resp.Body.Close()

	var body struct {
		Data struct {
			Play          string `json:"play"`
			NoWaterMark   string `json:"noWaterMark"`
			HDPlay        string `json:"hdplay"`
			Music         string `json:"music"`
			OriginalAudio string `json:"originalAudio"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Clip{}, err
	}

	video := firstNonEmpty(body.Data.Play, body.Data.NoWaterMark, body.Data.HDPlay)
	if video == "" {
		return Clip{}, fmt.Errorf("endpoint %s: no play url in response", endpoint.Name)
	}
	return Clip{
		VideoURL: video,
		AudioURL: firstNonEmpty(body.Data.Music, body.Data.OriginalAudio),
	}, nil
}
