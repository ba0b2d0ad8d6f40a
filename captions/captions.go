// Package captions fetches timed caption tracks for a video.
package captions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-tonescope/types"
)

const (
	// DefaultBaseURL is YouTube's timed-text endpoint.
	DefaultBaseURL = "https://www.youtube.com/api/timedtext"
	DefaultTimeout = 30 * time.Second
)

// Segment is one timed caption line.
type Segment struct {
	Text       string
	StartMs    int64
	DurationMs int64
}

// Client fetches caption tracks in json3 format.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient bounds every fetch, body included, by timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}
}

type json3Response struct {
	Events []struct {
		TStartMs    int64 `json:"tStartMs"`
		DDurationMs int64 `json:"dDurationMs"`
		Segs        []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// Fetch returns the ordered caption segments for videoID in lang. A video with no
// track in that language yields no segments and no error.
func (c *Client) Fetch(ctx context.Context, videoID, lang string) ([]Segment, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)
	q.Set("fmt", "json3")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var ne net.Error
		if ctx.Err() != nil || (errors.As(err, &ne) && ne.Timeout()) {
			return nil, &types.TransportError{Service: "captions", Message: "timeout"}
		}
		return nil, &types.TransportError{Service: "captions", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &types.TransportError{Service: "captions", StatusCode: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read captions: %w", err)
	}
	// The endpoint answers 200 with an empty body when no track exists.
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var parsed json3Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode captions: %w", err)
	}

	segments := make([]Segment, 0, len(parsed.Events))
	for _, ev := range parsed.Events {
		var sb strings.Builder
		for _, s := range ev.Segs {
			sb.WriteString(s.UTF8)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Text: text, StartMs: ev.TStartMs, DurationMs: ev.DDurationMs})
	}
	return segments, nil
}
