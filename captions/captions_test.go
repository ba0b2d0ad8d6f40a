package captions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tonescope/types"
)

func TestFetchParsesJSON3(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("v"))
		assert.Equal(t, "de", r.URL.Query().Get("lang"))
		assert.Equal(t, "json3", r.URL.Query().Get("fmt"))
		w.Write([]byte(`{"events":[
			{"tStartMs":0,"dDurationMs":1200,"segs":[{"utf8":"hello "},{"utf8":"there"}]},
			{"tStartMs":1200,"segs":[{"utf8":"\n"}]},
			{"tStartMs":1500,"dDurationMs":900,"segs":[{"utf8":"world"}]}
		]}`))
	}))
	defer server.Close()

	segs, err := NewClient(server.URL, 0).Fetch(context.Background(), "abc", "de")
	require.NoError(t, err)
	assert.Equal(t, []Segment{
		{Text: "hello there", StartMs: 0, DurationMs: 1200},
		{Text: "world", StartMs: 1500, DurationMs: 900},
	}, segs)
}

func TestFetchEmptyBodyMeansNoTrack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	segs, err := NewClient(server.URL, 0).Fetch(context.Background(), "abc", "en")
	require.NoError(t, err)
	assert.Empty(t, segs)
}

func TestFetchNonOKIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, 0).Fetch(context.Background(), "abc", "en")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrTransport))

	var te *types.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusTooManyRequests, te.StatusCode)
}

func TestFetchHonoursTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	_, err := NewClient(server.URL, 50*time.Millisecond).Fetch(context.Background(), "abc", "en")
	assert.Less(t, time.Since(start), time.Second)

	var te *types.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "timeout", te.Message)
}
