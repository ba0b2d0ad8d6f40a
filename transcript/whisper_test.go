package transcript

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tonescope/llm"
	"go-tonescope/llm/llmtest"
	"go-tonescope/types"
)

func TestWhisperGenerate(t *testing.T) {
	var requested string
	audio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Write([]byte("fake audio bytes"))
	}))
	defer audio.Close()

	upstream := llmtest.NewServer(t, llmtest.Text("unused"))
	upstream.Transcript = "generated words"

	w := NewWhisper(llm.New("OpenAI", llm.Options{BaseURL: upstream.URL}), "", audio.URL+"/audio/%s", 0)
	text, err := w.Generate(context.Background(), "sk", "vid123")
	require.NoError(t, err)
	assert.Equal(t, "generated words", text)
	assert.Equal(t, "/audio/vid123", requested)
	assert.Equal(t, 1, upstream.TranscriptCalls())
}

func TestWhisperAudioUnavailable(t *testing.T) {
	audio := httptest.NewServer(http.NotFoundHandler())
	defer audio.Close()

	upstream := llmtest.NewServer(t, llmtest.Text("unused"))
	w := NewWhisper(llm.New("OpenAI", llm.Options{BaseURL: upstream.URL}), "", audio.URL+"/%s", 0)

	_, err := w.Generate(context.Background(), "sk", "vid123")
	assert.ErrorIs(t, err, types.ErrTransport)
	assert.Zero(t, upstream.TranscriptCalls())
}

func TestWhisperRequiresKey(t *testing.T) {
	w := NewWhisper(llm.New("OpenAI", llm.Options{}), "", "", 0)
	_, err := w.Generate(context.Background(), "", "vid123")
	assert.ErrorIs(t, err, types.ErrMissingCredential)
}

func TestWhisperAudioTimeout(t *testing.T) {
	audio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer audio.Close()

	upstream := llmtest.NewServer(t, llmtest.Text("unused"))
	w := NewWhisper(llm.New("OpenAI", llm.Options{BaseURL: upstream.URL}), "", audio.URL+"/%s", 50*time.Millisecond)

	_, err := w.Generate(context.Background(), "sk", "vid123")
	var te *types.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "audio", te.Service)
	assert.Equal(t, "timeout", te.Message)
	assert.Zero(t, upstream.TranscriptCalls())
}
