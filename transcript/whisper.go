package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"go-tonescope/llm"
	"go-tonescope/types"
)

// Whisper transcribes a video's audio with an OpenAI transcription model.
type Whisper struct {
	llm         *llm.Client
	model       string
	urlTemplate string
	httpClient  *http.Client
}

// NewWhisper streams audio from urlTemplate (formatted with the video id) into the
// transcription endpoint. The template must serve raw audio, not a watch page. timeout bounds the whole audio download.
func NewWhisper(client *llm.Client, model, urlTemplate string, timeout time.Duration) *Whisper {
	if model == "" {
		model = openai.Whisper1
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Whisper{llm: client, model: model, urlTemplate: urlTemplate, httpClient: &http.Client{Timeout: timeout}}
}

func (w *Whisper) Generate(ctx context.Context, apiKey, videoID string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("%s: %w", w.llm.Service(), types.ErrMissingCredential)
	}

	audio, err := w.openAudio(ctx, videoID)
	if err != nil {
		return "", err
	}
	defer audio.Close()

	return w.llm.Transcribe(ctx, apiKey, openai.AudioRequest{
		Model:    w.model,
		FilePath: videoID + ".mp4",
		Reader:   audio,
		Format:   openai.AudioResponseFormatJSON,
	})
}

func (w *Whisper) openAudio(ctx context.Context, videoID string) (io.ReadCloser, error) {
	src := w.urlTemplate
	if strings.Contains(src, "%s") {
		src = fmt.Sprintf(src, videoID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		var ne net.Error
		if ctx.Err() != nil || (errors.As(err, &ne) && ne.Timeout()) {
			return nil, &types.TransportError{Service: "audio", Message: "timeout"}
		}
		return nil, &types.TransportError{Service: "audio", Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &types.TransportError{Service: "audio", StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return resp.Body, nil
}
