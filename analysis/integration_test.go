package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tonescope/cache"
	"go-tonescope/captions"
	"go-tonescope/classifier"
	"go-tonescope/credentials"
	"go-tonescope/db"
	"go-tonescope/llm"
	"go-tonescope/llm/llmtest"
	"go-tonescope/recommend"
	"go-tonescope/transcript"
	"go-tonescope/types"
)

type staticCaptions map[string][]captions.Segment

func (s staticCaptions) Fetch(_ context.Context, videoID, _ string) ([]captions.Segment, error) {
	return s[videoID], nil
}

const angryReply = `{"emotion_scores":{"admiration":0,"amusement":0,"anger":0.8,"annoyance":0.6,"approval":0,"caring":0,"confusion":0.1,"curiosity":0,"desire":0,"disappointment":0.3,"disapproval":0.5,"disgust":0.2,"embarrassment":0,"excitement":0,"fear":0,"gratitude":0,"grief":0,"joy":0.0,"love":0,"nervousness":0,"optimism":0,"pride":0,"realization":0,"relief":0,"remorse":0,"sadness":0.1,"surprise":0,"neutral":0.05},"explanation":"Strong anger and disapproval."}`

func TestPipelineWithRealStages(t *testing.T) {
	ctx := context.Background()
	openaiSrv := llmtest.NewServer(t, llmtest.Text(angryReply))
	sonarSrv := llmtest.NewServer(t, llmtest.Text(
		"Title A | https://a.example | summary A\nTitle B | https://b.example | summary B\nTitle C | https://c.example | summary C"))

	kv := db.NewMemoryStore()
	c, err := cache.New(ctx, kv)
	require.NoError(t, err)
	creds := credentials.New(kv, "", nil)
	require.NoError(t, creds.Update(ctx, "sk-test", "pplx-test"))

	oaClient := llm.New("OpenAI", llm.Options{BaseURL: openaiSrv.URL})
	cls, err := classifier.New(oaClient, "", nil)
	require.NoError(t, err)

	svc := New(Deps{
		Cache:       c,
		Credentials: creds,
		Transcripts: transcript.NewAcquirer(staticCaptions{
			"vid123": {{Text: "hello"}, {Text: " world "}},
		}, "en"),
		Classifier: cls,
		Retriever:  recommend.New(llm.New("Perplexity", llm.Options{BaseURL: sonarSrv.URL}), "", nil),
	})

	result, err := svc.AnalyzeVideo(ctx, "vid123", "https://www.youtube.com/watch?v=vid123")
	require.NoError(t, err)

	// (0 - 2.5) / 12
	assert.InDelta(t, -2.5/12, result.FramingScore, 1e-9)
	assert.Equal(t, types.FramingContemptuous, result.Framing)
	assert.Equal(t, []types.Recommendation{
		{Title: "Title A", URL: "https://a.example", Summary: "summary A"},
		{Title: "Title B", URL: "https://b.example", Summary: "summary B"},
		{Title: "Title C", URL: "https://c.example", Summary: "summary C"},
	}, result.Recommendations)

	calls := openaiSrv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer sk-test", calls[0].Auth)
	assert.Contains(t, calls[0].Request.Prompt(), `"""hello world"""`)
	sonarCalls := sonarSrv.Calls()
	require.Len(t, sonarCalls, 1)
	assert.Equal(t, "Bearer pplx-test", sonarCalls[0].Auth)
	assert.True(t, strings.Contains(sonarCalls[0].Request.Prompt(), "anger (80.0%), annoyance (60.0%), disapproval (50.0%)"))

	again, err := svc.AnalyzeVideo(ctx, "vid123", "")
	require.NoError(t, err)
	assert.Equal(t, result, again)
	assert.Equal(t, 1, openaiSrv.CallCount())
	assert.Equal(t, 1, sonarSrv.CallCount())

	// cache survives a restart through the shared store
	reloaded, err := cache.New(ctx, kv)
	require.NoError(t, err)
	got, ok := reloaded.Get(ctx, "vid123")
	require.True(t, ok)
	assert.Equal(t, result.Recommendations, got.Recommendations)
	assert.Equal(t, result.Framing, got.Framing)
}
