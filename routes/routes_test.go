package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tonescope/types"
)

type recorder struct{ seen []types.MessageType }

func (r *recorder) Dispatch(_ context.Context, msg types.Message) (types.Response, error) {
	r.seen = append(r.seen, msg.Type)
	return types.Response{OK: true}, nil
}

func (r *recorder) Analyze(context.Context, types.MessagePayload) (types.AnalysisResult, error) {
	return types.AnalysisResult{}, nil
}

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &recorder{}
	r := SetupRouter(rec, nil)

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodPost, "/api/tonescope/message", `{"type":"CLEAR_CACHE"}`, http.StatusOK},
		{http.MethodPost, "/api/tonescope/analyze", `{"videoId":"abc"}`, http.StatusOK},
		{http.MethodDelete, "/api/tonescope/cache?key=abc", "", http.StatusOK},
		{http.MethodPut, "/api/tonescope/keys", `{"openaiKey":"a","perplexityKey":"b"}`, http.StatusOK},
		{http.MethodPost, "/api/tonescope/batch", `{"subjects":[{"videoId":"a"}]}`, http.StatusOK},
		{http.MethodGet, "/api/tonescope/unknown", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tt.want, w.Code, "%s %s", tt.method, tt.path)
	}

	require.Len(t, rec.seen, 4)
	assert.Equal(t, []types.MessageType{
		types.MessageClearCache,
		types.MessageAnalyzeText,
		types.MessageClearCache,
		types.MessageStoreAPIKeys,
	}, rec.seen)
}
