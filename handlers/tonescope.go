package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-tonescope/analysis"
	"go-tonescope/transcript"
	"go-tonescope/types"
)

// Dispatcher handles one tagged message.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg types.Message) (types.Response, error)
}

// HandleMessage accepts the full tagged message envelope.
func HandleMessage(c *gin.Context, d Dispatcher) {
	var msg types.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, types.Response{Error: err.Error()})
		return
	}
	respond(c, d, msg)
}

// AnalyzeHandler takes an ANALYZE_TEXT payload directly.
func AnalyzeHandler(c *gin.Context, d Dispatcher) {
	var payload types.MessagePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, types.Response{Error: err.Error()})
		return
	}
	respond(c, d, types.Message{Type: types.MessageAnalyzeText, Payload: &payload})
}

// ClearCacheHandler invalidates the ?key= entry, or the whole cache without one.
func ClearCacheHandler(c *gin.Context, d Dispatcher) {
	respond(c, d, types.Message{
		Type:    types.MessageClearCache,
		Payload: &types.MessagePayload{CacheKey: c.Query("key")},
	})
}

func StoreKeysHandler(c *gin.Context, d Dispatcher) {
	var request struct {
		OpenAIKey     string `json:"openaiKey" binding:"required"`
		PerplexityKey string `json:"perplexityKey" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, types.Response{Error: err.Error()})
		return
	}
	respond(c, d, types.Message{
		Type:    types.MessageStoreAPIKeys,
		Payload: &types.MessagePayload{OpenAIKey: request.OpenAIKey, PerplexityKey: request.PerplexityKey},
	})
}

func respond(c *gin.Context, d Dispatcher, msg types.Message) {
	resp, err := d.Dispatch(c.Request.Context(), msg)
	c.JSON(statusFor(err), resp)
}

// statusFor maps pipeline error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, analysis.ErrInvalidRequest), errors.Is(err, types.ErrInvalidSubjectReference):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrMissingCredential):
		return http.StatusPreconditionFailed
	case errors.Is(err, transcript.ErrNoTranscript):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, types.ErrTransport),
		errors.Is(err, types.ErrInvalidModelOutput),
		errors.Is(err, types.ErrNoRecommendationsParsed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
