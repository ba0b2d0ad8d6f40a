package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-tonescope/processor"
	"go-tonescope/types"
)

const maxBatchSize = 50

// BatchHandler analyses several subjects in one request. Per-subject failures are
// reported inline; the request itself only fails on a malformed body.
func BatchHandler(c *gin.Context, a processor.Analyzer) {
	var request struct {
		Subjects    []types.MessagePayload `json:"subjects" binding:"required,min=1"`
		Concurrency int                    `json:"concurrency"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(request.Subjects) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many subjects"})
		return
	}

	results := processor.AnalyzeBatch(c.Request.Context(), a, request.Subjects, request.Concurrency)
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"summary": processor.Summarize(results),
	})
}
