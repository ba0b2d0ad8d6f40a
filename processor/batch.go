// Package processor fans a batch of subjects out over the analysis pipeline.
package processor

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"go-tonescope/types"
)

// DefaultConcurrency bounds parallel pipelines when the caller gives no limit.
const DefaultConcurrency = 4

// Analyzer runs the pipeline for one ANALYZE_TEXT payload.
type Analyzer interface {
	Analyze(ctx context.Context, p types.MessagePayload) (types.AnalysisResult, error)
}

// Result is the outcome for one subject. Exactly one of Data and Error is set.
type Result struct {
	Key   string                `json:"key"`
	Data  *types.AnalysisResult `json:"data,omitempty"`
	Error string                `json:"error,omitempty"`
}

// AnalyzeBatch analyses every subject with at most concurrency pipelines in
// flight. One failure does not stop the others. Results keep input order.
func AnalyzeBatch(ctx context.Context, a Analyzer, subjects []types.MessagePayload, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]Result, len(subjects))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, subject := range subjects {
		results[i].Key = Key(subject)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Error = err.Error()
				return nil
			}
			data, err := a.Analyze(ctx, subject)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Data = &data
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Key is the identifier a payload is reported under: its video id when set,
// otherwise its URL.
func Key(p types.MessagePayload) string {
	if id := strings.TrimSpace(p.VideoID); id != "" {
		return id
	}
	return strings.TrimSpace(p.URL)
}

// Summary aggregates a batch.
type Summary struct {
	Total               int                   `json:"total"`
	Succeeded           int                   `json:"succeeded"`
	Failed              int                   `json:"failed"`
	AverageFramingScore float64               `json:"average_framing_score"`
	Framings            map[types.Framing]int `json:"framings"`
}

// Summarize counts outcomes and averages the framing score over successes.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), Framings: make(map[types.Framing]int)}

	var total float64
	for _, r := range results {
		if r.Data == nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		total += r.Data.FramingScore
		s.Framings[r.Data.Framing]++
	}
	if s.Succeeded > 0 {
		s.AverageFramingScore = total / float64(s.Succeeded)
	}
	return s
}
