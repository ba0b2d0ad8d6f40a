package recommend

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"go-tonescope/types"
)

// Matcher extracts a recommendation from one reply line.
type Matcher interface {
	Match(line string) (types.Recommendation, bool)
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(line string) (types.Recommendation, bool)

func (f MatcherFunc) Match(line string) (types.Recommendation, bool) { return f(line) }

// DefaultMatchers are tried in order on every line; the first match wins.
var DefaultMatchers = []Matcher{
	MatcherFunc(matchPipe),
	MatcherFunc(matchNumberedMarkdown),
}

var boldOrdinal = regexp.MustCompile(`^\*\*\d+\.`)

// matchPipe accepts "Title | URL | summary" with exactly three non-empty fields.
// Bold numbered lines belong to the markdown matcher, and an echo of the
// requested format line is not a record.
func matchPipe(line string) (types.Recommendation, bool) {
	if boldOrdinal.MatchString(line) {
		return types.Recommendation{}, false
	}
	fields := strings.Split(line, "|")
	if len(fields) != 3 {
		return types.Recommendation{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
		if fields[i] == "" {
			return types.Recommendation{}, false
		}
	}
	if strings.EqualFold(fields[0], "title") && strings.EqualFold(fields[1], "url") {
		return types.Recommendation{}, false
	}
	return types.Recommendation{Title: fields[0], URL: fields[1], Summary: fields[2]}, true
}

// **1. Title | https://example.com** - summary
var numberedMarkdown = regexp.MustCompile(`^\s*\*\*\d+\.\s*(.+?)\s*\|\s*(https?://\S+?)\s*\*\*\s*[-–—:]?\s*(.+?)\s*$`)

func matchNumberedMarkdown(line string) (types.Recommendation, bool) {
	m := numberedMarkdown.FindStringSubmatch(line)
	if m == nil {
		return types.Recommendation{}, false
	}
	return types.Recommendation{Title: m[1], URL: m[2], Summary: m[3]}, true
}

// Parse scans reply line by line. Blank lines and lines no matcher accepts are
// skipped. Order is preserved.
func Parse(reply string, matchers ...Matcher) ([]types.Recommendation, error) {
	if len(matchers) == 0 {
		matchers = DefaultMatchers
	}

	var recs []types.Recommendation
	sc := bufio.NewScanner(strings.NewReader(reply))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		for _, m := range matchers {
			if rec, ok := m.Match(line); ok {
				recs = append(recs, rec)
				break
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan recommendations: %w", err)
	}
	if len(recs) == 0 {
		return nil, types.ErrNoRecommendationsParsed
	}
	return recs, nil
}
