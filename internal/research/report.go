package research

import (
	"fmt"
	"strings"
)

// Result is one normalised search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Metadata summarises a research run.
type Metadata struct {
	SearchTerms      []string `json:"searchTerms"`
	ResultCount      int      `json:"resultCount"`
	AverageRelevance float64  `json:"averageRelevance"`
	TavilyUsed       bool     `json:"tavilyUsed,omitempty"`
	MockData         bool     `json:"mockData,omitempty"`
}

// Report is the research payload stored on a todo.
type Report struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Summary string   `json:"summary"`
	// ResearchedAt is Unix milliseconds.
	ResearchedAt int64    `json:"researchedAt"`
	TodoID       string   `json:"todoId"`
	Metadata     Metadata `json:"metadata"`
}

const mockScore = 0.85

func mockReport(query, todoID string, now int64) Report {
	return Report{
		Query: query,
		Results: []Result{{
			Title:   query + " - Research Results",
			URL:     "https://example.com/search?q=" + encodeURIComponent(query),
			Content: fmt.Sprintf(`Mock research results for "%s". Set TAVILY_API_KEY environment variable to enable real web search.`, query),
			Score:   mockScore,
		}},
		Summary:      fmt.Sprintf(`Mock research completed for "%s". Set TAVILY_API_KEY to enable real web search.`, query),
		ResearchedAt: now,
		TodoID:       todoID,
		Metadata: Metadata{
			SearchTerms:      strings.Split(query, " "),
			ResultCount:      1,
			AverageRelevance: mockScore,
			MockData:         true,
		},
	}
}

func buildReport(query, todoID string, now int64, resp SearchResponse) Report {
	results := make([]Result, 0, len(resp.Results))
	var total float64
	for _, h := range resp.Results {
		r := Result{Title: "No title"}
		if h.Title != nil {
			r.Title = *h.Title
		}
		if h.URL != nil {
			r.URL = *h.URL
		}
		if h.Content != nil {
			r.Content = *h.Content
		}
		if h.Score != nil {
			r.Score = *h.Score
		}
		total += r.Score
		results = append(results, r)
	}

	summary := resp.Answer
	if summary == "" {
		summary = fmt.Sprintf(`Research completed for "%s". Found %d relevant results.`, query, len(results))
	}

	var avg float64
	if len(results) > 0 {
		avg = total / float64(len(results))
	}

	return Report{
		Query:        query,
		Results:      results,
		Summary:      summary,
		ResearchedAt: now,
		TodoID:       todoID,
		Metadata: Metadata{
			SearchTerms:      strings.Split(query, " "),
			ResultCount:      len(results),
			AverageRelevance: avg,
			TavilyUsed:       true,
		},
	}
}

// encodeURIComponent percent-encodes s the way browsers do for a URI
// component: letters, digits and -_.!~*'() pass through.
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte("-_.!~*'()", c) >= 0:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}
