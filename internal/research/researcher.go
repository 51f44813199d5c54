package research

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidRequest is returned when a query or todo id is missing.
var ErrInvalidRequest = errors.New("query and todo id are required")

// Searcher runs a single web search.
type Searcher interface {
	Configured() bool
	Search(ctx context.Context, query string) (SearchResponse, error)
}

// Researcher turns a todo's text into a Report.
type Researcher struct {
	searcher Searcher
	logger   *zap.Logger
	now      func() time.Time
}

// NewResearcher creates a Researcher. When searcher is not configured every
// report is mock data.
//
// Precondition: searcher and logger must be non-nil.
func NewResearcher(searcher Searcher, logger *zap.Logger) *Researcher {
	return &Researcher{searcher: searcher, logger: logger, now: time.Now}
}

// Research runs a search for query on behalf of todoID.
//
// Postcondition: Returns a Report whose TodoID and Query echo the inputs,
// or ErrInvalidRequest, or a search error.
func (r *Researcher) Research(ctx context.Context, query, todoID string) (Report, error) {
	if query == "" || todoID == "" {
		return Report{}, ErrInvalidRequest
	}

	if !r.searcher.Configured() {
		r.logger.Warn("TAVILY_API_KEY not set, using mock data", zap.String("todo_id", todoID))
		return mockReport(query, todoID, r.now().UnixMilli()), nil
	}

	start := time.Now()
	resp, err := r.searcher.Search(ctx, query)
	if err != nil {
		return Report{}, fmt.Errorf("researching %q: %w", query, err)
	}
	report := buildReport(query, todoID, r.now().UnixMilli(), resp)

	r.logger.Info("research completed",
		zap.String("todo_id", todoID),
		zap.Int("results", report.Metadata.ResultCount),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}
