// Package todo implements the todo list, including the keyword classifier
// that flags items for background research.
package todo

import "errors"

// MaxTextLength bounds a todo's text in runes.
const MaxTextLength = 200

// ErrNotFound is returned when a todo id matches no row.
var ErrNotFound = errors.New("todo not found")

// ErrInvalidText is returned for empty or oversized todo text.
var ErrInvalidText = errors.New("invalid todo text")

// Todo is one item of the list.
type Todo struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"isCompleted"`
	// CreatedTime is Unix milliseconds.
	CreatedTime       int64  `json:"createdTime"`
	NeedsResearch     bool   `json:"needsResearch"`
	Context           string `json:"context,omitempty"`
	ResearchResults   string `json:"researchResults,omitempty"`
	ResearchScheduled bool   `json:"researchScheduled"`
}

// Patch lists the fields to change; nil fields are left untouched.
type Patch struct {
	Text            *string
	IsCompleted     *bool
	NeedsResearch   *bool
	Context         *string
	ResearchResults *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Text == nil && p.IsCompleted == nil && p.NeedsResearch == nil &&
		p.Context == nil && p.ResearchResults == nil
}
