package todo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists todos. Implementations return ErrNotFound for unknown ids.
type Store interface {
	Insert(ctx context.Context, t Todo) error
	Get(ctx context.Context, id string) (Todo, error)
	List(ctx context.Context, newestFirst bool) ([]Todo, error)
	ListNeedingResearch(ctx context.Context) ([]Todo, error)
	Update(ctx context.Context, id string, p Patch) (Todo, error)
	Toggle(ctx context.Context, id string) (Todo, error)
	// ClaimResearch sets ResearchScheduled and reports whether this call
	// flipped it from false.
	ClaimResearch(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// ResearchQueue accepts background research jobs.
type ResearchQueue interface {
	Enqueue(todoID, query string) error
}

// Service implements the todo operations and the research trigger.
type Service struct {
	store  Store
	queue  ResearchQueue
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a Service. queue may be nil, in which case flagged
// todos are marked but no research runs until one is attached.
//
// Precondition: store and logger must be non-nil.
func NewService(store Store, queue ResearchQueue, logger *zap.Logger) *Service {
	return &Service{store: store, queue: queue, logger: logger, now: time.Now}
}

// CreateRequest holds the inputs to Create. A nil NeedsResearch asks the
// keyword classifier to decide.
type CreateRequest struct {
	Text          string  `json:"text"`
	NeedsResearch *bool   `json:"needsResearch,omitempty"`
	Context       *string `json:"context,omitempty"`
}

// List returns all todos oldest first.
func (s *Service) List(ctx context.Context) ([]Todo, error) {
	return s.store.List(ctx, false)
}

// ListNewestFirst returns all todos newest first.
func (s *Service) ListNewestFirst(ctx context.Context) ([]Todo, error) {
	return s.store.List(ctx, true)
}

// ListNeedingResearch returns the todos flagged for research.
func (s *Service) ListNeedingResearch(ctx context.Context) ([]Todo, error) {
	return s.store.ListNeedingResearch(ctx)
}

// Get returns one todo.
func (s *Service) Get(ctx context.Context, id string) (Todo, error) {
	return s.store.Get(ctx, id)
}

// Create validates and stores a new todo, then runs the research trigger.
//
// Postcondition: Returns the stored todo, or ErrInvalidText.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Todo, error) {
	text, err := normalizeText(req.Text)
	if err != nil {
		return Todo{}, err
	}

	t := Todo{
		ID:          uuid.NewString(),
		Text:        text,
		CreatedTime: s.now().UnixMilli(),
	}
	if req.NeedsResearch != nil {
		t.NeedsResearch = *req.NeedsResearch
		if req.Context != nil {
			t.Context = *req.Context
		}
	} else {
		t.NeedsResearch, t.Context = DetectResearchNeeds(text)
	}

	if err := s.store.Insert(ctx, t); err != nil {
		return Todo{}, fmt.Errorf("inserting todo: %w", err)
	}
	s.logger.Info("todo created",
		zap.String("todo_id", t.ID),
		zap.Bool("needs_research", t.NeedsResearch),
	)

	return s.afterWrite(ctx, nil, t), nil
}

// Toggle flips a todo's completion state.
func (s *Service) Toggle(ctx context.Context, id string) (Todo, error) {
	return s.store.Toggle(ctx, id)
}

// Remove deletes a todo. Removing an unknown id is not an error.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting todo %s: %w", id, err)
	}
	return nil
}

// UpdateText replaces a todo's text.
func (s *Service) UpdateText(ctx context.Context, id, text string) (Todo, error) {
	text, err := normalizeText(text)
	if err != nil {
		return Todo{}, err
	}
	return s.store.Update(ctx, id, Patch{Text: &text})
}

// SetCompleted sets a todo's completion state explicitly.
func (s *Service) SetCompleted(ctx context.Context, id string, done bool) (Todo, error) {
	return s.store.Update(ctx, id, Patch{IsCompleted: &done})
}

// MarkForResearch sets the research flag and context, then runs the
// research trigger.
func (s *Service) MarkForResearch(ctx context.Context, id string, needs bool, note string) (Todo, error) {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Todo{}, err
	}
	after, err := s.store.Update(ctx, id, Patch{NeedsResearch: &needs, Context: &note})
	if err != nil {
		return Todo{}, err
	}
	return s.afterWrite(ctx, &before, after), nil
}

// SaveResearchResults stores raw research results text.
func (s *Service) SaveResearchResults(ctx context.Context, id, results string) (Todo, error) {
	return s.store.Update(ctx, id, Patch{ResearchResults: &results})
}

// UpdateResearchData stores data as JSON research results.
func (s *Service) UpdateResearchData(ctx context.Context, id string, data any) (Todo, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Todo{}, fmt.Errorf("encoding research data: %w", err)
	}
	return s.SaveResearchResults(ctx, id, string(raw))
}

// afterWrite schedules research once per todo: when the row now needs
// research, has not been scheduled, and is new or did not need research
// before. Scheduling failures are logged, not returned.
func (s *Service) afterWrite(ctx context.Context, before *Todo, after Todo) Todo {
	if !after.NeedsResearch || after.ResearchScheduled {
		return after
	}
	if before != nil && before.NeedsResearch {
		return after
	}

	claimed, err := s.store.ClaimResearch(ctx, after.ID)
	if err != nil {
		s.logger.Error("claiming research", zap.String("todo_id", after.ID), zap.Error(err))
		return after
	}
	if !claimed {
		return after
	}
	after.ResearchScheduled = true

	if s.queue == nil {
		s.logger.Warn("research requested but no queue attached", zap.String("todo_id", after.ID))
		return after
	}
	if err := s.queue.Enqueue(after.ID, after.Text); err != nil {
		s.logger.Error("scheduling research",
			zap.String("todo_id", after.ID),
			zap.Error(err),
		)
		return after
	}
	s.logger.Info("research scheduled", zap.String("todo_id", after.ID))
	return after
}

// AttachResearchQueue sets the queue used by the research trigger.
func (s *Service) AttachResearchQueue(q ResearchQueue) {
	s.queue = q
}

func normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: text must not be empty", ErrInvalidText)
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return "", fmt.Errorf("%w: text exceeds %d characters", ErrInvalidText, MaxTextLength)
	}
	return text, nil
}
