package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/tabletop/internal/todo"
)

// ErrTodoNotFound is returned when a todo lookup yields no results.
// It matches todo.ErrNotFound under errors.Is.
var ErrTodoNotFound error = todoNotFound{}

type todoNotFound struct{}

func (todoNotFound) Error() string { return "todo not found" }

func (todoNotFound) Is(target error) bool { return target == todo.ErrNotFound }

const todoColumns = `id, text, is_completed, created_time, needs_research,
	context, research_results, research_scheduled`

// TodoRepository provides todo persistence operations.
type TodoRepository struct {
	db *pgxpool.Pool
}

// NewTodoRepository creates a TodoRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewTodoRepository(db *pgxpool.Pool) *TodoRepository {
	return &TodoRepository{db: db}
}

// Insert stores a new todo.
func (r *TodoRepository) Insert(ctx context.Context, t todo.Todo) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO todos (`+todoColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Text, t.IsCompleted, t.CreatedTime, t.NeedsResearch,
		t.Context, t.ResearchResults, t.ResearchScheduled,
	)
	if err != nil {
		return fmt.Errorf("inserting todo: %w", err)
	}
	return nil
}

// Get retrieves a todo by id.
//
// Postcondition: Returns the Todo or ErrTodoNotFound.
func (r *TodoRepository) Get(ctx context.Context, id string) (todo.Todo, error) {
	row := r.db.QueryRow(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1`, id)
	return scanTodo(row)
}

// List returns every todo ordered by creation.
func (r *TodoRepository) List(ctx context.Context, newestFirst bool) ([]todo.Todo, error) {
	order := "created_time, seq"
	if newestFirst {
		order = "created_time DESC, seq DESC"
	}
	return r.query(ctx, `SELECT `+todoColumns+` FROM todos ORDER BY `+order)
}

// ListNeedingResearch returns todos flagged for research, oldest first.
func (r *TodoRepository) ListNeedingResearch(ctx context.Context) ([]todo.Todo, error) {
	return r.query(ctx, `SELECT `+todoColumns+` FROM todos WHERE needs_research ORDER BY created_time, seq`)
}

// Update applies the non-nil fields of p.
//
// Postcondition: Returns the updated Todo or ErrTodoNotFound.
func (r *TodoRepository) Update(ctx context.Context, id string, p todo.Patch) (todo.Todo, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE todos SET
			text             = COALESCE($2, text),
			is_completed     = COALESCE($3, is_completed),
			needs_research   = COALESCE($4, needs_research),
			context          = COALESCE($5, context),
			research_results = COALESCE($6, research_results)
		 WHERE id = $1
		 RETURNING `+todoColumns,
		id, p.Text, p.IsCompleted, p.NeedsResearch, p.Context, p.ResearchResults,
	)
	return scanTodo(row)
}

// Toggle flips is_completed atomically.
//
// Postcondition: Returns the updated Todo or ErrTodoNotFound.
func (r *TodoRepository) Toggle(ctx context.Context, id string) (todo.Todo, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE todos SET is_completed = NOT is_completed WHERE id = $1 RETURNING `+todoColumns,
		id,
	)
	return scanTodo(row)
}

// ClaimResearch sets research_scheduled if it is not already set.
//
// Postcondition: Returns true only for the call that flipped the flag,
// or ErrTodoNotFound when the id matches no row.
func (r *TodoRepository) ClaimResearch(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE todos SET research_scheduled = TRUE WHERE id = $1 AND NOT research_scheduled`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("claiming research: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM todos WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking todo: %w", err)
	}
	if !exists {
		return false, ErrTodoNotFound
	}
	return false, nil
}

// Delete removes a todo. Deleting a missing id is not an error.
func (r *TodoRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting todo: %w", err)
	}
	return nil
}

func (r *TodoRepository) query(ctx context.Context, sql string, args ...any) ([]todo.Todo, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}
	defer rows.Close()

	todos := []todo.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating todos: %w", err)
	}
	return todos, nil
}

func scanTodo(row pgx.Row) (todo.Todo, error) {
	var t todo.Todo
	err := row.Scan(
		&t.ID, &t.Text, &t.IsCompleted, &t.CreatedTime, &t.NeedsResearch,
		&t.Context, &t.ResearchResults, &t.ResearchScheduled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return todo.Todo{}, ErrTodoNotFound
		}
		return todo.Todo{}, fmt.Errorf("scanning todo: %w", err)
	}
	return t, nil
}
