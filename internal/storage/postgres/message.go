package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/tabletop/internal/chat"
)

// ErrInvalidChannel is returned when a message names an unknown channel.
var ErrInvalidChannel = errors.New("invalid channel")

// MessageRepository persists the chat, risk, and realtime message logs.
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a MessageRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts msgs in one transaction, preserving their order.
//
// Postcondition: Either every message is stored or none is.
func (r *MessageRepository) Append(ctx context.Context, msgs ...chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	for _, m := range msgs {
		if _, err := chat.ParseChannel(string(m.Channel)); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidChannel, m.Channel)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning message transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, m := range msgs {
		batch.Queue(
			`INSERT INTO messages (id, channel, role, content, created_time)
			 VALUES ($1, $2, $3, $4, $5)`,
			m.ID, string(m.Channel), string(m.Role), m.Content, m.CreatedTime,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting messages: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing messages: %w", err)
	}
	return nil
}

// List returns a channel's messages ordered by created time, then insertion order.
func (r *MessageRepository) List(ctx context.Context, channel chat.Channel) ([]chat.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, channel, role, content, created_time
		 FROM messages WHERE channel = $1
		 ORDER BY created_time, seq`,
		string(channel),
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	msgs := []chat.Message{}
	for rows.Next() {
		var (
			m             chat.Message
			channel, role string
		)
		if err := rows.Scan(&m.ID, &channel, &role, &m.Content, &m.CreatedTime); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Channel = chat.Channel(channel)
		m.Role = chat.Role(role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}

// Clear deletes every message of a channel.
//
// Postcondition: Returns the number of rows removed.
func (r *MessageRepository) Clear(ctx context.Context, channel chat.Channel) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE channel = $1`, string(channel))
	if err != nil {
		return 0, fmt.Errorf("clearing messages: %w", err)
	}
	return tag.RowsAffected(), nil
}
