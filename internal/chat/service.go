package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists message logs.
type Store interface {
	// Append writes msgs atomically in the given order.
	Append(ctx context.Context, msgs ...Message) error
	// List returns a channel's messages ordered by CreatedTime ascending.
	List(ctx context.Context, channel Channel) ([]Message, error)
	// Clear deletes every message of a channel and returns the count removed.
	Clear(ctx context.Context, channel Channel) (int64, error)
}

// CommandResolver answers a Risk table line.
type CommandResolver interface {
	ResolveCommand(text string) string
}

// SendResult is the pair of messages produced by a send.
type SendResult struct {
	Message Message  `json:"message"`
	Reply   *Message `json:"reply,omitempty"`
}

// RealtimeMessage describes a write to the realtime log. Nil fields take
// their defaults: role user, now, and auto-reply on.
type RealtimeMessage struct {
	Content     string `json:"content"`
	Role        Role   `json:"role,omitempty"`
	CreatedTime *int64 `json:"createdTime,omitempty"`
	AutoReply   *bool  `json:"autoReply,omitempty"`
}

// Service records messages and their automatic replies.
type Service struct {
	store   Store
	risk    CommandResolver
	replies *ReplyBook
	logger  *zap.Logger
	now     func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithReplyBook overrides the built-in reply rules.
func WithReplyBook(book *ReplyBook) Option {
	return func(s *Service) { s.replies = book }
}

// NewService creates a Service.
//
// Precondition: store, risk, and logger must be non-nil.
func NewService(store Store, risk CommandResolver, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		risk:    risk,
		replies: DefaultReplyBook(),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns a channel's log in chronological order.
func (s *Service) List(ctx context.Context, channel Channel) ([]Message, error) {
	msgs, err := s.store.List(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("listing %s messages: %w", channel, err)
	}
	return msgs, nil
}

// Send records a user message on the chat or risk log followed by the
// system reply one millisecond later.
//
// Precondition: channel is ChannelChat or ChannelRisk.
// Postcondition: both messages are stored, or neither.
func (s *Service) Send(ctx context.Context, channel Channel, content string) (SendResult, error) {
	var reply string
	switch channel {
	case ChannelChat:
		reply = s.replies.Chat.Reply(content)
	case ChannelRisk:
		reply = s.risk.ResolveCommand(content)
	case ChannelRealtime:
		return s.SendRealtime(ctx, RealtimeMessage{Content: content})
	default:
		return SendResult{}, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}

	now := s.now().UnixMilli()
	user := s.newMessage(channel, RoleUser, content, now)
	system := s.newMessage(channel, RoleSystem, reply, now+1)
	if err := s.store.Append(ctx, user, system); err != nil {
		return SendResult{}, fmt.Errorf("storing %s exchange: %w", channel, err)
	}

	s.logger.Debug("message exchange stored",
		zap.String("channel", string(channel)),
		zap.String("message_id", user.ID),
		zap.Int("reply_len", len(reply)),
	)
	return SendResult{Message: user, Reply: &system}, nil
}

// SendRealtime records a realtime log entry and, for user messages with
// auto-reply enabled, the system reply one millisecond later.
func (s *Service) SendRealtime(ctx context.Context, in RealtimeMessage) (SendResult, error) {
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if !ChannelRealtime.Allows(role) {
		return SendResult{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	created := s.now().UnixMilli()
	if in.CreatedTime != nil {
		created = *in.CreatedTime
	}

	msg := s.newMessage(ChannelRealtime, role, in.Content, created)
	out := SendResult{Message: msg}
	batch := []Message{msg}

	if role == RoleUser && (in.AutoReply == nil || *in.AutoReply) {
		reply := s.newMessage(ChannelRealtime, RoleSystem, s.replies.Realtime.Reply(in.Content), created+1)
		out.Reply = &reply
		batch = append(batch, reply)
	}

	if err := s.store.Append(ctx, batch...); err != nil {
		return SendResult{}, fmt.Errorf("storing realtime message: %w", err)
	}
	return out, nil
}

// Clear removes every message of channel.
func (s *Service) Clear(ctx context.Context, channel Channel) (int64, error) {
	n, err := s.store.Clear(ctx, channel)
	if err != nil {
		return 0, fmt.Errorf("clearing %s messages: %w", channel, err)
	}
	s.logger.Info("message log cleared",
		zap.String("channel", string(channel)),
		zap.Int64("deleted", n),
	)
	return n, nil
}

func (s *Service) newMessage(channel Channel, role Role, content string, created int64) Message {
	return Message{
		ID:          uuid.NewString(),
		Channel:     channel,
		Role:        role,
		Content:     content,
		CreatedTime: created,
	}
}
