// Package chat owns the three message logs (chat, risk, realtime) and the
// auto-reply rules that answer user messages.
package chat

import (
	"errors"
	"fmt"
)

// Channel names a message log.
type Channel string

const (
	ChannelChat     Channel = "chat"
	ChannelRisk     Channel = "risk"
	ChannelRealtime Channel = "realtime"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
	RoleTool   Role = "tool"
)

// ErrUnknownChannel is returned for channel names outside the fixed set.
var ErrUnknownChannel = errors.New("unknown channel")

// ErrInvalidRole is returned when a role is not permitted on a channel.
var ErrInvalidRole = errors.New("invalid role")

// ParseChannel validates a channel name.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case ChannelChat, ChannelRisk, ChannelRealtime:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// Allows reports whether role may be written to channel. Tool messages are
// only recorded on the realtime log.
func (c Channel) Allows(role Role) bool {
	switch role {
	case RoleUser, RoleSystem:
		return true
	case RoleTool:
		return c == ChannelRealtime
	}
	return false
}

// Message is one entry of a message log.
type Message struct {
	ID      string  `json:"id"`
	Channel Channel `json:"channel"`
	Role    Role    `json:"role"`
	Content string  `json:"content"`
	// CreatedTime is Unix milliseconds.
	CreatedTime int64 `json:"createdTime"`
}
