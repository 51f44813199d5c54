// Package handlers provides the Telnet session handler for the Risk table console.
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/chat"
	"github.com/cory-johannsen/tabletop/internal/frontend/telnet"
)

// HistoryLimit is the number of past risk messages the history command shows.
const HistoryLimit = 20

// RiskLog is the subset of chat.Service the console uses.
type RiskLog interface {
	Send(ctx context.Context, channel chat.Channel, content string) (chat.SendResult, error)
	List(ctx context.Context, channel chat.Channel) ([]chat.Message, error)
}

const banner = telnet.Bold + telnet.Cyan + `
  ====================================
     R I S K   T A B L E   D I C E
  ====================================` + telnet.Reset + `

  Type a battle code (` + telnet.Green + `31` + telnet.Reset + `, ` + telnet.Green + `21` + telnet.Reset + `, ...), ` +
	telnet.Green + `countries <n>` + telnet.Reset + `, or ` + telnet.Green + `/howto` + telnet.Reset + `.
  Type ` + telnet.Green + `history` + telnet.Reset + ` to replay the table, ` + telnet.Green + `quit` + telnet.Reset + ` to leave.
`

// RiskTableHandler implements telnet.SessionHandler. Every line a player
// types is recorded on the risk log and answered by the interpreter, so the
// console and the web page share one table.
type RiskTableHandler struct {
	log    RiskLog
	logger *zap.Logger
}

// NewRiskTableHandler creates a RiskTableHandler.
//
// Precondition: log and logger must be non-nil.
func NewRiskTableHandler(log RiskLog, logger *zap.Logger) *RiskTableHandler {
	return &RiskTableHandler{log: log, logger: logger}
}

// HandleSession shows the banner and runs the read-resolve-reply loop.
//
// Postcondition: Returns nil on quit, ctx.Err() on shutdown, or the I/O error
// that ended the session.
func (h *RiskTableHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	addr := conn.RemoteAddr().String()

	if err := conn.WriteLine(banner); err != nil {
		return fmt.Errorf("sending banner: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Table closing. Goodbye!"))
			return err
		}

		if err := conn.WritePrompt(telnet.Colorize(telnet.White, "risk> ")); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}

		line, err := conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
			h.logger.Info("player left the table",
				zap.String("remote_addr", addr),
				zap.Duration("session_duration", time.Since(start)),
			)
			return nil
		case "history":
			if err := h.writeHistory(ctx, conn); err != nil {
				return err
			}
			continue
		}

		res, err := h.log.Send(ctx, chat.ChannelRisk, line)
		if err != nil {
			h.logger.Error("recording risk command", zap.String("remote_addr", addr), zap.Error(err))
			if werr := conn.WriteLine(telnet.Colorize(telnet.Red, "The table is unavailable, try again.")); werr != nil {
				return fmt.Errorf("writing error: %w", werr)
			}
			continue
		}
		if res.Reply != nil {
			if err := conn.WriteLine(telnet.Colorize(telnet.Yellow, res.Reply.Content)); err != nil {
				return fmt.Errorf("writing reply: %w", err)
			}
		}
	}
}

func (h *RiskTableHandler) writeHistory(ctx context.Context, conn *telnet.Conn) error {
	msgs, err := h.log.List(ctx, chat.ChannelRisk)
	if err != nil {
		h.logger.Error("listing risk history", zap.Error(err))
		return conn.WriteLine(telnet.Colorize(telnet.Red, "History is unavailable."))
	}
	if len(msgs) == 0 {
		return conn.WriteLine(telnet.Colorize(telnet.Dim, "No rolls yet."))
	}
	if len(msgs) > HistoryLimit {
		msgs = msgs[len(msgs)-HistoryLimit:]
	}
	for _, m := range msgs {
		if err := conn.WriteLine(FormatHistoryEntry(m)); err != nil {
			return fmt.Errorf("writing history: %w", err)
		}
	}
	return nil
}

// FormatHistoryEntry renders one logged message for the console: player
// lines are prefixed with "> ", replies are indented under them.
func FormatHistoryEntry(m chat.Message) string {
	if m.Role == chat.RoleUser {
		return telnet.Colorize(telnet.Green, "> "+m.Content)
	}
	return telnet.Colorize(telnet.Yellow, "  "+strings.ReplaceAll(m.Content, "\n", "\n  "))
}
