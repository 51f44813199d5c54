package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/chat"
	"github.com/cory-johannsen/tabletop/internal/research"
)

// RealtimeLog records realtime messages.
type RealtimeLog interface {
	SendRealtime(ctx context.Context, in chat.RealtimeMessage) (chat.SendResult, error)
}

// researchNotice renders the realtime log line for a finished research job.
func researchNotice(job research.Job, r research.Report, err error) string {
	if err != nil {
		return fmt.Sprintf(`Research failed for "%s": %v`, job.Query, err)
	}
	return fmt.Sprintf(`Research completed for "%s". Found %d results.`, job.Query, len(r.Results))
}

// researchNotifier posts the outcome of each research job to the realtime
// log as a system message.
func researchNotifier(messages RealtimeLog, logger *zap.Logger) research.NotifyFunc {
	return func(ctx context.Context, job research.Job, r research.Report, err error) {
		off := false
		if _, err := messages.SendRealtime(ctx, chat.RealtimeMessage{
			Content:   researchNotice(job, r, err),
			Role:      chat.RoleSystem,
			AutoReply: &off,
		}); err != nil {
			logger.Warn("posting research notice", zap.String("todo_id", job.TodoID), zap.Error(err))
		}
	}
}
