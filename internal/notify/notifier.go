// Package notify delivers signal alerts and scan summaries to external
// channels. Telegram is the production backend; LogNotifier serves
// development and dry runs.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Message is one outbound notification.
type Message struct {
	Text string
	// Silent suppresses the client-side notification sound. Summaries and
	// low-priority updates are sent silent.
	Silent bool
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// FileSender is implemented by backends that can deliver a file attachment.
type FileSender interface {
	SendFile(ctx context.Context, path, caption string) error
}

// LogNotifier writes notifications to the logger instead of a channel.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.log.Info().Bool("silent", msg.Silent).Msg(msg.Text)
	return nil
}

// NotifyFailure sends a best-effort failure alert for an operation that is
// about to abort. Delivery errors are swallowed: the caller is already on
// its error path and the channel must not mask the original failure.
func NotifyFailure(ctx context.Context, n Notifier, operation string, err error) {
	if n == nil || err == nil {
		return
	}
	_ = n.Send(ctx, Message{Text: fmt.Sprintf("🚨 %s failed: %v", operation, err)})
}
