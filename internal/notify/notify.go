// Package notify delivers restock alerts and heartbeat messages.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Notifier sends one text message to the operator's channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// RestockMessage lists every newly available target in one message.
func RestockMessage(lines []string) string {
	return "✅ AVAILABLE now:\n" + strings.Join(lines, "\n")
}

// HeartbeatMessage summarises what is being tracked.
func HeartbeatMessage(tracked, available int) string {
	return fmt.Sprintf("🟢 restockwatch heartbeat: tracking %d targets, %d available", tracked, available)
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	Logger *slog.Logger
}

// Send implements Notifier.
func (n LogNotifier) Send(ctx context.Context, text string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Notification (dry run)", "text", text)
	return nil
}
