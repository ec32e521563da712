// Package notify delivers handoff notifications to human agents over
// pluggable channels (Slack, Discord, log fallback).
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Message is one notification to push to a channel.
type Message struct {
	Subject  string
	Body     string
	Priority string // low, medium, high, urgent
	Urgent   bool   // routes through the channel's alert path
}

// Notifier is the interface that channel-specific implementations satisfy.
// Delivery is best-effort: dispatchers log failures and move on.
type Notifier interface {
	// Name identifies the channel (e.g. "slack", "discord").
	Name() string

	// Send delivers a notification. Urgent messages take the channel's
	// alert path (different channel, mention, or urgency flag).
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes notifications to the structured log. It is the
// fallback channel when no chat platform is configured, standing in for a
// real-time agent dashboard.
type LogNotifier struct {
	log *logrus.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	if log == nil {
		log = logrus.New()
	}
	return &LogNotifier{log: log}
}

// Name implements Notifier.
func (n *LogNotifier) Name() string { return "dashboard" }

// Send implements Notifier.
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	entry := n.log.WithFields(logrus.Fields{
		"subject":  msg.Subject,
		"priority": msg.Priority,
	})
	if msg.Urgent {
		entry.Warn("URGENT handoff alert")
	} else {
		entry.Info("handoff notification")
	}
	return nil
}
