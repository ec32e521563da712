// Package slack implements the notify.Notifier interface for Slack.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/helpline/internal/notify"
)

// priorityColors maps handoff priorities to attachment sidebar colors.
var priorityColors = map[string]string{
	"urgent": "#d00000",
	"high":   "#e85d04",
	"medium": "#ffba08",
	"low":    "#36a64f",
}

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier posts handoff notifications to Slack channels. Urgent handoffs
// go to the alert channel with an @here mention.
type Notifier struct {
	client       slackClient
	channel      string
	alertChannel string
}

// Opts holds parameters for creating a Slack Notifier.
type Opts struct {
	Token        string // xoxb-... bot token
	Channel      string // channel for standard notifications
	AlertChannel string // channel for urgent notifications; defaults to Channel
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.Client == nil && opts.Token == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}

	n := &Notifier{
		client:       opts.Client,
		channel:      opts.Channel,
		alertChannel: opts.AlertChannel,
	}
	if n.client == nil {
		n.client = slackapi.New(opts.Token)
	}
	if n.alertChannel == "" {
		n.alertChannel = opts.Channel
	}
	return n, nil
}

// Name implements notify.Notifier.
func (n *Notifier) Name() string { return "slack" }

// Send implements notify.Notifier.
func (n *Notifier) Send(ctx context.Context, msg notify.Message) error {
	channel := n.channel
	text := msg.Subject
	if msg.Urgent {
		channel = n.alertChannel
		text = "<!here> :rotating_light: " + msg.Subject
	}

	color, ok := priorityColors[msg.Priority]
	if !ok {
		color = priorityColors["medium"]
	}

	opts := []slackapi.MsgOption{
		slackapi.MsgOptionText(text, false),
	}
	if msg.Body != "" {
		opts = append(opts, slackapi.MsgOptionAttachments(slackapi.Attachment{
			Color: color,
			Text:  msg.Body,
		}))
	}

	if _, _, err := n.client.PostMessageContext(ctx, channel, opts...); err != nil {
		return fmt.Errorf("slack: post to %s: %w", channel, err)
	}
	return nil
}
