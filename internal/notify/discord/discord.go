// Package discord implements the notify.Notifier interface for Discord.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/helpline/internal/notify"
)

// priorityColors maps handoff priorities to embed sidebar colors.
var priorityColors = map[string]int{
	"urgent": 0xd00000,
	"high":   0xe85d04,
	"medium": 0xffba08,
	"low":    0x36a64f,
}

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts handoff notifications to a Discord channel as embeds.
type Notifier struct {
	sess      session
	channelID string
}

// Opts holds parameters for creating a Discord Notifier.
type Opts struct {
	Token     string
	ChannelID string
	// For testing: inject a mock session instead of the real gateway.
	Session session
}

// New creates a Discord Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.Session == nil && opts.Token == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel id is required")
	}

	n := &Notifier{sess: opts.Session, channelID: opts.ChannelID}
	if n.sess == nil {
		sess, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		n.sess = sess
	}
	return n, nil
}

// Name implements notify.Notifier.
func (n *Notifier) Name() string { return "discord" }

// Send implements notify.Notifier.
func (n *Notifier) Send(_ context.Context, msg notify.Message) error {
	color, ok := priorityColors[msg.Priority]
	if !ok {
		color = priorityColors["medium"]
	}

	title := msg.Subject
	if msg.Urgent {
		title = "🚨 " + title
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: msg.Body,
		Color:       color,
	}
	if _, err := n.sess.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		return fmt.Errorf("discord: send to %s: %w", n.channelID, err)
	}
	return nil
}
