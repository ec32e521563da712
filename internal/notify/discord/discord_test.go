package discord

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/helpline/internal/notify"
)

type mockSession struct {
	embeds   []*discordgo.MessageEmbed
	channels []string
	err      error
}

func (m *mockSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.channels = append(m.channels, channelID)
	m.embeds = append(m.embeds, embed)
	return &discordgo.Message{ID: "1"}, m.err
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Opts{ChannelID: "123"}); err == nil {
		t.Error("expected error for missing token")
	}
	if _, err := New(Opts{Token: "t"}); err == nil {
		t.Error("expected error for missing channel id")
	}
}

func TestSend(t *testing.T) {
	mock := &mockSession{}
	n, err := New(Opts{Session: mock, ChannelID: "C123"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = n.Send(context.Background(), notify.Message{
		Subject:  "New handoff request",
		Body:     "details",
		Priority: "medium",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if mock.channels[0] != "C123" {
		t.Errorf("channel = %s", mock.channels[0])
	}
	if mock.embeds[0].Color != 0xffba08 {
		t.Errorf("color = %#x, want medium yellow", mock.embeds[0].Color)
	}
}

func TestSend_UrgentMarksTitle(t *testing.T) {
	mock := &mockSession{}
	n, _ := New(Opts{Session: mock, ChannelID: "C123"})
	n.Send(context.Background(), notify.Message{Subject: "handoff", Priority: "urgent", Urgent: true})
	if !strings.Contains(mock.embeds[0].Title, "🚨") {
		t.Errorf("title = %q, want alert marker", mock.embeds[0].Title)
	}
	if mock.embeds[0].Color != 0xd00000 {
		t.Errorf("color = %#x, want urgent red", mock.embeds[0].Color)
	}
}

func TestSend_Error(t *testing.T) {
	mock := &mockSession{err: errors.New("rate limited")}
	n, _ := New(Opts{Session: mock, ChannelID: "C123"})
	if err := n.Send(context.Background(), notify.Message{Subject: "x"}); err == nil {
		t.Fatal("expected error")
	}
}
