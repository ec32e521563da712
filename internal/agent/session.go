// Package agent runs the per-turn conversation pipeline: classify the
// customer's intent, gather context with the matching handler, check
// sentiment and escalation, then respond or hand off to a human.
package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/helpline/internal/models"
	"gorm.io/gorm"
)

// Message is one transcript entry. Role is "customer" or "agent".
type Message struct {
	Role    string
	Content string
}

// Session is the in-memory working state of one conversation. A turn
// operates on a caller-owned Session and mutates it only when the whole
// turn commits.
type Session struct {
	ConversationID   string
	CustomerID       string
	Messages         []Message
	Intent           string
	SentimentScore   float64
	FrustrationLevel string
	Context          string
	NeedsEscalation  bool
	EscalationReason string
	TicketID         string
	TurnCount        int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewSession starts a fresh conversation session.
func NewSession(conversationID, customerID string) *Session {
	now := time.Now()
	return &Session{
		ConversationID:   conversationID,
		CustomerID:       customerID,
		FrustrationLevel: "low",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// LastCustomerMessage returns the most recent customer message, or "".
func (s *Session) LastCustomerMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "customer" {
			return s.Messages[i].Content
		}
	}
	return ""
}

// transcript renders the last n messages as "Customer:/Agent:" lines.
func transcript(msgs []Message, n int) string {
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	var lines []string
	for _, m := range msgs {
		role := "Agent"
		if m.Role == "customer" {
			role = "Customer"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, m.Content))
	}
	return strings.Join(lines, "\n")
}

// SessionStore persists sessions through GORM, one Conversation row plus
// ordered ConversationMessage rows per session.
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore creates a session store.
func NewSessionStore(db *gorm.DB) (*SessionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("agent: session store: database is required")
	}
	return &SessionStore{db: db}, nil
}

// Load retrieves a session with its full transcript, or nil if absent.
func (st *SessionStore) Load(conversationID string) (*Session, error) {
	var conv models.Conversation
	err := st.db.Preload("Messages", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("sequence asc")
	}).First(&conv, "id = ?", conversationID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("agent: load session %s: %w", conversationID, err)
	}

	s := &Session{
		ConversationID:   conv.ID,
		CustomerID:       conv.CustomerID,
		Intent:           conv.Intent,
		SentimentScore:   conv.SentimentScore,
		FrustrationLevel: conv.FrustrationLevel,
		Context:          conv.Context,
		NeedsEscalation:  conv.NeedsEscalation,
		EscalationReason: conv.EscalationReason,
		TicketID:         conv.TicketID,
		TurnCount:        conv.TurnCount,
		CreatedAt:        conv.CreatedAt,
		UpdatedAt:        conv.UpdatedAt,
	}
	for _, m := range conv.Messages {
		s.Messages = append(s.Messages, Message{Role: m.Role, Content: m.Content})
	}
	return s, nil
}

// Save writes the session and its transcript in one transaction. The
// message list is replaced wholesale; sequences are reassigned from the
// in-memory order.
func (st *SessionStore) Save(s *Session) error {
	if s == nil || s.ConversationID == "" {
		return fmt.Errorf("agent: save session: conversation id is required")
	}

	return st.db.Transaction(func(tx *gorm.DB) error {
		conv := models.Conversation{
			ID:               s.ConversationID,
			CustomerID:       s.CustomerID,
			Intent:           s.Intent,
			SentimentScore:   s.SentimentScore,
			FrustrationLevel: s.FrustrationLevel,
			Context:          s.Context,
			NeedsEscalation:  s.NeedsEscalation,
			EscalationReason: s.EscalationReason,
			TicketID:         s.TicketID,
			TurnCount:        s.TurnCount,
			CreatedAt:        s.CreatedAt,
		}
		if err := tx.Save(&conv).Error; err != nil {
			return fmt.Errorf("agent: save conversation: %w", err)
		}

		if err := tx.Delete(&models.ConversationMessage{}, "conversation_id = ?", s.ConversationID).Error; err != nil {
			return fmt.Errorf("agent: clear messages: %w", err)
		}
		for i, m := range s.Messages {
			row := models.ConversationMessage{
				ConversationID: s.ConversationID,
				Sequence:       i,
				Role:           m.Role,
				Content:        m.Content,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("agent: save message %d: %w", i, err)
			}
		}
		return nil
	})
}
