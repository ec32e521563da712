package models

import "time"

// Conversation is the persisted record of one customer-service conversation.
type Conversation struct {
	ID               string `gorm:"primaryKey;size:64"`
	CustomerID       string `gorm:"size:64;index"`
	Intent           string `gorm:"size:32"`
	SentimentScore   float64
	FrustrationLevel string `gorm:"size:8;default:low"`
	Context          string `gorm:"type:text"`
	NeedsEscalation  bool   `gorm:"default:false"`
	EscalationReason string `gorm:"type:text"`
	TicketID         string `gorm:"size:32"`
	TurnCount        int    `gorm:"default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Messages []ConversationMessage `gorm:"foreignKey:ConversationID"`
}

// ConversationMessage is one entry in a conversation transcript. Sequence
// preserves insertion order; Role is "customer" or "agent".
type ConversationMessage struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	ConversationID string `gorm:"size:64;index;not null"`
	Sequence       int    `gorm:"not null"`
	Role           string `gorm:"size:16;not null"`
	Content        string `gorm:"type:text"`
	CreatedAt      time.Time
}
