package models

import "time"

// Ticket is a support ticket opened on behalf of a customer.
type Ticket struct {
	ID             string `gorm:"primaryKey;size:32"`
	CustomerID     string `gorm:"size:64;index"`
	ConversationID string `gorm:"size:64;index"`
	Category       string `gorm:"size:16;default:general"`
	Subject        string `gorm:"size:256"`
	Description    string `gorm:"type:text"`
	Priority       string `gorm:"size:8;default:medium"`
	Status         string `gorm:"size:16;default:open;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
