package models

import "time"

// HandoffArchive is the historical record of a handoff request that left the
// active queue (resolved or abandoned). The live queue itself is in-memory;
// rows land here only on terminal transitions.
type HandoffArchive struct {
	RequestID      string `gorm:"primaryKey;size:32"`
	ConversationID string `gorm:"size:64;index"`
	CustomerID     string `gorm:"size:64"`
	TicketID       string `gorm:"size:32"`
	Priority       string `gorm:"size:8"`
	Triggers       string `gorm:"size:256"` // comma-separated trigger tags
	Reason         string `gorm:"type:text"`
	Status         string `gorm:"size:16"`
	AssignedAgent  string `gorm:"size:32"`
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}
