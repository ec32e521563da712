package models

import "time"

// Checkpoint is a durable snapshot of a suspended turn, written before the
// state machine interrupts for human approval. State holds the serialized
// resumption payload.
type Checkpoint struct {
	ThreadID  string `gorm:"primaryKey;size:64"`
	State     string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
