// Package checkpoint persists suspended turn state so a conversation can
// survive a process restart while waiting on human approval.
package checkpoint

import (
	"fmt"

	"github.com/zulandar/helpline/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store saves and restores serialized turn state keyed by thread ID.
// Load reports ok=false for an absent thread; that is not an error.
type Store interface {
	Save(threadID, state string) error
	Load(threadID string) (state string, ok bool, err error)
	Delete(threadID string) error
}

// GormStore keeps checkpoints in the checkpoints table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a database-backed checkpoint store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("checkpoint: database is required")
	}
	return &GormStore{db: db}, nil
}

// Save upserts the checkpoint for a thread.
func (s *GormStore) Save(threadID, state string) error {
	if threadID == "" {
		return fmt.Errorf("checkpoint: thread id is required")
	}
	row := models.Checkpoint{ThreadID: threadID, State: state}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("checkpoint: save %s: %w", threadID, err)
	}
	return nil
}

// Load retrieves the checkpoint for a thread.
func (s *GormStore) Load(threadID string) (string, bool, error) {
	var row models.Checkpoint
	err := s.db.First(&row, "thread_id = ?", threadID).Error
	if err == gorm.ErrRecordNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("checkpoint: load %s: %w", threadID, err)
	}
	return row.State, true, nil
}

// Delete removes the checkpoint for a thread. Deleting an absent thread
// is a no-op.
func (s *GormStore) Delete(threadID string) error {
	err := s.db.Delete(&models.Checkpoint{}, "thread_id = ?", threadID).Error
	if err != nil {
		return fmt.Errorf("checkpoint: delete %s: %w", threadID, err)
	}
	return nil
}
