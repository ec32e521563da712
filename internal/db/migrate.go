package db

import (
	"fmt"
	"strings"

	"github.com/zulandar/helpline/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Conversation{},
		&models.ConversationMessage{},
		&models.Ticket{},
		&models.SupportAgent{},
		&models.Checkpoint{},
		&models.HandoffArchive{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// AgentSeed describes one support agent to upsert.
type AgentSeed struct {
	ID     string
	Name   string
	Status string
	Skills []string
}

// DefaultAgentSeeds is the starter agent pool for new installs.
var DefaultAgentSeeds = []AgentSeed{
	{ID: "AGENT-001", Name: "Sarah Johnson", Status: "available", Skills: []string{"technical", "billing"}},
	{ID: "AGENT-002", Name: "Mike Chen", Status: "available", Skills: []string{"returns", "shipping"}},
	{ID: "AGENT-003", Name: "Emily Davis", Status: "busy", Skills: []string{"vip", "complaints"}},
}

// SeedAgents upserts SupportAgent rows.
func SeedAgents(db *gorm.DB, seeds []AgentSeed) error {
	for _, s := range seeds {
		agent := models.SupportAgent{
			ID:     s.ID,
			Name:   s.Name,
			Status: s.Status,
			Skills: strings.Join(s.Skills, ","),
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "status", "skills"}),
		}).Create(&agent)
		if result.Error != nil {
			return fmt.Errorf("db: seed agent %s: %w", s.ID, result.Error)
		}
	}
	return nil
}
