package tools

import (
	"fmt"

	"github.com/zulandar/helpline/internal/models"
	"gorm.io/gorm"
)

// AgentDirectory queries the support agent roster.
type AgentDirectory struct {
	db *gorm.DB
}

// NewAgentDirectory creates an agent directory.
func NewAgentDirectory(db *gorm.DB) (*AgentDirectory, error) {
	if db == nil {
		return nil, fmt.Errorf("tools: agent directory: database is required")
	}
	return &AgentDirectory{db: db}, nil
}

// Available lists agents with status "available". When requiredSkills is
// non-empty only agents holding at least one of those skills are
// returned. Satisfies the handoff dispatcher's pool interface.
func (d *AgentDirectory) Available(requiredSkills []string) ([]models.SupportAgent, error) {
	var agents []models.SupportAgent
	err := d.db.Where("status = ?", "available").Order("id").Find(&agents).Error
	if err != nil {
		return nil, fmt.Errorf("tools: list agents: %w", err)
	}
	if len(requiredSkills) == 0 {
		return agents, nil
	}

	var matched []models.SupportAgent
	for _, a := range agents {
		for _, s := range requiredSkills {
			if a.HasSkill(s) {
				matched = append(matched, a)
				break
			}
		}
	}
	return matched, nil
}

// Get retrieves an agent by ID, or nil if absent.
func (d *AgentDirectory) Get(agentID string) (*models.SupportAgent, error) {
	var agent models.SupportAgent
	err := d.db.First(&agent, "id = ?", agentID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tools: get agent: %w", err)
	}
	return &agent, nil
}

// SetStatus updates an agent's availability.
func (d *AgentDirectory) SetStatus(agentID, status string) error {
	res := d.db.Model(&models.SupportAgent{}).
		Where("id = ?", agentID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("tools: set agent status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("tools: set agent status: agent %s not found", agentID)
	}
	return nil
}
