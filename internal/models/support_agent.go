package models

import (
	"strings"
	"time"
)

// SupportAgent is a human agent who can take handoffs.
type SupportAgent struct {
	ID        string `gorm:"primaryKey;size:32"`
	Name      string `gorm:"size:128;not null"`
	Status    string `gorm:"size:16;default:available;index"`
	Skills    string `gorm:"size:256"` // comma-separated, e.g. "vip,complaints"
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SkillList splits the comma-separated Skills column.
func (a *SupportAgent) SkillList() []string {
	if a.Skills == "" {
		return nil
	}
	parts := strings.Split(a.Skills, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// HasSkill reports whether the agent lists the given skill.
func (a *SupportAgent) HasSkill(skill string) bool {
	for _, s := range a.SkillList() {
		if s == skill {
			return true
		}
	}
	return false
}
