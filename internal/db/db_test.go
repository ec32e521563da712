package db

import (
	"testing"

	"github.com/zulandar/helpline/internal/config"
	"github.com/zulandar/helpline/internal/models"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{User: "root", Host: "127.0.0.1", Port: 3306, Name: "helpline"})
	want := "root@tcp(127.0.0.1:3306)/helpline?parseTime=true"
	if dsn != want {
		t.Errorf("DSN = %q, want %q", dsn, want)
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "postgres"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestAutoMigrateAndSeed(t *testing.T) {
	db, err := Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if err := SeedAgents(db, DefaultAgentSeeds); err != nil {
		t.Fatalf("SeedAgents: %v", err)
	}

	var agents []models.SupportAgent
	if err := db.Find(&agents).Error; err != nil {
		t.Fatalf("find agents: %v", err)
	}
	if len(agents) != 3 {
		t.Fatalf("agent count = %d, want 3", len(agents))
	}

	// Seeding twice must not duplicate.
	if err := SeedAgents(db, DefaultAgentSeeds); err != nil {
		t.Fatalf("SeedAgents (again): %v", err)
	}
	var count int64
	db.Model(&models.SupportAgent{}).Count(&count)
	if count != 3 {
		t.Errorf("agent count after reseed = %d, want 3", count)
	}
}

func TestSupportAgent_SkillList(t *testing.T) {
	a := models.SupportAgent{Skills: "vip, complaints"}
	skills := a.SkillList()
	if len(skills) != 2 || skills[0] != "vip" || skills[1] != "complaints" {
		t.Errorf("SkillList = %v", skills)
	}
	if !a.HasSkill("vip") {
		t.Error("HasSkill(vip) = false")
	}
	if a.HasSkill("returns") {
		t.Error("HasSkill(returns) = true")
	}

	empty := models.SupportAgent{}
	if got := empty.SkillList(); got != nil {
		t.Errorf("empty SkillList = %v, want nil", got)
	}
}
