package checkpoint

import (
	"testing"

	"github.com/zulandar/helpline/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Checkpoint{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := NewGormStore(db)
	if err != nil {
		t.Fatalf("NewGormStore: %v", err)
	}
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)

	if err := store.Save("conv-1", `{"phase":"approval"}`); err != nil {
		t.Fatalf("Save: %v", err)
	}
	state, ok, err := store.Load("conv-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok || state != `{"phase":"approval"}` {
		t.Errorf("Load = %q, %v", state, ok)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := openTestStore(t)
	store.Save("conv-1", "v1")
	if err := store.Save("conv-1", "v2"); err != nil {
		t.Fatalf("Save (again): %v", err)
	}
	state, _, _ := store.Load("conv-1")
	if state != "v2" {
		t.Errorf("state = %q, want v2", state)
	}
}

func TestStore_LoadAbsent(t *testing.T) {
	store := openTestStore(t)
	state, ok, err := store.Load("conv-missing")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok || state != "" {
		t.Errorf("absent thread: state=%q ok=%v, want empty and false", state, ok)
	}
}

func TestStore_Delete(t *testing.T) {
	store := openTestStore(t)
	store.Save("conv-1", "x")
	if err := store.Delete("conv-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Load("conv-1"); ok {
		t.Error("checkpoint should be gone after Delete")
	}

	// Absent deletes are no-ops.
	if err := store.Delete("conv-1"); err != nil {
		t.Errorf("Delete (absent): %v", err)
	}
}

func TestStore_Validation(t *testing.T) {
	if _, err := NewGormStore(nil); err == nil {
		t.Error("expected error for nil db")
	}
	store := openTestStore(t)
	if err := store.Save("", "x"); err == nil {
		t.Error("expected error for empty thread id")
	}
}
