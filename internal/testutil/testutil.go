// Package testutil provides shared test helpers for store-backed tests.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
	"github.com/anonto42/nano-midea/timeline/pkg/config"
	"gorm.io/gorm"
)

// TestDB creates a migrated temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "timeline-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	db, err := config.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if err := repositories.Migrate(db); err != nil {
		t.Fatal(err)
	}
	return db
}

// CreateUser inserts a user who wants every notification and no e-mail
func CreateUser(t *testing.T, db *gorm.DB, nickname string) *models.User {
	t.Helper()
	user := &models.User{
		Nickname:     nickname,
		DisplayName:  nickname,
		Email:        nickname + "@example.com",
		NotifyEvents: models.AllEvents,
	}
	if err := repositories.NewPostgresUserRepository(db).CreateUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	return user
}
