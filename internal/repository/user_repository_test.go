package repository

import (
	"context"
	"errors"
	"testing"

	"go-session-auth-service/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) UserRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewUserRepository(db)
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u := &domain.User{Username: "alice123", PasswordHash: "digest"}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("expected assigned id after create")
	}

	byName, err := repo.FindByUsername(ctx, "alice123")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if byName.PasswordHash != "digest" {
		t.Fatal("find by username must include the password hash")
	}

	byID, err := repo.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Username != "alice123" {
		t.Fatalf("unexpected username %q", byID.Username)
	}
	if byID.PasswordHash != "" {
		t.Fatal("find by id must not include the password hash")
	}
}

func TestCreateDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Create(ctx, &domain.User{Username: "alice123", PasswordHash: "one"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := repo.Create(ctx, &domain.User{Username: "alice123", PasswordHash: "two"})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestFindMissingUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.FindByUsername(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.FindByID(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUsernameIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Create(ctx, &domain.User{Username: "Alice123", PasswordHash: "one"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.FindByUsername(ctx, "alice123"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected case-sensitive lookup miss, got %v", err)
	}
}
