package app

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db handle: %v", err)
	}
	// A single connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	s := &Store{DB: db, MaxCommentDepth: defaultMaxCommentDepth}
	if err := s.migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var testUserSeq int

func seedUser(t *testing.T, s *Store, role string) *User {
	t.Helper()
	testUserSeq++
	user, err := s.Register(
		fmt.Sprintf("user%d", testUserSeq),
		fmt.Sprintf("user%d@viego.vn", testUserSeq),
		"secret-password",
	)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if role != RoleUser {
		if err := s.DB.Model(&User{}).Where("id = ?", user.ID).Update("role", role).Error; err != nil {
			t.Fatalf("set role: %v", err)
		}
		user.Role = role
	}
	return user
}

var testPostSeq int

func seedPublishedPost(t *testing.T, s *Store, authorID int64) *Post {
	t.Helper()
	testPostSeq++
	post, err := s.CreatePost(authorID, PostInput{
		Title:   fmt.Sprintf("Hà Nội street food walk %d", testPostSeq),
		Content: "Phở, bún chả and egg coffee around the Old Quarter.",
		Status:  PostStatusPublished,
	})
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return post
}

func TestStoreMigrate(t *testing.T) {
	s := newTestStore(t)
	for _, table := range []string{"users", "posts", "comments", "tours", "bookings", "reports", "nfts", "activity_logs"} {
		if !s.DB.Migrator().HasTable(table) {
			t.Fatalf("expected table %q after migrate", table)
		}
	}
}
