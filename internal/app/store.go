package app

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store wraps the gorm connection. All domain services are methods on it,
// grouped by file (engagement.go, comments.go, posts.go, ...).
type Store struct {
	DB *gorm.DB

	// Maximum nesting level a reply may reach. Levels 0..MaxCommentDepth
	// exist; replying to a comment already at the limit fails.
	MaxCommentDepth int
}

func NewStore(cfg *Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	case "", "sqlite":
		path := cfg.DatabaseDSN
		if path == "" {
			path = dbFilePath
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)", path)
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: unknown db driver %q", ErrInvalidArgument, cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(2 * time.Hour)

	store := &Store{DB: db, MaxCommentDepth: cfg.MaxCommentDepth}
	if store.MaxCommentDepth <= 0 {
		store.MaxCommentDepth = defaultMaxCommentDepth
	}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	log.Println("🔌 Database connected.")
	return store, nil
}

const defaultMaxCommentDepth = 3

func (s *Store) migrate() error {
	if err := s.DB.AutoMigrate(
		&User{}, &Post{}, &Comment{}, &Tour{}, &Booking{},
		&Report{}, &NFT{}, &ActivityLog{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Vacuum() error {
	return s.DB.Exec("VACUUM").Error
}

// forUpdate applies a SELECT ... FOR UPDATE row lock on engines that
// support it. SQLite serializes writers at the database level and rejects
// the clause, so it is postgres-only.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// asStoreErr maps gorm's record-not-found to the service taxonomy.
func asStoreErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func containsID(list []int64, id int64) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(list []int64, id int64) []int64 {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// normalizePage clamps pagination arguments to sane bounds.
func normalizePage(page, perPage int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return perPage, (page - 1) * perPage
}

// counterDecrExpr floors a counter at zero; portable across sqlite and postgres.
func counterDecrExpr(column string) string {
	return fmt.Sprintf("CASE WHEN %s > 0 THEN %s - 1 ELSE 0 END", column, column)
}
