// Package localstore is the single-device fallback used when the hosted
// backend is not configured: documents, device flags and password accounts
// all live in one SQLite file.
package localstore

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var tracer = otel.Tracer("localstore")

// documentRecord is one (owner, collection) JSON document.
type documentRecord struct {
	ID        string `gorm:"primaryKey"`
	Body      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (documentRecord) TableName() string { return "documents" }

// flagRecord is a device-local value that is never synchronized.
type flagRecord struct {
	Name      string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (flagRecord) TableName() string { return "flags" }

// accountRecord is a password account of the local auth provider.
type accountRecord struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Metadata     string `gorm:"not null;default:'{}'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (accountRecord) TableName() string { return "local_accounts" }

// tokenRecord maps an issued access token to its account.
type tokenRecord struct {
	Token     string `gorm:"primaryKey"`
	AccountID string `gorm:"index;not null"`
	CreatedAt time.Time
}

func (tokenRecord) TableName() string { return "local_tokens" }

// OpenSQLite opens (creating when needed) the local database and migrates
// its tables.
func OpenSQLite(dbPath string) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000", dbPath)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := database.AutoMigrate(&documentRecord{}, &flagRecord{}, &accountRecord{}, &tokenRecord{}); err != nil {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	return database, nil
}

// Ping checks that the database file is reachable. Used by /healthz.
func Ping(ctx context.Context, database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
