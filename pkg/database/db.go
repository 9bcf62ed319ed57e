package database

import (
	"fmt"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// APIKey represents the api_keys table. The raw key never serializes;
// listings show only the preview.
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	KeyID             uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date              string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount      int    `gorm:"default:0" json:"request_count"`
	TotalTasks        int    `gorm:"default:0" json:"total_tasks"`
	TotalParticipants int    `gorm:"default:0" json:"total_participants"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// PlanRun represents the plan_runs table, one row per planning request
// that reached the solver. The ID is the planner's run id.
type PlanRun struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	KeyName          string    `json:"key_name"`
	Source           string    `gorm:"not null" json:"source"`
	Status           string    `gorm:"not null" json:"status"`
	Objective        int64     `json:"objective"`
	TaskCount        int       `json:"task_count"`
	ParticipantCount int       `json:"participant_count"`
	AssignmentCount  int       `json:"assignment_count"`
	SolveMillis      int64     `json:"solve_millis"`
}

// InitDB opens the configured database and migrates the schema.
// DATABASE_URL selects Postgres; without it a local SQLite file at
// DATA_PATH (default planner.db) is used.
func InitDB() (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	dsn := os.Getenv("DATABASE_URL")
	if dsn != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		dbPath := os.Getenv("DATA_PATH")
		if dbPath == "" {
			dbPath = "planner.db"
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(&APIKey{}, &APIUsage{}, &MasterUser{}, &PlanRun{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}
