// Package storage persists evaluation verdicts.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/spigell/resumatch/internal/evaluation"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Store saves evaluation records. Implementations must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, record *Record) error
	Close() error
}

// Record is one persisted evaluation.
type Record struct {
	ID             uuid.UUID      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name           string         `gorm:"type:varchar(255);index:idx_resume_evaluations_name" json:"name"`
	Email          string         `gorm:"type:varchar(255);index:idx_resume_evaluations_email" json:"email"`
	OverallMatch   float64        `gorm:"index:idx_resume_evaluations_overall_match" json:"overall_match"`
	JobDescription string         `gorm:"type:text" json:"job_description"`
	DocumentName   string         `gorm:"type:varchar(1024)" json:"pdf_filename"`
	Evaluation     datatypes.JSON `gorm:"type:json" json:"full_evaluation"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (Record) TableName() string { return "resume_evaluations" }

// NewRecord builds a record for v. Only the base name of documentPath is kept.
func NewRecord(v *evaluation.Verdict, jobDescription, documentPath string) (*Record, error) {
	encoded, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode verdict: %w", err)
	}

	return &Record{
		ID:             uuid.New(),
		Name:           v.Identification.Name,
		Email:          v.Identification.Email,
		OverallMatch:   v.OverallMatch,
		JobDescription: jobDescription,
		DocumentName:   filepath.Base(documentPath),
		Evaluation:     datatypes.JSON(encoded),
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// PersistenceError reports a failed write to a store.
type PersistenceError struct {
	Driver string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist evaluation (%s): %v", e.Driver, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Config selects and configures a store.
type Config struct {
	Driver       string
	DSN          string
	Path         string
	MaxOpenConns int
}

// Open returns the store selected by cfg.Driver.
func Open(cfg Config, log *zap.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverFile:
		return NewFileStore(cfg.Path, log)
	case DriverPostgres, "postgresql", DriverMySQL:
		return OpenGorm(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
