package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultPath is used by the file store when no path is configured.
const DefaultPath = "evaluations.jsonl"

// FileStore appends records to a JSON lines file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

func NewFileStore(path string, log *zap.Logger) (*FileStore, error) {
	if log == nil {
		log = zap.NewNop()
	}

	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &PersistenceError{Driver: DriverFile, Err: err}
		}
	}

	return &FileStore{path: path, logger: log}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Save(ctx context.Context, record *Record) error {
	if record == nil {
		return &PersistenceError{Driver: DriverFile, Err: errors.New("record is nil")}
	}
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Driver: DriverFile, Err: err}
	}

	line, err := json.Marshal(record)
	if err != nil {
		return &PersistenceError{Driver: DriverFile, Err: err}
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &PersistenceError{Driver: DriverFile, Err: err}
	}
	defer file.Close()

	if _, err := file.Write(line); err != nil {
		return &PersistenceError{Driver: DriverFile, Err: err}
	}

	s.logger.Debug("evaluation stored",
		zap.String("driver", DriverFile),
		zap.String("path", s.path),
		zap.String("id", record.ID.String()),
	)

	return nil
}

func (s *FileStore) Close() error { return nil }
