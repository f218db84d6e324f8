package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore keeps records in a SQL database.
type GormStore struct {
	db     *gorm.DB
	driver string
	logger *zap.Logger
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is required")
	}

	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres, "postgresql":
		return postgres.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// OpenGorm connects to the database and migrates the evaluations table.
func OpenGorm(cfg Config, log *zap.Logger) (*GormStore, error) {
	d, err := dialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return NewGormStore(db, cfg.Driver, log)
}

// NewGormStore wraps an open connection and migrates the evaluations table.
func NewGormStore(db *gorm.DB, driver string, log *zap.Logger) (*GormStore, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", Record{}.TableName(), err)
	}

	return &GormStore{db: db, driver: driver, logger: log}, nil
}

func (s *GormStore) Save(ctx context.Context, record *Record) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return &PersistenceError{Driver: s.driver, Err: err}
	}

	s.logger.Debug("evaluation stored",
		zap.String("driver", s.driver),
		zap.String("id", record.ID.String()),
	)

	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
