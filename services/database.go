package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/caarlos0/env/v11"
	"github.com/sidequest-rpg/sidequest_api/model"
	"github.com/sidequest-rpg/sidequest_api/progression"
	"github.com/sidequest-rpg/sidequest_api/services/repositories"
	"github.com/sidequest-rpg/sidequest_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"postgres"`
	URL        string `env:"DATABASE_URL"`
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       string `env:"DB_PORT" envDefault:"5432"`
	User       string `env:"DB_USER" envDefault:"postgres"`
	Password   string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name       string `env:"DB_NAME" envDefault:"sidequest"`
	SSLMode    string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath string `env:"DB_DATABASE" envDefault:"sidequest.db"`
	MaxRetries int    `env:"DB_MAX_RETRIES" envDefault:"10"`
}

func (c DatabaseConfig) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case "postgres":
		dsn := c.URL
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
				c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
		}
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(c.SQLitePath), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
}

type DatabaseService struct {
	context.DefaultService
	db *gorm.DB

	cfg DatabaseConfig
}

const DATABASE_SVC = "database_svc"

func (ds DatabaseService) Id() string {
	return DATABASE_SVC
}

func (ds DatabaseService) Db() *gorm.DB {
	return ds.db
}

func (ds *DatabaseService) Configure(ctx *context.Context) error {
	if err := env.Parse(&ds.cfg); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	return ds.DefaultService.Configure(ctx)
}

func (ds *DatabaseService) Start() (err error) {
	ds.db, err = OpenDatabase(ds.cfg)
	if err != nil {
		return err
	}

	if err = Migrate(ds.db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	log.WithField("driver", ds.cfg.Driver).Info("Database connected and migrated successfully")
	return nil
}

func (ds *DatabaseService) Shutdown() {
	if ds.db == nil {
		return
	}
	sqlDB, err := ds.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

// LoadDatabaseConfig reads the DB_* environment block.
func LoadDatabaseConfig() (DatabaseConfig, error) {
	var cfg DatabaseConfig
	err := env.Parse(&cfg)
	return cfg, err
}

// OpenDatabase connects with exponential backoff, capped at 10 seconds between attempts.
func OpenDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	retryDelay := time.Second

	var db *gorm.DB
	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("Attempting to connect to database (attempt %d/%d)...", attempt, maxRetries)

		db, err = gorm.Open(dialector, &gorm.Config{
			Logger: logger.Default.LogMode(logger.Error),
		})
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr == nil {
				if err = sqlDB.Ping(); err == nil {
					if cfg.Driver == "sqlite" {
						sqlDB.SetMaxOpenConns(1)
					}
					return db, nil
				}
			} else {
				err = dbErr
			}
		}

		if attempt == maxRetries {
			break
		}

		log.Printf("Database connection failed: %v. Retrying in %v...", err, retryDelay)
		time.Sleep(retryDelay)

		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.All()...)
}

// HandleError converts storage and rule errors into API errors. Errors that
// already carry a status pass through unchanged.
func HandleError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := shared.GetAppError(err); ok {
		return err
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, progression.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errorType = "INVALID_INPUT"
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound
		errorType = "NOT_FOUND"
	case errors.Is(err, repositories.ErrVersionConflict):
		statusCode = http.StatusConflict
		errorType = "VERSION_CONFLICT"
	case errors.Is(err, repositories.ErrQuestNotActive):
		statusCode = http.StatusConflict
		errorType = "QUEST_NOT_ACTIVE"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		statusCode = http.StatusBadRequest
		errorType = "FOREIGN_KEY_VIOLATION"
	default:
		msg := err.Error()
		switch {
		case strings.Contains(msg, "duplicate key value violates unique constraint"),
			strings.Contains(msg, "UNIQUE constraint failed"):
			statusCode = http.StatusConflict
			errorType = "UNIQUE_CONSTRAINT"
		case strings.Contains(msg, "connection refused"):
			statusCode = http.StatusServiceUnavailable
			errorType = "DATABASE_CONNECTION_ERROR"
		default:
			statusCode = http.StatusInternalServerError
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
		return &shared.AppError{StatusCode: statusCode, Message: http.StatusText(statusCode), Err: err}
	}
	logEntry.Warn("Database operation failed")

	return &shared.AppError{StatusCode: statusCode, Message: errorMessage(errorType, statusCode, err), Err: err}
}

func errorMessage(errorType string, statusCode int, err error) string {
	switch errorType {
	case "INVALID_INPUT":
		return err.Error()
	case "NOT_FOUND":
		return "Not Found"
	case "VERSION_CONFLICT":
		return "Progress was updated concurrently, please retry"
	case "QUEST_NOT_ACTIVE":
		return "Quest is no longer active"
	}
	return http.StatusText(statusCode)
}
