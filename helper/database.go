package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the Postgres connection settings.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the connection settings from
// GRAPHRAG_DB_* environment variables.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	config := &DatabaseConfiguration{
		Host:     os.Getenv("GRAPHRAG_DB_HOST"),
		Port:     os.Getenv("GRAPHRAG_DB_PORT"),
		Database: os.Getenv("GRAPHRAG_DB_DATABASE"),
		Username: os.Getenv("GRAPHRAG_DB_USERNAME"),
		Password: os.Getenv("GRAPHRAG_DB_PASSWORD"),
		Schema:   os.Getenv("GRAPHRAG_DB_SCHEMA"),
		SSLMode:  os.Getenv("GRAPHRAG_DB_SSLMODE"),
	}

	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	var missing []string
	if config.Host == "" {
		missing = append(missing, "GRAPHRAG_DB_HOST")
	}
	if config.Port == "" {
		missing = append(missing, "GRAPHRAG_DB_PORT")
	}
	if config.Database == "" {
		missing = append(missing, "GRAPHRAG_DB_DATABASE")
	}
	if config.Username == "" {
		missing = append(missing, "GRAPHRAG_DB_USERNAME")
	}
	if len(missing) > 0 {
		return nil, NewError("database configuration", fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", ")))
	}

	return config, nil
}

// ConnectionString returns the lib/pq keyword/value connection string.
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode, c.Schema,
	)
}

// Database wraps the connection pool with a name and a logger.
type Database struct {
	Name     string
	Logger   *slog.Logger
	Instance *sql.DB
}

// NewDatabase opens and pings a connection pool.
// It panics if the database is not reachable, a store that is configured
// but down is a startup failure.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := connect(config)
	if err != nil {
		log.Panicf("error connecting to database %s: %v", name, err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Logger:   logger,
		Instance: db,
	}
}

// NewTestDatabase connects with a discarding logger.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	return NewDatabase("test", config, slog.New(slog.NewTextHandler(discard{}, nil)))
}

// Close closes the connection pool.
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}

func connect(config *DatabaseConfiguration) (*sql.DB, error) {
	if config == nil {
		return nil, fmt.Errorf("database configuration is nil")
	}

	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, NewError("open", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	var pingErr error
	for attempt := 0; attempt < 5; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr = db.PingContext(ctx)
		cancel()
		if pingErr == nil {
			return db, nil
		}
		time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
	}

	db.Close()
	return nil, NewError("ping", pingErr)
}

// SetTestDatabaseConfigEnvs points the GRAPHRAG_DB_* variables at a test container.
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Setenv("GRAPHRAG_DB_HOST", "localhost")
	t.Setenv("GRAPHRAG_DB_PORT", port)
	t.Setenv("GRAPHRAG_DB_DATABASE", "database")
	t.Setenv("GRAPHRAG_DB_USERNAME", "user")
	t.Setenv("GRAPHRAG_DB_PASSWORD", "password")
	t.Setenv("GRAPHRAG_DB_SCHEMA", "public")
	t.Setenv("GRAPHRAG_DB_SSLMODE", "disable")
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
