package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"go-catfood-scanner/internal/logger"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Settings selects the database and matching behaviour of a Store
type Settings struct {
	Driver        string
	DSN           string
	FuzzyMatching bool
}

// Store is the SQL-backed catalogue, association and report repository.
// The same queries run on SQLite and MySQL.
type Store struct {
	db      *sql.DB
	driver  string
	matcher Matcher
	now     func() time.Time
}

// Open connects to the configured database and verifies the connection
func Open(ctx context.Context, settings Settings) (*Store, error) {
	dsn := settings.DSN
	switch settings.Driver {
	case DriverSQLite:
	case DriverMySQL:
		if dsn == "" {
			return nil, fmt.Errorf("mysql DSN is required when driver is mysql")
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, settings.Driver)
	}

	db, err := sql.Open(settings.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", settings.Driver, err)
	}

	if settings.Driver == DriverSQLite {
		// Every pooled connection to :memory: would see its own empty database.
		if strings.Contains(dsn, ":memory:") {
			db.SetMaxOpenConns(1)
		}
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s: %w", settings.Driver, err)
	}

	store := New(db, settings.Driver)
	store.matcher.Fuzzy = settings.FuzzyMatching
	return store, nil
}

// New wraps an open database handle
func New(db *sql.DB, driver string) *Store {
	return &Store{
		db:      db,
		driver:  driver,
		matcher: DefaultMatcher(),
		now:     time.Now,
	}
}

// Driver returns the database driver name
func (s *Store) Driver() string { return s.driver }

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates any missing tables. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	data, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}

	applied := 0
	for _, stmt := range splitStatements(string(data)) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema statement: %w\nSQL: %s", err, stmt)
		}
		applied++
	}

	logger.WithFields(logrus.Fields{
		"driver":     s.driver,
		"statements": applied,
	}).Info("Database schema is up to date")
	return nil
}

// splitStatements drops comment lines and splits the script on semicolons
func splitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	var stmts []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// withTx runs fn inside a transaction, rolling back when it fails
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.WithError(rbErr).Warn("Transaction rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
