// Copyright 2025 Certen Protocol
//
// Database client for the trust graph Postgres storage.
// Opens the connection pool with bounded connect retries and keeps the
// relation schema current through a single-row version counter.

package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/certen/trust-graph/pkg/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// versionTable holds exactly one row with the applied schema version.
// Migration files are named NNN_description.sql and applied in numeric
// order above the current version.
const versionTable = "trust_graph_schema_version"

// Connect retry bounds. The service often starts together with the
// database, so the first pings are allowed to fail while it comes up.
const (
	connectAttempts = 5
	connectBaseWait = 500 * time.Millisecond
	connectMaxWait  = 8 * time.Second
)

// Client owns the connection pool of the trust graph store
type Client struct {
	db     *sql.DB
	logger *log.Logger
}

// ClientOption is a functional option for configuring the client
type ClientOption func(*Client)

// WithLogger sets a custom logger for the client
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Open connects to the trust graph database, sizes the pool and verifies
// the connection, retrying with exponential backoff until the database
// answers or the attempts are exhausted.
func Open(ctx context.Context, cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	client := &Client{
		logger: log.New(log.Writer(), "[Database] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(client)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open trust graph database: %w", err)
	}

	// The relation table is small and queries are point reads; a modest
	// pool is enough, and the idle share follows the configured maximum
	// when no explicit minimum is given.
	maxConns := cfg.DatabaseMaxConns
	if maxConns <= 0 {
		maxConns = 25
	}
	idleConns := cfg.DatabaseMinConns
	if idleConns <= 0 || idleConns > maxConns {
		idleConns = maxConns/5 + 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(idleConns)
	db.SetConnMaxIdleTime(time.Duration(cfg.DatabaseMaxIdleTime) * time.Second)
	db.SetConnMaxLifetime(time.Duration(cfg.DatabaseMaxLifetime) * time.Second)

	client.db = db

	if err := client.connectWithRetry(ctx); err != nil {
		db.Close()
		return nil, err
	}

	client.logger.Printf("Trust graph store ready (pool %d idle / %d max)", idleConns, maxConns)
	return client, nil
}

// connectWithRetry pings the database until it answers, doubling the wait
// between attempts up to connectMaxWait.
func (c *Client) connectWithRetry(ctx context.Context) error {
	wait := connectBaseWait

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = c.db.PingContext(pingCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}

		c.logger.Printf("Store not reachable (attempt %d/%d), retrying in %s: %v",
			attempt, connectAttempts, wait, lastErr)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}

		wait *= 2
		if wait > connectMaxWait {
			wait = connectMaxWait
		}
	}

	return fmt.Errorf("trust graph store unreachable after %d attempts: %w", connectAttempts, lastErr)
}

// DB returns the underlying *sql.DB for the storage layer
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close releases the connection pool
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	c.logger.Println("Closing trust graph store")
	return c.db.Close()
}

// Ping verifies the database connection is alive
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// ============================================================================
// SCHEMA VERSIONING
// ============================================================================

// migrationStep is one numbered schema upgrade
type migrationStep struct {
	Number int
	Name   string
	SQL    string
}

// Migrate brings the relation schema up to date. The applied version
// lives in a single-row counter table; every embedded step above it runs
// inside its own transaction that also advances the counter, so a failed
// upgrade leaves the schema at the last completed step.
func (c *Client) Migrate(ctx context.Context) error {
	if err := c.ensureVersionTable(ctx); err != nil {
		return err
	}

	current, err := c.schemaVersion(ctx)
	if err != nil {
		return err
	}

	steps, err := loadMigrations()
	if err != nil {
		return err
	}

	applied := 0
	for _, step := range steps {
		if step.Number <= current {
			continue
		}
		if err := c.applyStep(ctx, step); err != nil {
			return fmt.Errorf("apply schema step %03d (%s): %w", step.Number, step.Name, err)
		}
		c.logger.Printf("Schema upgraded to version %03d (%s)", step.Number, step.Name)
		applied++
	}

	if applied == 0 {
		c.logger.Printf("Schema is current at version %03d", current)
	}
	return nil
}

func (c *Client) ensureVersionTable(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS "+versionTable+" (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}
	// seed the single row on first start
	if _, err := c.db.ExecContext(ctx,
		"INSERT INTO "+versionTable+" (version) SELECT 0 WHERE NOT EXISTS (SELECT 1 FROM "+versionTable+")"); err != nil {
		return fmt.Errorf("seed version table: %w", err)
	}
	return nil
}

func (c *Client) schemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := c.db.QueryRowContext(ctx,
		"SELECT version FROM "+versionTable).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (c *Client) applyStep(ctx context.Context, step migrationStep) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE "+versionTable+" SET version = $1", step.Number); err != nil {
		return err
	}
	return tx.Commit()
}

// loadMigrations reads the embedded steps and orders them by number.
// A file that does not follow NNN_description.sql is a packaging mistake
// and fails loudly.
func loadMigrations() ([]migrationStep, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	steps := make([]migrationStep, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		sep := strings.IndexByte(name, '_')
		if sep <= 0 {
			return nil, fmt.Errorf("migration %q is not named NNN_description.sql", name)
		}
		number, err := strconv.Atoi(name[:sep])
		if err != nil || number <= 0 {
			return nil, fmt.Errorf("migration %q has no numeric prefix", name)
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", name, err)
		}

		steps = append(steps, migrationStep{
			Number: number,
			Name:   strings.TrimSuffix(name[sep+1:], ".sql"),
			SQL:    string(content),
		})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Number < steps[j].Number })

	for i, step := range steps {
		if i > 0 && steps[i-1].Number == step.Number {
			return nil, fmt.Errorf("duplicate migration number %03d", step.Number)
		}
	}

	return steps, nil
}
