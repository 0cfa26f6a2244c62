package sqlite

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds SQLite connection settings.
type Config struct {
	// Path is the database file, or ":memory:".
	Path string

	// BusyTimeout sets how long a connection waits on a locked database.
	BusyTimeout time.Duration

	ForeignKeys bool

	// JournalMode is one of DELETE, TRUNCATE, PERSIST, MEMORY, WAL, OFF.
	JournalMode string

	// Synchronous is one of OFF, NORMAL, FULL, EXTRA.
	Synchronous string

	// MaxOpenConns bounds the pool. SQLite allows a single writer, so the default is 1,
	// which also serializes every transaction opened through Storage.WithinTx.
	MaxOpenConns int

	ConnMaxLifetime time.Duration

	Retry RetryConfig
}

// DefaultConfig returns the production settings for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:         path,
		BusyTimeout:  5 * time.Second,
		ForeignKeys:  true,
		JournalMode:  "WAL",
		Synchronous:  "NORMAL",
		MaxOpenConns: 1,
		Retry:        DefaultRetryConfig(),
	}
}

// TestConfig returns settings tuned for throwaway databases.
func TestConfig(path string) Config {
	cfg := DefaultConfig(path)
	cfg.JournalMode = "MEMORY"
	cfg.Synchronous = "OFF"
	cfg.Retry = RetryConfig{MaxRetries: 1, InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, BackoffFactor: 2}
	return cfg
}

// Validate checks the settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("sqlite: path cannot be empty")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy timeout cannot be negative")
	}
	switch strings.ToUpper(c.JournalMode) {
	case "", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF":
	default:
		return fmt.Errorf("sqlite: invalid journal mode %q", c.JournalMode)
	}
	switch strings.ToUpper(c.Synchronous) {
	case "", "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return fmt.Errorf("sqlite: invalid synchronous mode %q", c.Synchronous)
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("sqlite: max open connections cannot be negative")
	}
	return nil
}

// DSN renders the driver connection string. Pragmas travel in the DSN so that every
// pooled connection gets them, and transactions begin IMMEDIATE so the write lock is
// taken before the first read of a check-and-set.
func (c Config) DSN() string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if c.ForeignKeys {
		params.Add("_pragma", "foreign_keys(1)")
	}
	if c.JournalMode != "" {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", strings.ToUpper(c.JournalMode)))
	}
	if c.Synchronous != "" {
		params.Add("_pragma", fmt.Sprintf("synchronous(%s)", strings.ToUpper(c.Synchronous)))
	}
	params.Set("_txlock", "immediate")
	return c.Path + "?" + params.Encode()
}

func ensureDatabaseDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlite: create database directory %s: %w", dir, err)
	}
	return nil
}
