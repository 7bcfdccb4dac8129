package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	dbconfig "swipee/pkg/database"
	"swipee/pkg/interfaces"
	"swipee/pkg/types"
)

// Store is the SQLite-backed RecordStore. Each session record is a single
// row holding the full JSON value, so a write replaces the record all or
// nothing and a reader never observes it mid-write. Writes funnel through
// one goroutine; reads run concurrently against the pool.
type Store struct {
	db           *sql.DB
	config       *dbconfig.Config
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewStore opens the database, applies migrations and starts the writer
// goroutine.
func NewStore(config *dbconfig.Config) (*Store, error) {
	if config == nil {
		config = dbconfig.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store configuration: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DatabasePath+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := applySQLitePragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite pragmas: %w", err)
	}

	if err := dbconfig.NewMigrationManager(db).ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	store := &Store{
		db:           db,
		config:       config,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	store.wg.Add(1)
	go store.writeLoop()

	return store, nil
}

// writeLoop processes all write operations in a single goroutine. SQLite
// allows one writer at a time; funneling writes here avoids busy errors
// under concurrent appends.
func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeChannel:
			err := op.operation(s.db)
			if err != nil {
				log.Printf("Store write failed, retrying in 1 second: %v", err)
				time.Sleep(time.Second)
				err = op.operation(s.db) // retry once
				if err != nil {
					log.Printf("Store write failed after retry: %v", err)
				}
			}
			op.result <- err

		case <-s.shutdown:
			return
		}
	}
}

func (s *Store) executeWrite(ctx context.Context, operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("%w: store is closed", interfaces.ErrStorageFailure)
	}
	s.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
		select {
		case err := <-result:
			return err
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", interfaces.ErrStorageFailure, ctx.Err())
		}
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", interfaces.ErrStorageFailure, ctx.Err())
	case <-s.shutdown:
		return fmt.Errorf("%w: store is shutting down", interfaces.ErrStorageFailure)
	}
}

// Get returns the record for key, or interfaces.ErrSessionNotFound.
func (s *Store) Get(ctx context.Context, key types.SessionKey) (*types.SessionRecord, error) {
	var recordJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM game_sessions WHERE key = ?`, key.String(),
	).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query record: %v", interfaces.ErrStorageFailure, err)
	}

	var record types.SessionRecord
	if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
		return nil, fmt.Errorf("%w: decode record %s: %v", interfaces.ErrStorageFailure, key, err)
	}
	return &record, nil
}

// Put durably replaces the full record bound to key. The upsert runs in a
// transaction: on any failure the prior row is left untouched.
func (s *Store) Put(ctx context.Context, key types.SessionKey, record *types.SessionRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: encode record %s: %v", interfaces.ErrStorageFailure, key, err)
	}

	return s.executeWrite(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: begin put: %v", interfaces.ErrStorageFailure, err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO game_sessions (key, record, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET
				record = excluded.record,
				updated_at = CURRENT_TIMESTAMP
		`, key.String(), string(recordJSON))
		if err != nil {
			return fmt.Errorf("%w: upsert record %s: %v", interfaces.ErrStorageFailure, key, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit put %s: %v", interfaces.ErrStorageFailure, key, err)
		}
		return nil
	})
}

// Delete removes the record. Deleting an absent key succeeds.
func (s *Store) Delete(ctx context.Context, key types.SessionKey) error {
	return s.executeWrite(ctx, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx,
			`DELETE FROM game_sessions WHERE key = ?`, key.String(),
		); err != nil {
			return fmt.Errorf("%w: delete record %s: %v", interfaces.ErrStorageFailure, key, err)
		}
		return nil
	})
}

// HealthCheck verifies connectivity and a basic read.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game_sessions LIMIT 1`,
	).Scan(&count); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}
	return nil
}

// Close drains the writer goroutine and closes the connection.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func applySQLitePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}
