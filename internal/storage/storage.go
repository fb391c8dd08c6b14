// Package storage is the sqlite-backed persistence layer: an async
// single-writer queue ahead of the database, matching spec §5's
// "durable write queued, not awaited" command-processing contract. A
// crash between an in-memory mutation and its durable write means that
// write never happened, which is the behaviour spec §5 explicitly
// allows.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// maxConsecutiveWriteFailures is how many transactional writes in a
// row may fail before the writer marks itself degraded. A single
// transient failure (a momentarily locked file, a slow disk) should
// not take the whole async path down; a run of failures should.
const maxConsecutiveWriteFailures = 3

// drainDeadline bounds how long Close waits for queued writes to
// flush before giving up on them.
const drainDeadline = 2 * time.Second

// Store handles SQLite database operations with async writes for games and sync writes for auth
type Store struct {
	db           *sql.DB
	path         string
	writeChan    chan func(*sql.Tx) error
	healthStatus atomic.Bool
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewStore creates a new storage instance with async writer
func NewStore(dataSourceName string, devMode bool) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode in development for better concurrency
	if devMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithCancel(context.Background())

	s := &Store{
		db:        db,
		path:      dataSourceName,
		writeChan: make(chan func(*sql.Tx) error, 1000), // Buffered for async writes
		ctx:       ctx,
		cancel:    cancel,
	}

	s.healthStatus.Store(true)

	s.wg.Add(1)
	go s.run()

	return s, nil
}

// IsHealthy returns true if the storage is operational
func (s *Store) IsHealthy() bool {
	return s.healthStatus.Load()
}

// run is the single async writer goroutine: it applies every queued
// write as its own transaction, tracks consecutive failures, and
// self-heals — a write that succeeds after a run of failures clears
// the degraded flag. SaveGame, SetElo and InsertNotification drop their
// writes without queueing them while the flag is set, so only writes
// already in the channel when it tripped can clear it. On shutdown it drains
// whatever is left in the channel up to drainDeadline, then exits.
func (s *Store) run() {
	defer s.wg.Done()

	var consecutiveFailures int
	apply := func(fn func(*sql.Tx) error) {
		tx, err := s.db.Begin()
		if err == nil {
			err = fn(tx)
		}
		if err != nil {
			tx.Rollback()
			consecutiveFailures++
			log.Printf("storage write failed (%d/%d consecutive): %v", consecutiveFailures, maxConsecutiveWriteFailures, err)
			if consecutiveFailures >= maxConsecutiveWriteFailures {
				s.healthStatus.Store(false)
			}
			return
		}
		if err := tx.Commit(); err != nil {
			consecutiveFailures++
			log.Printf("storage commit failed (%d/%d consecutive): %v", consecutiveFailures, maxConsecutiveWriteFailures, err)
			if consecutiveFailures >= maxConsecutiveWriteFailures {
				s.healthStatus.Store(false)
			}
			return
		}
		if consecutiveFailures > 0 {
			consecutiveFailures = 0
			s.healthStatus.Store(true)
		}
	}

	for {
		select {
		case fn := <-s.writeChan:
			apply(fn)
		case <-s.ctx.Done():
			deadline := time.After(drainDeadline)
			for {
				select {
				case fn := <-s.writeChan:
					apply(fn)
				case <-deadline:
					return
				default:
					return
				}
			}
		}
	}
}

// Close gracefully closes the database connection
func (s *Store) Close() error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainDeadline):
		log.Printf("warning: storage writer shutdown timed out, some writes may be lost")
	}

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitDB creates the database schema
func (s *Store) InitDB() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return tx.Commit()
}

// DeleteDB removes the database file
func (s *Store) DeleteDB() error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete database file: %w", err)
	}

	return nil
}
