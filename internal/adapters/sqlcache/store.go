// Package sqlcache implements ports.DedupStore on SQLite (modernc.org/sqlite,
// no cgo). The store is a single key-only table with a primary key on the
// fingerprint, opened in write-optimized mode: journaling off, synchronous
// off, inserts batched into transactions of a few thousand. Presence checks
// run inside the open transaction so a fingerprint inserted moments ago is
// already visible.
package sqlcache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/corey/mixdown/internal/ports"
	_ "modernc.org/sqlite"
)

// batchSize is how many inserts ride in one transaction before a commit.
const batchSize = 5000

const schema = `
CREATE TABLE IF NOT EXISTS fingerprints (
	fp BLOB PRIMARY KEY
) WITHOUT ROWID;
`

// Store implements ports.DedupStore backed by SQLite.
type Store struct {
	db      *sql.DB
	tx      *sql.Tx
	insert  *sql.Stmt
	lookup  *sql.Stmt
	pending int
}

// Open opens (or creates) the store at path and prepares the write batch.
// Creates the parent directory if it does not exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	// One connection keeps every statement on the same transaction.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = OFF",
		"PRAGMA synchronous = OFF",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.begin(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) begin() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	insert, err := tx.Prepare("INSERT OR IGNORE INTO fingerprints(fp) VALUES(?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	lookup, err := tx.Prepare("SELECT 1 FROM fingerprints WHERE fp = ?")
	if err != nil {
		insert.Close()
		tx.Rollback()
		return fmt.Errorf("prepare lookup: %w", err)
	}
	s.tx, s.insert, s.lookup = tx, insert, lookup
	s.pending = 0
	return nil
}

func (s *Store) commit() error {
	s.insert.Close()
	s.lookup.Close()
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// AddIfAbsent inserts fp, reporting true when it was not already present.
func (s *Store) AddIfAbsent(fp ports.Fingerprint) (bool, error) {
	res, err := s.insert.Exec(fp[:])
	if err != nil {
		return false, fmt.Errorf("insert fingerprint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert fingerprint: %w", err)
	}

	s.pending++
	if s.pending >= batchSize {
		if err := s.commit(); err != nil {
			return false, err
		}
		if err := s.begin(); err != nil {
			return false, err
		}
	}
	return n > 0, nil
}

// Contains reports presence for each fingerprint, positionally.
func (s *Store) Contains(fps []ports.Fingerprint) ([]bool, error) {
	out := make([]bool, len(fps))
	for i, fp := range fps {
		var one int
		err := s.lookup.QueryRow(fp[:]).Scan(&one)
		switch err {
		case nil:
			out[i] = true
		case sql.ErrNoRows:
			out[i] = false
		default:
			return nil, fmt.Errorf("lookup fingerprint: %w", err)
		}
	}
	return out, nil
}

// Len returns the number of stored fingerprints, including the open batch.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.tx.QueryRow("SELECT COUNT(*) FROM fingerprints").Scan(&n); err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return n, nil
}

// Close commits the open batch and closes the database.
func (s *Store) Close() error {
	commitErr := s.commit()
	closeErr := s.db.Close()
	if commitErr != nil {
		return commitErr
	}
	return closeErr
}
