package cache

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLStore keeps the records of many job directories in a single SQLite
// file, keyed by (jobdir, frame). It follows the same policy as DirStore:
// a stored record is final and never expires. The driver is pure Go, so
// the store works without cgo.
type SQLStore struct {
	db     *sql.DB
	jobdir string
	log    *zap.Logger
}

// OpenSQL opens (creating when needed) the SQLite file at path and scopes
// the store to the given job directory key.
func OpenSQL(path, jobdir string, log *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening sqlite store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		jobdir TEXT NOT NULL,
		frame  INTEGER NOT NULL,
		data   BLOB NOT NULL,
		PRIMARY KEY (jobdir, frame)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: creating records table: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLStore{db: db, jobdir: jobdir, log: log}, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Has(frame int) bool {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM records WHERE jobdir = ? AND frame = ?`,
		s.jobdir, frame).Scan(&one)
	return err == nil
}

func (s *SQLStore) Load(frame int, v any) error {
	var raw []byte
	err := s.db.QueryRow(`SELECT data FROM records WHERE jobdir = ? AND frame = ?`,
		s.jobdir, frame).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("cache: no record for frame %d of %s", frame, s.jobdir)
	}
	if err != nil {
		return fmt.Errorf("cache: loading record: %w", err)
	}
	if err := decode(raw, v); err != nil {
		return fmt.Errorf("cache: frame %d of %s: %w", frame, s.jobdir, err)
	}
	s.log.Info("loading cached data",
		zap.String("jobdir", s.jobdir), zap.Int("frame", frame))
	return nil
}

func (s *SQLStore) Put(frame int, v any) error {
	raw, err := encode(v)
	if err != nil {
		return fmt.Errorf("cache: encoding record: %w", err)
	}
	// A completed record is authoritative; never overwrite it.
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO records (jobdir, frame, data) VALUES (?, ?, ?)`,
		s.jobdir, frame, raw); err != nil {
		return fmt.Errorf("cache: writing record: %w", err)
	}
	return nil
}
