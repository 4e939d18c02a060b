// Package cache persists per-frame calculation records so that a repeated
// run of the same job directory never recomputes a finished frame.
// Entries never expire; rerunning a calculation requires removing them.
// Stores are single-writer: the pipeline owns a job directory exclusively
// while it runs.
package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// Store is a per-frame record store for one job directory.
type Store interface {
	// Has reports whether a completed record exists for the frame.
	Has(frame int) bool
	// Load decodes the record for the frame into v.
	Load(frame int, v any) error
	// Put stores the record for the frame. Once Put returns, Has
	// reports true for that frame forever.
	Put(frame int, v any) error
}

const recordFile = "data.gob.zst"

// DirStore keeps one subdirectory per frame ("00000", "00001", ...) under
// the job directory. The presence of the record file is the completion
// sentinel; a crash before the file exists leaves the frame incomplete
// and it is recomputed on the next run.
type DirStore struct {
	dir string
	log *zap.Logger
}

// NewDirStore returns a store rooted at the job directory dir, creating
// it when needed.
func NewDirStore(dir string, log *zap.Logger) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating job directory: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DirStore{dir: dir, log: log}, nil
}

// FrameDir returns the directory that holds the records of the frame,
// creating it when needed.
func (s *DirStore) FrameDir(frame int) (string, error) {
	d := filepath.Join(s.dir, fmt.Sprintf("%05d", frame))
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", fmt.Errorf("cache: creating frame directory: %w", err)
	}
	return d, nil
}

func (s *DirStore) path(frame int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%05d", frame), recordFile)
}

func (s *DirStore) Has(frame int) bool {
	_, err := os.Stat(s.path(frame))
	return err == nil
}

func (s *DirStore) Load(frame int, v any) error {
	path := s.path(frame)
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cache: reading record: %w", err)
	}
	if err := decode(raw, v); err != nil {
		return fmt.Errorf("cache: %s: %w", path, err)
	}
	s.log.Info("loading cached data", zap.String("file", path))
	return nil
}

func (s *DirStore) Put(frame int, v any) error {
	if _, err := s.FrameDir(frame); err != nil {
		return err
	}
	raw, err := encode(v)
	if err != nil {
		return fmt.Errorf("cache: encoding record: %w", err)
	}
	if err := os.WriteFile(s.path(frame), raw, 0o644); err != nil {
		return fmt.Errorf("cache: writing record: %w", err)
	}
	return nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if err := gob.NewEncoder(zw).Encode(v); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(raw []byte, v any) error {
	zr, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer zr.Close()
	return gob.NewDecoder(zr).Decode(v)
}
