// Package journal persists terminal changelist outcomes in a local
// bbolt database. Records are kept in insertion order and pruned to a
// bounded retention window on every write, so the file stays small no
// matter how long the server runs.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"edgemcp/internal/domain"
)

var ErrJournalClosed = errors.New("activation journal is closed")

// Store is a bbolt-backed domain.ActivationJournal.
type Store struct {
	mu        sync.RWMutex
	db        *bolt.DB
	retention int
	closed    bool
}

var _ domain.ActivationJournal = (*Store)(nil)

// Open opens or creates the journal database at path. retention bounds
// how many records survive; values below 1 fall back to the default.
func Open(path string, retention int) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("journal path is required")
	}
	if retention < 1 {
		retention = domain.DefaultJournalRetention
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal dir: %w", err)
	}
	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, retention: retention}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// RecordActivation appends one terminal outcome and prunes anything
// past the retention window.
func (s *Store) RecordActivation(rec domain.ActivationRecord) error {
	if rec.Zone == "" {
		return errors.New("journal record zone is required")
	}
	if !rec.Status.Terminal() {
		return fmt.Errorf("journal records terminal outcomes only, got %s", rec.Status)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode journal record: %w", err)
	}
	return s.update(func(tx *bolt.Tx) error {
		records, err := recordsBucket(tx)
		if err != nil {
			return err
		}
		seq, err := records.NextSequence()
		if err != nil {
			return fmt.Errorf("next journal sequence: %w", err)
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		if err := records.Put(key, payload); err != nil {
			return fmt.Errorf("write journal record: %w", err)
		}
		return pruneOldest(records, s.retention)
	})
}

// RecentActivations returns up to limit records, newest first. A
// non-empty zone filters to that zone; limit <= 0 returns everything
// still retained.
func (s *Store) RecentActivations(zone string, limit int) ([]domain.ActivationRecord, error) {
	var out []domain.ActivationRecord
	err := s.view(func(tx *bolt.Tx) error {
		records, err := recordsBucket(tx)
		if err != nil {
			return err
		}
		cursor := records.Cursor()
		for key, value := cursor.Last(); key != nil; key, value = cursor.Prev() {
			var rec domain.ActivationRecord
			if err := json.Unmarshal(value, &rec); err != nil {
				return fmt.Errorf("decode journal record: %w", err)
			}
			if zone != "" && rec.Zone != zone {
				continue
			}
			out = append(out, rec)
			if limit > 0 && len(out) == limit {
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrJournalClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrJournalClosed
	}
	return s.db.Update(fn)
}

func pruneOldest(records *bolt.Bucket, keep int) error {
	count := 0
	if err := records.ForEach(func(_, _ []byte) error {
		count++
		return nil
	}); err != nil {
		return err
	}
	if count <= keep {
		return nil
	}

	excess := count - keep
	stale := make([][]byte, 0, excess)
	cursor := records.Cursor()
	for key, _ := cursor.First(); key != nil && len(stale) < excess; key, _ = cursor.Next() {
		stale = append(stale, append([]byte(nil), key...))
	}
	for _, key := range stale {
		if err := records.Delete(key); err != nil {
			return fmt.Errorf("prune journal record: %w", err)
		}
	}
	return nil
}
