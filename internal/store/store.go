// Package store persists the knowledge base, rep directory, and append-only
// delivery/feedback logs as JSON files. Each logical record is one file,
// read fully before a decision and rewritten fully on mutation, serialized
// by a per-file lock.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/salesrelay/salesrelay/internal/feedback"
	"github.com/salesrelay/salesrelay/internal/identity"
	"github.com/salesrelay/salesrelay/internal/knowledge"
)

// File names under the data directory.
const (
	knowledgeFile = "knowledge.json"
	directoryFile = "rep_directory.json"
	deliveryFile  = "deliveries.json"
	feedbackFile  = "feedback.json"
)

// Store is the durable flat-file key-value store. Sync configuration is
// threaded in at construction, not read from global state.
type Store struct {
	dir  string
	sync *SyncPusher

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a store rooted at dir. A nil pusher disables remote sync.
func New(dir string, pusher *SyncPusher) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, sync: pusher, locks: map[string]*sync.Mutex{}}, nil
}

func (s *Store) fileLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[name] = lock
	}
	return lock
}

// read unmarshals a record file into v, leaving v at its default-empty
// value when the file does not exist yet.
func (s *Store) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Knowledge loads the knowledge base, enforcing the configured invariant on
// the way out: configured is purely a function of the case-study count.
func (s *Store) Knowledge() (knowledge.Base, error) {
	lock := s.fileLock(knowledgeFile)
	lock.Lock()
	defer lock.Unlock()

	var b knowledge.Base
	if err := s.read(knowledgeFile, &b); err != nil {
		return b, err
	}
	b.Meta.Configured = len(b.CaseStudies) > 0
	return b, nil
}

// SaveKnowledge refreshes the meta block, rewrites the file, and pushes the
// record to the remote sync endpoint when sync is configured.
func (s *Store) SaveKnowledge(b knowledge.Base) error {
	b.Refresh(time.Now())

	lock := s.fileLock(knowledgeFile)
	lock.Lock()
	err := s.write(knowledgeFile, &b)
	lock.Unlock()
	if err != nil {
		return err
	}
	s.sync.Push(syncPathKnowledge, &b)
	return nil
}

// Directory loads the rep directory.
func (s *Store) Directory() (identity.Directory, error) {
	lock := s.fileLock(directoryFile)
	lock.Lock()
	defer lock.Unlock()

	var d identity.Directory
	err := s.read(directoryFile, &d)
	return d, err
}

// SaveDirectory rewrites the rep directory and pushes it to the remote sync
// endpoint when sync is configured.
func (s *Store) SaveDirectory(d identity.Directory) error {
	lock := s.fileLock(directoryFile)
	lock.Lock()
	err := s.write(directoryFile, &d)
	lock.Unlock()
	if err != nil {
		return err
	}
	s.sync.Push(syncPathDirectory, &d)
	return nil
}

// Deliveries loads the delivery log.
func (s *Store) Deliveries() (feedback.DeliveryLog, error) {
	lock := s.fileLock(deliveryFile)
	lock.Lock()
	defer lock.Unlock()

	var log feedback.DeliveryLog
	err := s.read(deliveryFile, &log)
	return log, err
}

// AppendDelivery appends one delivery record, holding the file lock across
// the read-modify-write so concurrent appends cannot drop entries.
func (s *Store) AppendDelivery(d feedback.Delivery) error {
	lock := s.fileLock(deliveryFile)
	lock.Lock()
	defer lock.Unlock()

	var log feedback.DeliveryLog
	if err := s.read(deliveryFile, &log); err != nil {
		return err
	}
	log.Entries = append(log.Entries, d)
	return s.write(deliveryFile, &log)
}

// Feedback loads the feedback log.
func (s *Store) Feedback() (feedback.Log, error) {
	lock := s.fileLock(feedbackFile)
	lock.Lock()
	defer lock.Unlock()

	var log feedback.Log
	err := s.read(feedbackFile, &log)
	return log, err
}

// AppendFeedback appends one feedback record under the file lock.
func (s *Store) AppendFeedback(e feedback.Entry) error {
	lock := s.fileLock(feedbackFile)
	lock.Lock()
	defer lock.Unlock()

	var log feedback.Log
	if err := s.read(feedbackFile, &log); err != nil {
		return err
	}
	log.Entries = append(log.Entries, e)
	return s.write(feedbackFile, &log)
}
