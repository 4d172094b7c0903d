// internal/store/store.go
package store

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/apexsim/raceline/pkg/core"
)

// Store is the keyed path persistence layer: name -> PathRecord, with
// the whole collection round-tripped as one JSON blob through a Slot on
// every write. At most one record exists per name; saving a name that
// exists overwrites it entirely.
//
// All operations are synchronous and appear atomic to a single-threaded
// caller. The store does not coordinate across processes sharing the
// same slot; concurrent writers resolve last-write-wins.
type Store struct {
	mu      sync.Mutex
	slot    Slot
	records map[string]*core.PathRecord
	logger  *slog.Logger
}

// New creates a store over the given slot and loads whatever the slot
// currently holds. A corrupt or unreadable blob degrades to an empty
// collection rather than failing: path data is convenience state, not
// critical state.
func New(slot Slot, logger *slog.Logger) *Store {
	s := &Store{
		slot:    slot,
		records: make(map[string]*core.PathRecord),
		logger:  logger,
	}

	data, err := slot.Read()
	if err != nil {
		s.logger.Warn("Failed to read path slot, starting empty",
			"slot", slot.Name(), "error", err)
		return s
	}
	if len(data) == 0 {
		return s
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		s.logger.Warn("Path slot blob is corrupt, starting empty",
			"slot", slot.Name(), "error", err)
		s.records = make(map[string]*core.PathRecord)
	}
	return s
}

// Save inserts or fully replaces the record under the given name and
// persists the entire collection. A failed slot write is logged but
// does not fail the call: the in-memory effect remains observable for
// the rest of the session, only durability is lost.
func (s *Store) Save(name string, record *core.PathRecord) {
	if name == "" || record == nil {
		s.logger.Error("Refusing to save path record", "error", core.ErrInvalidName)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[name] = record.Clone()
	s.persistLocked()
}

// Load returns a copy of the record under the given name, or nil when
// absent.
func (s *Store) Load(name string) *core.PathRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		return nil
	}
	return rec.Clone()
}

// List returns all known record names. Order is not guaranteed stable
// across calls.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	return names
}

// Delete removes the record under the given name and persists. No-op
// when the name is absent.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[name]; !ok {
		return
	}
	delete(s.records, name)
	s.persistLocked()
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// persistLocked serializes the full collection to the slot. Callers
// must hold s.mu.
func (s *Store) persistLocked() {
	data, err := json.Marshal(s.records)
	if err != nil {
		s.logger.Error("Failed to serialize path collection", "error", err)
		return
	}
	if err := s.slot.Write(data); err != nil {
		s.logger.Error("Failed to write path slot, in-memory state kept",
			"slot", s.slot.Name(), "error", err)
	}
}
