package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"posichain/storage"
)

// rawValue is an rlp record read from the database and not yet decoded.
type rawValue []byte

// Manager is the journaled ledger state. Writes land in an in-memory stack of
// levels; Snapshot and RevertToSnapshot give nested all-or-nothing
// checkpoints and Commit flushes the surviving writes to the database in one
// batch. Records missing from both layers read as zero values.
type Manager struct {
	db storage.Database
	sm *stackedMap
}

// NewManager creates a state manager reading through to db.
func NewManager(db storage.Database) *Manager {
	m := &Manager{db: db}
	m.reset()
	return m
}

func (m *Manager) reset() {
	m.sm = newStackedMap(m.load)
	m.sm.push()
}

func (m *Manager) load(key stateKey) (any, bool, error) {
	data, err := m.db.Get(key.bytes())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rawValue(data), true, nil
}

// Snapshot opens a checkpoint and returns its revision.
func (m *Manager) Snapshot() int { return m.sm.push() }

// RevertToSnapshot discards every write made since rev was opened.
func (m *Manager) RevertToSnapshot(rev int) {
	if rev < 1 {
		rev = 1
	}
	m.sm.popTo(rev)
}

// Finalise folds every open checkpoint into the base level. Revisions taken
// before the call can no longer be reverted.
func (m *Manager) Finalise() { m.sm.collapse() }

// Commit finalises the pending writes, flushes them to the database in one
// batch and returns how many records were written.
func (m *Manager) Commit() (int, error) {
	m.Finalise()
	journal := m.sm.journal()
	index := make(map[stateKey]int, len(journal))
	latest := make([]journalEntry, 0, len(journal))
	for _, entry := range journal {
		if i, ok := index[entry.key]; ok {
			latest[i] = entry
			continue
		}
		index[entry.key] = len(latest)
		latest = append(latest, entry)
	}
	batch := make([]storage.KV, 0, len(latest))
	for _, entry := range latest {
		encoded, err := rlp.EncodeToBytes(entry.value)
		if err != nil {
			return 0, fmt.Errorf("state: encode %T: %w", entry.key, err)
		}
		batch = append(batch, storage.KV{Key: entry.key.bytes(), Value: encoded})
	}
	if len(batch) > 0 {
		if err := m.db.WriteBatch(batch); err != nil {
			return 0, err
		}
	}
	m.reset()
	return len(batch), nil
}

// Pending reports the number of writes not yet committed.
func (m *Manager) Pending() int { return len(m.sm.journal()) }

func get[T any](m *Manager, key stateKey) (T, bool, error) {
	var zero T
	v, ok, err := m.sm.get(key)
	if err != nil || !ok {
		return zero, false, err
	}
	switch val := v.(type) {
	case rawValue:
		var out T
		if err := rlp.DecodeBytes(val, &out); err != nil {
			return zero, false, fmt.Errorf("state: decode %T: %w", key, err)
		}
		return out, true, nil
	case T:
		return val, true, nil
	default:
		return zero, false, fmt.Errorf("state: unexpected %T stored under %T", v, key)
	}
}

func put[T any](m *Manager, key stateKey, value T) error {
	m.sm.put(key, value)
	return nil
}

// Height returns the persisted time unit.
func (m *Manager) Height() (uint64, error) {
	h, _, err := get[uint64](m, heightKey{})
	return h, err
}

func (m *Manager) PutHeight(height uint64) error {
	return put(m, heightKey{}, height)
}
