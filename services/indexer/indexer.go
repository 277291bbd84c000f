package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"posichain/core/events"
	"posichain/crypto"
)

// EventRecord is one persisted ledger event.
type EventRecord struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	Height     uint64 `gorm:"index"`
	Sequence   int
	Type       string `gorm:"index"`
	Attributes string
	CreatedAt  time.Time
}

// EventAccount links an event to every address its attributes mention.
type EventAccount struct {
	EventID uint64 `gorm:"primaryKey"`
	Address string `gorm:"primaryKey;index"`
}

// Event is a decoded row returned by queries.
type Event struct {
	ID         uint64            `json:"id"`
	Height     uint64            `json:"height"`
	Sequence   int               `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Store indexes committed ledger events in SQL.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the schema. sqlite://path and
// postgres:// DSNs are supported; "sqlite://:memory:" opens a private
// in-memory database.
func Open(dsn string) (*Store, error) {
	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	if err := db.AutoMigrate(&EventRecord{}, &EventAccount{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	trimmed := strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(trimmed, "sqlite://"):
		path := strings.TrimPrefix(trimmed, "sqlite://")
		if path == "" {
			return nil, errors.New("indexer: empty sqlite path")
		}
		if path == ":memory:" {
			path = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
		}
		return sqlite.Open(path), nil
	case strings.HasPrefix(trimmed, "postgres://"), strings.HasPrefix(trimmed, "postgresql://"):
		return postgres.Open(trimmed), nil
	default:
		return nil, fmt.Errorf("indexer: unsupported dsn %q", dsn)
	}
}

// Record stores evs at height in one transaction.
func (s *Store) Record(height uint64, evs []events.Event) error {
	if len(evs) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i, e := range evs {
			payload := e.Event()
			if payload == nil {
				continue
			}
			attrs, err := json.Marshal(payload.Attributes)
			if err != nil {
				return err
			}
			rec := EventRecord{Height: height, Sequence: i, Type: payload.Type, Attributes: string(attrs)}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
			for _, addr := range mentionedAddresses(payload.Attributes) {
				if err := tx.Create(&EventAccount{EventID: rec.ID, Address: addr}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// History returns up to limit events mentioning addr, newest first.
func (s *Store) History(addr crypto.Address, limit int) ([]Event, error) {
	var rows []EventRecord
	err := s.db.
		Joins("JOIN event_accounts ON event_accounts.event_id = event_records.id").
		Where("event_accounts.address = ?", addr.String()).
		Order("event_records.id DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return decode(rows)
}

// Latest returns up to limit events, newest first.
func (s *Store) Latest(limit int) ([]Event, error) {
	var rows []EventRecord
	if err := s.db.Order("id DESC").Limit(clampLimit(limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return decode(rows)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Collector buffers emitted events until they are recorded.
type Collector struct {
	mu     sync.Mutex
	events []events.Event
}

// Emit implements events.Emitter.
func (c *Collector) Emit(e events.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

// Drain returns and clears the collected events.
func (c *Collector) Drain() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}

func decode(rows []EventRecord) ([]Event, error) {
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		attrs := make(map[string]string)
		if row.Attributes != "" {
			if err := json.Unmarshal([]byte(row.Attributes), &attrs); err != nil {
				return nil, fmt.Errorf("indexer: decode event %d: %w", row.ID, err)
			}
		}
		out = append(out, Event{ID: row.ID, Height: row.Height, Sequence: row.Sequence, Type: row.Type, Attributes: attrs})
	}
	return out, nil
}

func mentionedAddresses(attrs map[string]string) []string {
	seen := make(map[string]struct{})
	for _, value := range attrs {
		if !strings.HasPrefix(value, crypto.AddressPrefix+"1") {
			continue
		}
		addr, err := crypto.DecodeAddress(value)
		if err != nil || addr.IsZero() {
			continue
		}
		seen[addr.String()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}
