package meterdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

// MemoryStore keeps records in insertion order with a fingerprint index.
// It satisfies the same contract as DB and is meant for tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records [][]byte
	index   map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

// InsertIfAbsent rejects values that are not reading records, like DB.
func (m *MemoryStore) InsertIfAbsent(_ context.Context, key, value []byte) (bool, error) {
	if _, err := types.UnmarshalRecord(value); err != nil {
		return false, fmt.Errorf("decoding record: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[string(key)]; ok {
		return false, nil
	}
	m.index[string(key)] = len(m.records)
	m.records = append(m.records, append([]byte(nil), value...))
	return true, nil
}

// ScanRange yields matching records in insertion order.
func (m *MemoryStore) ScanRange(ctx context.Context, start, end time.Time, fn func(value []byte) error) error {
	m.mu.RLock()
	records := append([][]byte(nil), m.records...)
	m.mu.RUnlock()

	lo, hi := start.Unix(), end.Unix()
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := types.UnmarshalRecord(record)
		if err != nil {
			return err
		}
		if ts := r.Time.Unix(); ts < lo || ts > hi {
			continue
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}
