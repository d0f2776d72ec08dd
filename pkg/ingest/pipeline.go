// Package ingest decides whether a reading is new and persists it.
//
// Readings are keyed by their fingerprint, which excludes the timestamp, so
// polling an unchanged meter never produces a second record.
package ingest

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

// Store is the key-value collaborator. InsertIfAbsent must be atomic with
// respect to concurrent callers and report true only for the caller that
// actually inserted.
type Store interface {
	InsertIfAbsent(ctx context.Context, key, value []byte) (bool, error)
}

// StoreError wraps a collaborator failure.
type StoreError struct {
	Fingerprint string
	Err         error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store reading %s: %v", e.Fingerprint, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

type Pipeline struct {
	store  Store
	recent *lru.Cache
}

type Option func(*Pipeline) error

// WithRecentCache remembers up to size fingerprints known to be persisted and
// answers repeats without a store round trip. Records are never deleted, so a
// hit is always a duplicate.
func WithRecentCache(size int) Option {
	return func(p *Pipeline) error {
		if size <= 0 {
			return nil
		}
		cache, err := lru.New(size)
		if err != nil {
			return err
		}
		p.recent = cache
		return nil
	}
}

func NewPipeline(store Store, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{store: store}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Ingest returns the reading if it was newly persisted and nil if an identical
// tariff/energy pair was already stored.
func (p *Pipeline) Ingest(ctx context.Context, r types.Reading) (*types.Reading, error) {
	fingerprint := r.Fingerprint()
	if p.recent != nil && p.recent.Contains(fingerprint) {
		return nil, nil
	}

	inserted, err := p.store.InsertIfAbsent(ctx, []byte(fingerprint), r.Record())
	if err != nil {
		return nil, &StoreError{Fingerprint: fingerprint, Err: err}
	}
	if p.recent != nil {
		p.recent.Add(fingerprint, struct{}{})
	}
	if !inserted {
		return nil, nil
	}
	return &r, nil
}

// IngestAll ingests the readings of one telegram in order and returns the new
// ones. It stops at the first store error.
func (p *Pipeline) IngestAll(ctx context.Context, readings []types.Reading) ([]types.Reading, error) {
	var fresh []types.Reading
	for _, r := range readings {
		stored, err := p.Ingest(ctx, r)
		if err != nil {
			return fresh, err
		}
		if stored != nil {
			fresh = append(fresh, *stored)
		}
	}
	return fresh, nil
}
