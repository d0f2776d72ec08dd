// Package feed obtains raw telegram bytes, one telegram per Fetch.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Source produces the raw bytes of one telegram per call.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

var (
	ErrUnknownKind = errors.New("unknown feed kind")
	ErrInvalidCRC  = errors.New("telegram crc mismatch")
)

// FetchError wraps a failure to obtain a telegram.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options selects and configures a Source.
type Options struct {
	Kind         string
	Endpoint     string
	File         string
	SerialDevice string
	Baudrate     uint
	ValidateCRC  bool
	Timeout      time.Duration
}

func New(opts Options) (Source, error) {
	switch opts.Kind {
	case "http":
		return NewHTTPSource(opts.Endpoint, opts.Timeout), nil
	case "serial":
		return NewSerialSource(opts.SerialDevice, opts.Baudrate, opts.ValidateCRC), nil
	case "file":
		return NewFileSource(opts.File), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, opts.Kind)
	}
}
