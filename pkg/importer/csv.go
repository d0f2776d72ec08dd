// Package importer loads historical meter exports into the store.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/NotCoffee418/european_smart_meter/pkg/ingest"
	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

const timeLayout = "2006-01-02 15:04"

const (
	colTime = iota
	colImport1
	colImport2
	colExport1
	colExport2
	columnCount
)

var header = [columnCount]string{
	colTime:    "time",
	colImport1: "electricity imported t1",
	colImport2: "electricity imported t2",
	colExport1: "electricity exported t1",
	colExport2: "electricity exported t2",
}

var ErrHeader = errors.New("unexpected csv header")

// RowError points at the offending line of the input.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

type Result struct {
	Rows      int
	New       int
	Duplicate int
}

// Import reads a cumulative export with one row per timestamp. Each row
// yields a normal reading (T1 imported minus exported) and an off-peak one
// (T2). All rows are validated before anything is ingested.
func Import(ctx context.Context, r io.Reader, loc *time.Location, p *ingest.Pipeline) (Result, error) {
	readings, rows, err := ReadAll(r, loc)
	if err != nil {
		return Result{}, err
	}

	res := Result{Rows: rows}
	fresh, err := p.IngestAll(ctx, readings)
	res.New = len(fresh)
	if err != nil {
		return res, err
	}
	res.Duplicate = len(readings) - res.New
	return res, nil
}

// ReadAll parses every row and returns the readings ordered by time.
func ReadAll(r io.Reader, loc *time.Location) ([]types.Reading, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = columnCount
	cr.TrimLeadingSpace = true

	first, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}
	if err := checkHeader(first); err != nil {
		return nil, 0, err
	}

	var (
		readings []types.Reading
		rows     int
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, rows, &RowError{Line: perr.Line, Err: perr.Err}
			}
			return nil, rows, err
		}
		line, _ := cr.FieldPos(colTime)
		normal, offPeak, err := parseRow(record, loc)
		if err != nil {
			return nil, rows, &RowError{Line: line, Err: err}
		}
		readings = append(readings, normal, offPeak)
		rows++
	}

	types.Normalize(readings)
	return readings, rows, nil
}

func checkHeader(record []string) error {
	for i, want := range header {
		if !strings.EqualFold(strings.TrimSpace(record[i]), want) {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrHeader, i+1, record[i], want)
		}
	}
	return nil
}

func parseRow(record []string, loc *time.Location) (types.Reading, types.Reading, error) {
	at, err := time.ParseInLocation(timeLayout, strings.TrimSpace(record[colTime]), loc)
	if err != nil {
		return types.Reading{}, types.Reading{}, err
	}

	var values [columnCount]types.Joule
	for col := colImport1; col < columnCount; col++ {
		values[col], err = types.ParseKwh(strings.TrimSpace(record[col]))
		if err != nil {
			return types.Reading{}, types.Reading{}, fmt.Errorf("%s: %w", header[col], err)
		}
	}

	normal := types.NewReading(types.Normal, values[colImport1].Sub(values[colExport1]), at)
	offPeak := types.NewReading(types.OffPeak, values[colImport2].Sub(values[colExport2]), at)
	return normal, offPeak, nil
}
