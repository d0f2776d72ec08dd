package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/european_smart_meter/pkg/ingest"
	"github.com/NotCoffee418/european_smart_meter/pkg/meterdb"
	"github.com/NotCoffee418/european_smart_meter/pkg/report"
	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

const export = `Time,Electricity imported T1,Electricity imported T2,Electricity exported T1,Electricity exported T2
2024-01-01 01:00,101.500,200.000,1.500,0.000
2024-01-01 00:00,100.000,200.000,1.000,0.000
2024-01-01 02:00,102.000,200.250,1.500,0.000
`

func TestReadAllExpandsRows(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	readings, rows, err := ReadAll(strings.NewReader(export), loc)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	require.Len(t, readings, 6)

	// Sorted by time, normal before off-peak within a row.
	first := readings[0]
	assert.Equal(t, types.Normal, first.Tariff)
	assert.Equal(t, types.Joule(99*3_600_000), first.Energy)
	assert.Equal(t, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC), first.Time)
	assert.Equal(t, types.OffPeak, readings[1].Tariff)
	assert.Equal(t, types.Joule(200*3_600_000), readings[1].Energy)

	for i := 1; i < len(readings); i++ {
		assert.False(t, readings[i].Time.Before(readings[i-1].Time))
	}
}

func TestImportIsIdempotent(t *testing.T) {
	store := meterdb.NewMemoryStore()
	p, err := ingest.NewPipeline(store)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := Import(ctx, strings.NewReader(export), time.UTC, p)
	require.NoError(t, err)
	// The off-peak counter repeats at 01:00, so it is stored once.
	assert.Equal(t, Result{Rows: 3, New: 5, Duplicate: 1}, res)

	res, err = Import(ctx, strings.NewReader(export), time.UTC, p)
	require.NoError(t, err)
	assert.Equal(t, Result{Rows: 3, New: 0, Duplicate: 6}, res)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	u, err := report.Generate(ctx, store, start, start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[types.Tariff]types.Joule{
		types.Normal:  5_400_000,
		types.OffPeak: 900_000,
	}, u.ByTariff())
}

func TestImportRejectsBadInput(t *testing.T) {
	tests := map[string]struct {
		input string
		line  int
	}{
		"bad time": {
			input: "time,electricity imported t1,electricity imported t2,electricity exported t1,electricity exported t2\n" +
				"2024-01-01 00:00,1,1,0,0\nyesterday,1,1,0,0\n",
			line: 3,
		},
		"bad value": {
			input: "time,electricity imported t1,electricity imported t2,electricity exported t1,electricity exported t2\n" +
				"2024-01-01 00:00,one,1,0,0\n",
			line: 2,
		},
		"exponent value": {
			input: "time,electricity imported t1,electricity imported t2,electricity exported t1,electricity exported t2\n" +
				"2024-01-01 00:00,1e20000000,1,0,0\n",
			line: 2,
		},
		"missing column": {
			input: "time,electricity imported t1,electricity imported t2,electricity exported t1,electricity exported t2\n" +
				"2024-01-01 00:00,1,1,0\n",
			line: 2,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			store := meterdb.NewMemoryStore()
			p, err := ingest.NewPipeline(store)
			require.NoError(t, err)

			_, err = Import(context.Background(), strings.NewReader(tt.input), time.UTC, p)
			var rowErr *RowError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, tt.line, rowErr.Line)

			n, err := store.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestImportRejectsHeader(t *testing.T) {
	p, err := ingest.NewPipeline(meterdb.NewMemoryStore())
	require.NoError(t, err)
	_, err = Import(context.Background(), strings.NewReader("when,a,b,c,d\n"), time.UTC, p)
	assert.ErrorIs(t, err, ErrHeader)
}
