package meterdb

import (
	"context"
	"fmt"
	"time"

	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

// InsertIfAbsent stores value under key unless the key exists. The value must
// be a reading record; its columns are indexed for range scans.
func (db *DB) InsertIfAbsent(ctx context.Context, key, value []byte) (bool, error) {
	r, err := types.UnmarshalRecord(value)
	if err != nil {
		return false, fmt.Errorf("decoding record: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		"INSERT OR IGNORE INTO history (checksum, rate, energy, time, record) "+
			"VALUES (?, ?, ?, ?, ?)",
		string(key),
		uint8(r.Tariff),
		int64(r.Energy),
		r.Time.Unix(),
		value,
	)
	if err != nil {
		return false, fmt.Errorf("inserting reading: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting reading: %w", err)
	}
	return n == 1, nil
}

// ScanRange calls fn with every record whose timestamp lies within
// [start, end], oldest first. fn must not use the database.
func (db *DB) ScanRange(ctx context.Context, start, end time.Time, fn func(value []byte) error) error {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT record FROM history WHERE time >= ? AND time <= ? ORDER BY time, rowid",
		start.Unix(),
		end.Unix(),
	)
	if err != nil {
		return fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting readings: %w", err)
	}
	return n, nil
}
