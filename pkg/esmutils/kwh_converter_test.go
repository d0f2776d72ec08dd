package esmutils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKwhToJoules(t *testing.T) {
	tests := map[string]int64{
		"0":          0,
		"1":          3_600_000,
		"1.222":      4_399_200,
		"-0.5":       -1_800_000,
		"0.00001":    36,
		"123456.789": 444_444_440_400,
	}
	for in, want := range tests {
		got, err := KwhToJoules(decimal.RequireFromString(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestKwhToJoulesRejectsLoss(t *testing.T) {
	for _, in := range []string{"0.0000001", "1.00000001", "9999999999999999"} {
		_, err := KwhToJoules(decimal.RequireFromString(in))
		assert.ErrorIs(t, err, ErrPrecision, in)
	}
}

func TestJoulesToKwh(t *testing.T) {
	assert.Equal(t, "1.5", JoulesToKwh(5_400_000).String())
	assert.Equal(t, "0.001", JoulesToKwh(3600).String())
	assert.Equal(t, "-2", JoulesToKwh(-7_200_000).String())
}

func TestKwhToJoulesExtremeExponents(t *testing.T) {
	tests := []decimal.Decimal{
		decimal.New(1, 20_000_000),
		decimal.New(1, -10_000_000),
		decimal.New(5, 19),
		decimal.New(123, -20),
	}
	for _, in := range tests {
		begin := time.Now()
		_, err := KwhToJoules(in)
		assert.ErrorIs(t, err, ErrPrecision, in.String())
		assert.Less(t, time.Since(begin), 100*time.Millisecond)
	}

	j, err := KwhToJoules(decimal.New(0, 20_000_000))
	require.NoError(t, err)
	assert.Zero(t, j)

	// Trailing zeros below the joule scale still convert.
	j, err = KwhToJoules(decimal.New(15_000_000_000, -10))
	require.NoError(t, err)
	assert.Equal(t, int64(5_400_000), j)

	j, err = KwhToJoules(decimal.New(2, 12))
	require.NoError(t, err)
	assert.Equal(t, int64(7_200_000_000_000_000_000), j)
}
