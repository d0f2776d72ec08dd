package types

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RecordSize is the length of a persisted reading:
// tariff (1) + energy LE (8) + unix seconds LE (8).
const RecordSize = 17

// fingerprintSize covers tariff and energy only.
const fingerprintSize = 9

var ErrRecordLength = errors.New("invalid record length")

// Reading is one tariff-scoped observation of a cumulative energy register.
type Reading struct {
	Tariff Tariff
	Energy Joule
	Time   time.Time
}

// NewReading truncates the time to whole seconds in UTC, the resolution of the
// persisted record.
func NewReading(tariff Tariff, energy Joule, at time.Time) Reading {
	return Reading{
		Tariff: tariff,
		Energy: energy,
		Time:   time.Unix(at.Unix(), 0).UTC(),
	}
}

func (r Reading) MarshalBinary() ([]byte, error) {
	return r.Record(), nil
}

// Record returns the 17 byte wire layout.
func (r Reading) Record() []byte {
	b := make([]byte, RecordSize)
	b[0] = byte(r.Tariff)
	binary.LittleEndian.PutUint64(b[1:9], uint64(r.Energy))
	binary.LittleEndian.PutUint64(b[9:17], uint64(r.Time.Unix()))
	return b
}

// UnmarshalRecord decodes the wire layout produced by Record.
func UnmarshalRecord(b []byte) (Reading, error) {
	if len(b) != RecordSize {
		return Reading{}, fmt.Errorf("%w: %d", ErrRecordLength, len(b))
	}
	tariff := Tariff(b[0])
	if !tariff.Valid() {
		return Reading{}, fmt.Errorf("%w: discriminant %d", ErrUnknownTariff, b[0])
	}
	energy := Joule(int64(binary.LittleEndian.Uint64(b[1:9])))
	unix := int64(binary.LittleEndian.Uint64(b[9:17]))
	return Reading{
		Tariff: tariff,
		Energy: energy,
		Time:   time.Unix(unix, 0).UTC(),
	}, nil
}

func (r *Reading) UnmarshalBinary(b []byte) error {
	decoded, err := UnmarshalRecord(b)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// Fingerprint is the hex SHA-256 of tariff and energy. The timestamp is
// excluded so an unchanged counter always maps onto the same key.
func (r Reading) Fingerprint() string {
	sum := sha256.Sum256(r.Record()[:fingerprintSize])
	return hex.EncodeToString(sum[:])
}

func (r Reading) String() string {
	return fmt.Sprintf("%s %s @ %s", r.Tariff, r.Energy, r.Time.Format(time.RFC3339))
}

type jsonReading struct {
	Tariff    string          `json:"tariff"`
	EnergyJ   int64           `json:"energy_j"`
	EnergyKwh decimal.Decimal `json:"energy_kwh"`
	Time      time.Time       `json:"time"`
}

func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonReading{
		Tariff:    r.Tariff.String(),
		EnergyJ:   int64(r.Energy),
		EnergyKwh: r.Energy.Kwh(),
		Time:      r.Time,
	})
}

func (r *Reading) UnmarshalJSON(data []byte) error {
	var raw jsonReading
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	tariff, err := ParseTariffName(raw.Tariff)
	if err != nil {
		return err
	}
	*r = NewReading(tariff, Joule(raw.EnergyJ), raw.Time)
	return nil
}

func (r Reading) ToJsonBytes() []byte {
	b, _ := json.Marshal(r)
	return b
}

// ReadingFromJsonBytes returns nil if the payload is not a reading.
func ReadingFromJsonBytes(b []byte) *Reading {
	var r Reading
	if err := json.Unmarshal(b, &r); err != nil {
		return nil
	}
	return &r
}

// Normalize sorts readings ascending by time. The sort is stable so equal
// timestamps keep their original order.
func Normalize(readings []Reading) {
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Time.Before(readings[j].Time)
	})
}
