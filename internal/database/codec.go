package database

import (
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"time"
)

// TimestampLayout is the ISO-8601 layout of the timestamp column.
const TimestampLayout = "2006-01-02T15:04:05.000000"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTable checks that name can be used unquoted as an SQL table name.
func ValidateTable(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return nil
}

// EncodeEmbedding converts []float64 to a little-endian byte blob of len(v)*8 bytes.
func EncodeEmbedding(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

// DecodeEmbedding converts a blob written by EncodeEmbedding back to []float64.
func DecodeEmbedding(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of 8", ErrInvalidEmbedding, len(b))
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v, nil
}

// FormatTimestamp renders t in the timestamp column format.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses the timestamp column. Values are local time without zone;
// RFC 3339 values written by other tools are accepted too.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(TimestampLayout, s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// Float32s converts an embedding for libraries working in single precision.
func Float32s(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
