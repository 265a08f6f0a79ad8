package domain

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"strings"
)

// HistoryID is a position in the mail provider's change log. Gmail documents
// historyId as an unbounded integer, so it is kept as an arbitrary-precision
// value and compared numerically, never as a string.
type HistoryID struct {
	value *big.Int
}

// ParseHistoryID parses a decimal history id. Pub/Sub envelopes carry it as a
// JSON number or a decimal string depending on the publisher.
func ParseHistoryID(s string) (HistoryID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return HistoryID{}, fmt.Errorf("empty history id")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return HistoryID{}, fmt.Errorf("invalid history id %q", s)
	}
	return HistoryID{value: v}, nil
}

// HistoryIDFromUint64 converts a history id from the Gmail API wire type.
func HistoryIDFromUint64(v uint64) HistoryID {
	return HistoryID{value: new(big.Int).SetUint64(v)}
}

// HistoryIDFromBig wraps an existing big integer. The value is copied.
func HistoryIDFromBig(v *big.Int) HistoryID {
	if v == nil {
		return HistoryID{}
	}
	return HistoryID{value: new(big.Int).Set(v)}
}

// Big returns a copy of the underlying integer, nil when unset.
func (h HistoryID) Big() *big.Int {
	if h.value == nil {
		return nil
	}
	return new(big.Int).Set(h.value)
}

// IsZero reports whether the id is unset (no cursor stored yet).
func (h HistoryID) IsZero() bool {
	return h.value == nil
}

// Cmp compares two history ids numerically: -1, 0 or +1. An unset id compares
// below every set id.
func (h HistoryID) Cmp(other HistoryID) int {
	switch {
	case h.value == nil && other.value == nil:
		return 0
	case h.value == nil:
		return -1
	case other.value == nil:
		return 1
	}
	return h.value.Cmp(other.value)
}

func (h HistoryID) String() string {
	if h.value == nil {
		return ""
	}
	return h.value.String()
}

// Uint64 returns the id truncated to uint64 for Gmail API calls. Gmail never
// issues ids above that range in practice; the stored form stays exact.
func (h HistoryID) Uint64() uint64 {
	if h.value == nil {
		return 0
	}
	return h.value.Uint64()
}

// Value implements driver.Valuer. Stored as a numeric column.
func (h HistoryID) Value() (driver.Value, error) {
	if h.value == nil {
		return nil, nil
	}
	return h.value.String(), nil
}

// Scan implements sql.Scanner.
func (h *HistoryID) Scan(value interface{}) error {
	if value == nil {
		h.value = nil
		return nil
	}
	var s string
	switch v := value.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	case int64:
		h.value = big.NewInt(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into HistoryID", value)
	}
	parsed, err := ParseHistoryID(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// MarshalJSON renders the id as a decimal string so clients never lose
// precision in their own number types.
func (h HistoryID) MarshalJSON() ([]byte, error) {
	if h.value == nil {
		return []byte("null"), nil
	}
	return []byte(`"` + h.value.String() + `"`), nil
}

// UnmarshalJSON accepts both a JSON number and a decimal string.
func (h *HistoryID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		h.value = nil
		return nil
	}
	parsed, err := ParseHistoryID(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
