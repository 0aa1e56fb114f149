package rpc

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"
)

var ErrUnrecognizedTimestamp = errors.New("unrecognized timestamp representation")

// ParseTimestamp converts one of the known wire forms into a UTC time:
//
//	"2024-01-01T14:30:00Z"            RFC 3339 string
//	1704119400000                     epoch milliseconds
//	{"seconds": 1704119400, "nanos": 0}
//	null                              zero time
//
// Anything else fails with ErrUnrecognizedTimestamp.
func ParseTimestamp(raw []byte) (time.Time, error) {
	if !gjson.ValidBytes(raw) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnrecognizedTimestamp, string(raw))
	}
	r := gjson.ParseBytes(raw)

	switch r.Type {
	case gjson.Null:
		return time.Time{}, nil
	case gjson.String:
		t, err := time.Parse(time.RFC3339Nano, r.Str)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrUnrecognizedTimestamp, err)
		}
		return t.UTC(), nil
	case gjson.Number:
		ms := r.Float()
		if math.IsInf(ms, 0) || math.IsNaN(ms) {
			return time.Time{}, fmt.Errorf("%w: %s", ErrUnrecognizedTimestamp, r.Raw)
		}
		sec := math.Floor(ms / 1000)
		nsec := math.Round((ms - sec*1000) * 1e6)
		return time.Unix(int64(sec), int64(nsec)).UTC(), nil
	case gjson.JSON:
		if !r.IsObject() {
			break
		}
		sec := r.Get("seconds")
		nanos := r.Get("nanos")
		if !sec.Exists() {
			sec = r.Get("_seconds")
			nanos = r.Get("_nanoseconds")
		}
		if sec.Type != gjson.Number || (nanos.Exists() && nanos.Type != gjson.Number) {
			break
		}
		return time.Unix(sec.Int(), nanos.Int()).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %s", ErrUnrecognizedTimestamp, r.Raw)
}

// Timestamp travels as an RFC 3339 string and decodes from any form
// ParseTimestamp accepts. The zero value is sent as null.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	v, err := ParseTimestamp(b)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

// ServerTimestamp is a server-assigned time, sent as {seconds, nanos}.
type ServerTimestamp struct {
	time.Time
}

func (t ServerTimestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	u := t.UTC()
	return []byte(fmt.Sprintf(`{"seconds":%d,"nanos":%d}`, u.Unix(), u.Nanosecond())), nil
}

func (t *ServerTimestamp) UnmarshalJSON(b []byte) error {
	v, err := ParseTimestamp(b)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}
