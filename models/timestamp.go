package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// localLayouts are accepted after RFC 3339 for files written by tools that
// emit timestamps without a zone offset. Fractional seconds are optional.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp is a time that decodes RFC 3339 as well as zone-less ISO 8601
// values, which are read as local time. It always encodes as RFC 3339.
type Timestamp struct {
	time.Time
}

// NewTimestamp returns a pointer to a Timestamp for t.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

// MarshalJSON writes the time in RFC 3339 with nanoseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return t.Time.MarshalJSON()
}

// UnmarshalJSON accepts null, an empty string, RFC 3339 or a zone-less
// ISO 8601 timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTimestamp parses s as RFC 3339, falling back to zone-less layouts in
// the local time zone. An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return parsed, nil
	}
	for _, layout := range localLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
