package api

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// isoDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates (midnight UTC).
type isoDate struct {
	time.Time
}

func parseISODate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not an ISO-8601 date", s)
	}
	return t, nil
}

func (d *isoDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := parseISODate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ptr returns the date as a *time.Time, nil when unset.
func (d *isoDate) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// queryDate parses an optional date query parameter.
func queryDate(q url.Values, name string) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := parseISODate(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &t, nil
}
