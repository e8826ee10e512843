package utils

import (
	"fmt"
	"strings"
	"time"
)

// OptionalBool parses a tri-state filter: nil when s is empty, otherwise the
// parsed value.
func OptionalBool(s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nil, nil
	case "1", "true", "yes", "on":
		v := true
		return &v, nil
	case "0", "false", "no", "off":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("invalid boolean %q", s)
}

// OptionalTime parses an RFC3339 timestamp or a YYYY-MM-DD date (UTC
// midnight). Empty input yields nil.
func OptionalTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid time %q", s)
}

// CSV splits a comma-separated list, trimming blanks.
func CSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
