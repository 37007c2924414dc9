package jsonutil

import (
	"encoding/json"
	"strings"
)

func Pretty(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return raw
	}
	return string(buf)
}

// MarshalIndentStable renders v with two-space indent and a trailing newline,
// the exact byte layout artifact files are written in. Map keys are sorted by
// encoding/json, so the same value always yields the same bytes.
func MarshalIndentStable(v any) ([]byte, error) {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}
