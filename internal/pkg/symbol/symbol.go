package symbol

import (
	"strings"
)

// MaxLen caps ticker length; anything longer is not a tradable US symbol.
const MaxLen = 10

// Normalize trims, uppercases and strips a leading "$" prefix.
// Returns "" when the result does not satisfy the ticker grammar.
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "$")
	if !IsValid(s) {
		return ""
	}
	return s
}

// IsValid reports whether s matches the ticker grammar: letters, digits and
// dots only, first byte a letter, length 1..MaxLen, no leading/trailing dot.
func IsValid(s string) bool {
	if len(s) == 0 || len(s) > MaxLen {
		return false
	}
	if s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	if s[len(s)-1] == '.' {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '.':
		default:
			return false
		}
	}
	return true
}

// NormalizeList keeps input order, drops invalid entries and duplicates.
func NormalizeList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := Normalize(s)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// Subsequence filters candidates down to members of allowed, preserving the
// candidates' order, capped at max entries (max <= 0 means no cap).
func Subsequence(candidates, allowed []string, max int) []string {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		allowedSet[s] = struct{}{}
	}
	out := make([]string, 0, len(candidates))
	for _, s := range candidates {
		if _, ok := allowedSet[s]; !ok {
			continue
		}
		out = append(out, s)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
