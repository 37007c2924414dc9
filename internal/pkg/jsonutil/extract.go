package jsonutil

import (
	"strings"
)

const codeFence = "```"

// ExtractObject finds the first balanced top-level JSON object embedded in
// raw model output, tolerating prose and markdown fences around it.
// Returns false when no balanced object exists.
func ExtractObject(raw string) (string, bool) {
	out, _, ok := extract(raw)
	return out, ok
}

// ExtractObjectWithOffset also reports the byte offset of the object start.
func ExtractObjectWithOffset(raw string) (string, int, bool) {
	return extract(raw)
}

func extract(raw string) (string, int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", -1, false
	}
	if obj, offset, ok := extractFromFence(raw); ok {
		return obj, offset, true
	}
	return scanBalanced(raw, '{', '}')
}

func extractFromFence(raw string) (string, int, bool) {
	start := strings.Index(raw, codeFence)
	if start == -1 {
		return "", -1, false
	}
	rest := raw[start+len(codeFence):]
	end := strings.Index(rest, codeFence)
	if end == -1 {
		return "", -1, false
	}
	block := rest[:end]
	offset := start + len(codeFence)
	block = strings.TrimLeft(block, "\r\n")
	if idx := strings.Index(block, "\n"); idx != -1 {
		// Drop a language tag line like "json" after the opening fence.
		first := strings.TrimSpace(block[:idx])
		if first != "" && !strings.ContainsAny(first, "{") {
			block = block[idx+1:]
			offset += idx + 1
		}
	}
	block = strings.TrimSpace(block)
	if block == "" {
		return "", -1, false
	}
	obj, rel, ok := scanBalanced(block, '{', '}')
	if !ok {
		return "", -1, false
	}
	return obj, offset + rel, true
}

// scanBalanced walks raw left-to-right from the first open byte and returns
// the span where the brace depth returns to zero. String literals (with
// escapes) are skipped so braces inside values never miscount.
func scanBalanced(raw string, open, close byte) (string, int, bool) {
	start := strings.IndexByte(raw, open)
	if start == -1 {
		return "", -1, false
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), start, true
			}
		}
	}
	return "", -1, false
}
