package llm

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoJSON is returned when no JSON object can be recovered from a response.
var ErrNoJSON = errors.New("llm: no JSON object found in response")

// ParseJSONObject recovers a JSON object from model output. Models wrap
// JSON in prose and fences inconsistently, so parsing cascades through:
// fenced code block, first/last brace slice, shallow balanced-brace scan.
func ParseJSONObject(response string) (map[string]any, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, ErrNoJSON
	}

	// Direct parse covers well-behaved json_mode responses.
	if obj, ok := tryParse(response); ok {
		return obj, nil
	}

	// Fenced code block.
	if inner, ok := extractFenced(response); ok {
		if obj, ok := tryParse(inner); ok {
			return obj, nil
		}
	}

	// First-to-last brace slice.
	first := strings.Index(response, "{")
	last := strings.LastIndex(response, "}")
	if first >= 0 && last > first {
		if obj, ok := tryParse(response[first : last+1]); ok {
			return obj, nil
		}
	}

	// Shallow balanced-brace scan: take the first top-level object even when
	// trailing garbage breaks the outer slice.
	if candidate, ok := scanBalanced(response); ok {
		if obj, ok := tryParse(candidate); ok {
			return obj, nil
		}
	}

	return nil, ErrNoJSON
}

func tryParse(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func extractFenced(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]
	// Skip an optional language tag on the fence line.
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if tag == "json" || tag == "JSON" || tag == "" {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}

// scanBalanced finds the first balanced top-level {...} span, tracking
// string literals so braces inside values do not break the count.
func scanBalanced(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
