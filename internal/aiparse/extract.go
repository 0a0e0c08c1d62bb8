// Package aiparse extracts structured analysis from free-form model output.
// Models are asked for strict JSON but routinely wrap it in prose or fenced
// code blocks, so extraction tries progressively looser strategies before
// giving up.
package aiparse

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON reports that no balanced JSON object could be extracted.
var ErrNoJSON = errors.New("no JSON object in model response")

var fencedBlockRe = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n?(.*?)```")

// ExtractJSONObject finds the first parseable top-level JSON object in raw.
// Order: whole-string parse, then every fenced code block, then a brace scan
// that is aware of string literals and escapes (so braces inside quoted
// strings do not count).
func ExtractJSONObject(raw string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrNoJSON
	}
	if obj, ok := tryObject(trimmed); ok {
		return obj, nil
	}
	for _, m := range fencedBlockRe.FindAllStringSubmatch(trimmed, -1) {
		if obj, ok := tryObject(strings.TrimSpace(m[1])); ok {
			return obj, nil
		}
	}
	if candidate := firstBalancedObject(trimmed); candidate != "" {
		if obj, ok := tryObject(candidate); ok {
			return obj, nil
		}
	}
	return nil, ErrNoJSON
}

func tryObject(s string) (json.RawMessage, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return nil, false
	}
	return json.RawMessage(s), true
}

// firstBalancedObject returns the substring from the first '{' to its
// matching '}', or "" when braces never balance.
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
