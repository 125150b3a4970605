package ingest

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// quoteBareKeys rewrites unquoted object keys ({id:"a"}) into quoted ones.
// It reports whether anything changed. Quoted strings are copied verbatim.
func quoteBareKeys(src []byte) ([]byte, bool) {
	out := make([]byte, 0, len(src)+16)
	changed := false
	expectKey := false
	var quote byte
	escaped := false

	for i := 0; i < len(src); i++ {
		b := src[i]
		if quote != 0 {
			out = append(out, b)
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == quote:
				quote = 0
			}
			continue
		}

		switch {
		case b == '"' || b == '\'':
			quote = b
			expectKey = false
			out = append(out, b)
		case b == '{' || b == ',':
			expectKey = true
			out = append(out, b)
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
			out = append(out, b)
		case expectKey && isIdentStart(b):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			k := j
			for k < len(src) && (src[k] == ' ' || src[k] == '\t') {
				k++
			}
			if k < len(src) && src[k] == ':' {
				out = append(out, '"')
				out = append(out, src[i:j]...)
				out = append(out, '"')
				changed = true
			} else {
				out = append(out, src[i:j]...)
			}
			i = j - 1
			expectKey = false
		default:
			expectKey = false
			out = append(out, b)
		}
	}
	return out, changed
}

func isIdentStart(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || b == '-' || (b >= '0' && b <= '9')
}

// yamlToJSON reads a YAML flow mapping (a JSON superset that also allows
// single-quoted strings and comments) and re-encodes it as strict JSON.
func yamlToJSON(src []byte) ([]byte, error) {
	var m map[string]any
	if err := yaml.Unmarshal(src, &m); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("yaml: not a mapping")
	}
	return json.Marshal(m)
}
