package apperr

import (
	"bytes"
	"encoding/json"

	"github.com/tb8/tb8/pkg/pathjson"
)

const (
	detailNotFound    = "Could not extract problematic value"
	detailInvalidJSON = "Invalid JSON"
)

// ExtractDetail returns the compact JSON of the value at path inside body.
// It never fails: an unparsable body yields "Invalid JSON" and an
// unresolvable path yields "Could not extract problematic value".
func ExtractDetail(body []byte, path string) string {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return detailInvalidJSON
	}
	if dec.More() {
		return detailInvalidJSON
	}

	v, ok := walk(doc, pathjson.ParsePath(path))
	if !ok {
		return detailNotFound
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return detailNotFound
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func walk(v any, segments []string) (any, bool) {
	for _, seg := range segments {
		switch node := v.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			v = next
		case []any:
			i, ok := pathjson.IndexOf(seg)
			if !ok || i >= len(node) {
				return nil, false
			}
			v = node[i]
		default:
			return nil, false
		}
	}
	return v, true
}
