package mysql

import (
	"encoding/json"
	"strings"
)

// jsonStrings marshals a string list into its JSON column form. An empty
// or nil list becomes "[]" so the column stays valid JSON.
func jsonStrings(in []string) string {
	if len(in) == 0 {
		return "[]"
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func parseJSONStrings(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}

// jsonValue marshals any JSON-column payload, falling back to "[]".
func jsonValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
