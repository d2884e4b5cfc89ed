package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// CommaList is a list of free-text values persisted as one comma-joined text
// column. An empty list is stored as NULL.
type CommaList []string

// ParseCommaList splits raw comma-joined text, dropping blank entries.
func ParseCommaList(raw string) CommaList {
	parts := strings.Split(raw, ",")
	out := make(CommaList, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (l *CommaList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}

	switch v := src.(type) {
	case string:
		*l = ParseCommaList(v)
	case []byte:
		*l = ParseCommaList(string(v))
	default:
		return fmt.Errorf("CommaList: unsupported Scan type %T", src)
	}
	return nil
}

func (l CommaList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return l.String(), nil
}

// String renders the list the way it is stored.
func (l CommaList) String() string {
	return strings.Join(l, ", ")
}

// IsEmpty reports whether no values are present.
func (l CommaList) IsEmpty() bool {
	return len(l) == 0
}

// MarshalJSON renders the comma-joined text, or null when empty.
func (l CommaList) MarshalJSON() ([]byte, error) {
	if len(l) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(l.String())
}

// UnmarshalJSON accepts either a comma-joined string or an array of strings.
func (l *CommaList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = ParseCommaList(strings.Join(items, ","))
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = ParseCommaList(raw)
	return nil
}
