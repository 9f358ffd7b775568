package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSlice is stored as a JSON array in a TEXT column.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSlice) Scan(value interface{}) error {
	data, ok := jsonBytes(value)
	if !ok {
		*s = nil
		return nil
	}
	return json.Unmarshal(data, (*[]string)(s))
}

// Tags is stored as a JSON array of {tid,name,type} objects.
type Tags []Tag

func (t Tags) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]Tag(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Tags) Scan(value interface{}) error {
	data, ok := jsonBytes(value)
	if !ok {
		*t = nil
		return nil
	}
	if err := json.Unmarshal(data, (*[]Tag)(t)); err != nil {
		return fmt.Errorf("scan tags: %w", err)
	}
	return nil
}

func jsonBytes(value interface{}) ([]byte, bool) {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil, false
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, false
	}
	return data, true
}
