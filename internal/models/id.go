package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an entity identifier. Different backends emit ids as JSON
// strings or as numbers; both decode into the same canonical string
// form, so two ids referring to the same entity always compare equal.
type ID string

// UnmarshalJSON accepts both "42" and 42 on the wire.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Equal compares two ids in canonical string form.
func (id ID) Equal(other ID) bool {
	return string(id) == string(other)
}

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool {
	return id == ""
}

// NormalizeID converts a loosely-typed id value (string, integer or
// float from decoded JSON) to its canonical form.
func NormalizeID(v interface{}) ID {
	switch t := v.(type) {
	case string:
		return ID(t)
	case ID:
		return t
	case int:
		return ID(strconv.Itoa(t))
	case int64:
		return ID(strconv.FormatInt(t, 10))
	case float64:
		return ID(strconv.FormatInt(int64(t), 10))
	case json.Number:
		return ID(t.String())
	default:
		return ""
	}
}
