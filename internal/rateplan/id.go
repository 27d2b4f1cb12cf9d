package rateplan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is a numeric foreign key. Clients send identifiers both as JSON numbers
// and as strings, so decoding coerces either form to the numeric value.
type ID int64

// IsZero reports whether the identifier is absent.
func (id ID) IsZero() bool { return id == 0 }

// String implements fmt.Stringer.
func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseID coerces a textual identifier. Empty input yields the zero ID.
func ParseID(value string) (ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(trimmed, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, fmt.Errorf("rateplan: invalid id %q", value)
		}
		n = int64(f)
	}
	return ID(n), nil
}

// UnmarshalJSON accepts numbers, numeric strings, empty strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseID(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}
	parsed, err := ParseID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
