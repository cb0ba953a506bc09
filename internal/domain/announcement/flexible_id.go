package announcement

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

// FlexibleID decodes from a JSON number or a numeric JSON string. Browser
// forms serialize select values as strings, e.g. {"departamento_id":"2"}.
type FlexibleID int64

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// the decoder fills in the field path
			return &json.UnmarshalTypeError{Value: "string " + strconv.Quote(s), Type: reflect.TypeOf(int64(0))}
		}
		*f = FlexibleID(n)
		return nil
	}

	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexibleID(n)
	return nil
}

func (f FlexibleID) Int64() int64 {
	return int64(f)
}
