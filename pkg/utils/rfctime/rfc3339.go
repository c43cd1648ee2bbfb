// Package rfctime fixes the timestamp format of wire and file types.
package rfctime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// RFC3339DateTimeFormat stringifies date-times with an explicit numeric
// offset, never "Z".
const RFC3339DateTimeFormat string = "2006-01-02T15:04:05.999-07:00"

// RFC3339DateTimeFormatZ accepts "Z" as offset. Use it for parsing.
const RFC3339DateTimeFormatZ string = time.RFC3339Nano

// RFC3339 is a date-time per https://www.ietf.org/rfc/rfc3339.txt ,
// a subset of the ISO8601 extended format.
//
// Use it for timestamps interchanged over the network or in files.
type RFC3339 time.Time

func (t RFC3339) Time() time.Time {
	return time.Time(t)
}

func (t *RFC3339) Equal(other *RFC3339) bool {
	if (t == nil) != (other == nil) {
		return false
	}
	return t == nil || t.Time().Equal(other.Time())
}

func (t RFC3339) String() string {
	return time.Time(t).Format(RFC3339DateTimeFormat)
}

// ParseRFC3339DateTime reads a RFC3339 date-time expression.
func ParseRFC3339DateTime(s string) (RFC3339, error) {
	t, err := time.Parse(RFC3339DateTimeFormatZ, s)
	if err != nil {
		return *new(RFC3339), err
	}
	return RFC3339(t), nil
}

var _ json.Marshaler = RFC3339{}
var _ json.Unmarshaler = &RFC3339{}

func (t RFC3339) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, t)), nil
}

func (t *RFC3339) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRFC3339DateTime(s)
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}
