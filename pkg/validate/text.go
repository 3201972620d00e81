package validate

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"net/url"
	"strings"
)

// Text is a request field that remembers how it arrived. A JSON body can
// omit a key, send null, send a string, or send something else entirely,
// and the rules treat each of those differently.
//
// Text implements driver.Valuer so ozzo-validation rules see the decoded
// value: nil when absent or null, the string when a string, and the raw JSON
// value otherwise.
type Text struct {
	str     string
	raw     any
	present bool
}

// NewText returns a present string value.
func NewText(s string) Text {
	return Text{str: s, raw: s, present: true}
}

// TextFromQuery reads key from q. Absent keys give an absent Text.
func TextFromQuery(q url.Values, key string) Text {
	if _, ok := q[key]; !ok {
		return Text{}
	}
	return NewText(q.Get(key))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	t.present = true
	t.str = ""
	t.raw = nil

	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}

	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	t.raw = v
	if s, ok := v.(string); ok {
		t.str = s
	}
	return nil
}

// MarshalJSON writes the string, or null when the value was not a string.
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.IsString() {
		return []byte("null"), nil
	}
	return json.Marshal(t.str)
}

// Value implements driver.Valuer.
func (t Text) Value() (driver.Value, error) {
	if !t.present {
		return nil, nil
	}
	return t.raw, nil
}

// String returns the string value, or "" when absent or not a string.
func (t Text) String() string { return t.str }

// Present reports whether the key was supplied at all, even as null.
func (t Text) Present() bool { return t.present }

// IsString reports whether a string value was supplied.
func (t Text) IsString() bool {
	_, ok := t.raw.(string)
	return t.present && ok
}

// Filled reports whether a non-blank string was supplied.
func (t Text) Filled() bool {
	return t.IsString() && strings.TrimSpace(t.str) != ""
}

// Trimmed returns a copy with surrounding whitespace removed from the string.
func (t Text) Trimmed() Text {
	if !t.IsString() {
		return t
	}
	return NewText(strings.TrimSpace(t.str))
}
