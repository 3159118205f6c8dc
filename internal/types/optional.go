package types

import (
	"bytes"
	"encoding/json"
)

// OptionalString is a nullable JSON string that remembers whether its key
// was present. Absent keys leave a column untouched; an explicit null
// clears it.
type OptionalString struct {
	Set   bool
	Null  bool
	Value string
}

// SomeString returns a present, non-null OptionalString.
func SomeString(v string) OptionalString {
	return OptionalString{Set: true, Value: v}
}

// NullString returns a present OptionalString holding null.
func NullString() OptionalString {
	return OptionalString{Set: true, Null: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null, o.Value = true, ""
		return nil
	}
	o.Null = false
	return json.Unmarshal(b, &o.Value)
}

// Ptr returns the column value: nil for null or absent.
func (o OptionalString) Ptr() *string {
	if !o.Set || o.Null {
		return nil
	}
	v := o.Value
	return &v
}
