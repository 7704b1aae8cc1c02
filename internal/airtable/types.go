package airtable

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// ErrUnknownField is returned when a row carries a field its target type does not declare.
var ErrUnknownField = errors.New("airtable: unknown field")

// Record is one row as returned by the REST API.
type Record struct {
	ID          string                     `json:"id"`
	CreatedTime string                     `json:"createdTime,omitempty"`
	Fields      map[string]json.RawMessage `json:"fields"`
}

// Decode copies the row's fields into dst, a pointer to a struct whose json
// tags name the backend fields. Fields not declared on dst are rejected.
func (r Record) Decode(dst any) error {
	known := fieldSet(reflect.TypeOf(dst))
	for name := range r.Fields {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("%w %q on record %s", ErrUnknownField, name, r.ID)
		}
	}
	raw, err := json.Marshal(r.Fields)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode record %s: %w", r.ID, err)
	}
	return nil
}

// FieldNames lists the backend field names declared by v's json tags, in
// declaration order. The result doubles as the fields[] projection of a query.
func FieldNames(v any) []string {
	return fieldList(reflect.TypeOf(v))
}

var fieldCache sync.Map // reflect.Type -> []string

func fieldList(t reflect.Type) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]string)
	}
	var names []string
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			tag := t.Field(i).Tag.Get("json")
			name, _, _ := strings.Cut(tag, ",")
			if name == "" || name == "-" {
				continue
			}
			names = append(names, name)
		}
	}
	fieldCache.Store(t, names)
	return names
}

func fieldSet(t reflect.Type) map[string]struct{} {
	names := fieldList(t)
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// FlexString holds a field that may be stored as text or as a number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// StringList holds a field that may be a single text value or a list
// (linked records, multi-selects, lookups).
type StringList struct {
	Values []string
	Multi  bool
}

// Text wraps a single text value.
func Text(s string) StringList {
	return StringList{Values: []string{s}}
}

// List wraps a multi-value field.
func List(values ...string) StringList {
	return StringList{Values: values, Multi: true}
}

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = StringList{}
	case len(data) > 0 && data[0] == '[':
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
		*l = StringList{Values: values, Multi: true}
	default:
		var s FlexString
		if err := s.UnmarshalJSON(data); err != nil {
			return err
		}
		*l = StringList{Values: []string{string(s)}}
	}
	return nil
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if l.Multi {
		if l.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(l.Values)
	}
	if len(l.Values) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(l.Values[0])
}

// String renders the value the way ARRAYJOIN does.
func (l StringList) String() string {
	return strings.Join(l.Values, ", ")
}

// Empty reports whether the field holds no non-blank value.
func (l StringList) Empty() bool {
	for _, v := range l.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Attachment is a file stored in an attachment field.
type Attachment struct {
	ID         string               `json:"id"`
	URL        string               `json:"url"`
	Filename   string               `json:"filename,omitempty"`
	Size       int64                `json:"size,omitempty"`
	Type       string               `json:"type,omitempty"`
	Width      int                  `json:"width,omitempty"`
	Height     int                  `json:"height,omitempty"`
	Thumbnails map[string]Thumbnail `json:"thumbnails,omitempty"`
}

// Thumbnail is a resized rendition of an image attachment.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
