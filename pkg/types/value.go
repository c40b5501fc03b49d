package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a FieldValue.
type ValueKind uint8

// FieldValue variants.
const (
	KindNull ValueKind = iota
	KindText
	KindNumber
	KindBool
	KindList
	// KindRaw holds a JSON value the engine does not interpret (for example
	// an attachment object written by another client). It is carried through
	// push and pull verbatim.
	KindRaw
)

// FieldValue is the tagged union stored in a record's field map. The zero
// value is Null. Accessors never panic: asking for the wrong variant returns
// the type-appropriate default.
type FieldValue struct {
	kind ValueKind
	text string
	num  float64
	b    bool
	list []string
	raw  json.RawMessage
}

// Null returns the empty value.
func Null() FieldValue { return FieldValue{} }

// Text returns a text value.
func Text(s string) FieldValue { return FieldValue{kind: KindText, text: s} }

// Number returns a numeric value.
func Number(f float64) FieldValue { return FieldValue{kind: KindNumber, num: f} }

// Bool returns a boolean value.
func Bool(b bool) FieldValue { return FieldValue{kind: KindBool, b: b} }

// List returns a string-list value. The slice is copied.
func List(items ...string) FieldValue {
	cp := make([]string, len(items))
	copy(cp, items)
	return FieldValue{kind: KindList, list: cp}
}

// Kind reports the variant.
func (v FieldValue) Kind() ValueKind { return v.kind }

// IsNull reports whether v holds no value at all.
func (v FieldValue) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether v is null, an empty string or an empty list.
// False and zero are not empty.
func (v FieldValue) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return v.text == ""
	case KindList:
		return len(v.list) == 0
	default:
		return false
	}
}

// AsText returns the text variant, or "" for any other variant.
func (v FieldValue) AsText() string {
	if v.kind != KindText {
		return ""
	}
	return v.text
}

// AsNumber returns the numeric variant, or 0 and false.
func (v FieldValue) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsBool returns the boolean variant, or false.
func (v FieldValue) AsBool() bool {
	return v.kind == KindBool && v.b
}

// AsList returns a copy of the list variant, or nil.
func (v FieldValue) AsList() []string {
	if v.kind != KindList {
		return nil
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

// String renders v for display and for the generic string comparisons of the
// filter engine. Lists are joined with ", ".
func (v FieldValue) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		return strings.Join(v.list, ", ")
	case KindRaw:
		return string(v.raw)
	default:
		return ""
	}
}

// Equal reports whether two values are the same variant with the same
// content.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	case KindRaw:
		return bytes.Equal(v.raw, o.raw)
	}
	return false
}

// Clone returns a deep copy of v.
func (v FieldValue) Clone() FieldValue {
	out := v
	if v.list != nil {
		out.list = append([]string(nil), v.list...)
	}
	if v.raw != nil {
		out.raw = append(json.RawMessage(nil), v.raw...)
	}
	return out
}

// MarshalJSON encodes v as the plain JSON value it represents.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindRaw:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes any JSON value. Array elements that are not strings
// are rendered to their JSON text; objects are kept as KindRaw.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*v = Null()
		return nil
	}
	switch data[0] {
	case 'n':
		*v = Null()
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			var s string
			if err := json.Unmarshal(item, &s); err == nil {
				list = append(list, s)
				continue
			}
			list = append(list, string(bytes.TrimSpace(item)))
		}
		*v = FieldValue{kind: KindList, list: list}
	case '{':
		*v = FieldValue{kind: KindRaw, raw: append(json.RawMessage(nil), data...)}
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("decoding field value: %w", err)
		}
		*v = Number(f)
	}
	return nil
}

// ParseValue converts user input into the FieldValue a column of type t
// stores. It fails closed: input that cannot be read as the column's type
// yields the type's default (Null, or false for checkboxes).
func ParseValue(t ColumnType, input string) FieldValue {
	return CoerceValue(t, Text(input))
}

// CoerceValue converts v to the variant a column of type t stores.
func CoerceValue(t ColumnType, v FieldValue) FieldValue {
	if v.kind == KindRaw {
		return v
	}
	switch t {
	case ColumnCheckbox:
		switch v.kind {
		case KindBool:
			return v
		case KindText:
			b, err := strconv.ParseBool(strings.TrimSpace(v.text))
			if err != nil {
				return Bool(false)
			}
			return Bool(b)
		case KindNumber:
			return Bool(v.num != 0)
		default:
			return Bool(false)
		}
	case ColumnNumber:
		switch v.kind {
		case KindNumber:
			if !finite(v.num) {
				return Null()
			}
			return v
		case KindText:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
			if err != nil || !finite(f) {
				return Null()
			}
			return Number(f)
		default:
			return Null()
		}
	case ColumnMultiSelect, ColumnAttachment:
		switch v.kind {
		case KindList:
			return v
		case KindText:
			return List(splitList(v.text)...)
		case KindNull:
			return v
		default:
			return List(v.String())
		}
	default:
		switch v.kind {
		case KindNull, KindText:
			return v
		default:
			return Text(v.String())
		}
	}
}

// finite rejects NaN and the infinities, which JSON cannot encode.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// splitList splits comma or newline separated input, dropping blanks.
func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
