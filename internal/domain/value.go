package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is an immutable-by-convention JSON document tree. Object fields keep
// their original order across decode/encode round trips, which matters when
// the document is later rendered into a prompt: a reordered payload reads as
// a different payload to the reasoning model.
type Value struct {
	kind    Kind
	boolVal bool
	numVal  float64
	strVal  string
	items   []Value
	keys    []string
	fields  map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, numVal: n} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, strVal: s} }

// Array returns an array value holding the given items.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: items}
}

// Object returns an empty object value.
func Object() Value {
	return Value{kind: KindObject, fields: make(map[string]Value)}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// BoolVal returns the boolean payload. Valid only for KindBool.
func (v Value) BoolVal() bool { return v.boolVal }

// NumberVal returns the numeric payload. Valid only for KindNumber.
func (v Value) NumberVal() float64 { return v.numVal }

// StringVal returns the string payload. Valid only for KindString.
func (v Value) StringVal() string { return v.strVal }

// Items returns the array elements. Valid only for KindArray.
func (v Value) Items() []Value { return v.items }

// Len returns the element count for arrays and the field count for objects.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.keys)
	default:
		return 0
	}
}

// Keys returns object field names in insertion order.
func (v Value) Keys() []string { return v.keys }

// Get returns the object field for key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	val, ok := v.fields[key]
	return val, ok
}

// Set adds or replaces an object field. New keys append to the key order.
func (v *Value) Set(key string, val Value) {
	if v.kind != KindObject {
		return
	}
	if v.fields == nil {
		v.fields = make(map[string]Value)
	}
	if _, exists := v.fields[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.fields[key] = val
}

// EncodedSize returns the serialized JSON length in bytes.
func (v Value) EncodedSize() int {
	b, err := v.MarshalJSON()
	if err != nil {
		return 0
	}
	return len(b)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.boolVal {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(strconv.FormatFloat(v.numVal, 'g', -1, 64))
	case KindString:
		b, err := json.Marshal(v.strVal)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, key := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.fields[key].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value kind %d", v.kind)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving object key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '{':
			obj := Object()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return obj, nil
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Array(items...), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}

// FromGo converts plain Go data (as produced by encoding/json or built by
// hand) into a Value. Map keys are sorted so conversion is deterministic;
// Go maps carry no order to preserve.
func FromGo(data any) Value {
	switch t := data.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	case string:
		return String(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromGo(item)
		}
		return Array(items...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := Object()
		for _, k := range keys {
			obj.Set(k, FromGo(t[k]))
		}
		return obj
	case Value:
		return t
	default:
		// Last resort for exotic types: round-trip through encoding/json.
		b, err := json.Marshal(t)
		if err != nil {
			return String(fmt.Sprintf("%v", t))
		}
		var v Value
		if err := v.UnmarshalJSON(b); err != nil {
			return String(string(b))
		}
		return v
	}
}
