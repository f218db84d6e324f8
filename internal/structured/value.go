// Package structured implements a schema-free, order-preserving representation of the
// JSON payloads produced by language models.
package structured

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

// ErrInvalid is returned when text is not a valid structured payload.
var ErrInvalid = errors.New("invalid structured payload")

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

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the JSON grammar.
// The zero value is a null.
type Value struct {
	kind Kind
	b    bool
	num  string
	str  string
	arr  []*Value
	obj  *Object
}

func Null() *Value { return &Value{kind: KindNull} }

func Bool(b bool) *Value { return &Value{kind: KindBool, b: b} }

func Number(f float64) *Value {
	return &Value{kind: KindNumber, num: strconv.FormatFloat(f, 'f', -1, 64)}
}

func String(s string) *Value { return &Value{kind: KindString, str: s} }

func Array(items ...*Value) *Value { return &Value{kind: KindArray, arr: items} }

func FromObject(o *Object) *Value {
	if o == nil {
		o = NewObject()
	}
	return &Value{kind: KindObject, obj: o}
}

// Parse decodes text into a Value, preserving the key order of every object.
func Parse(text string) (*Value, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalid)
	}
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalid)
	}
	return fromResult(gjson.Parse(text)), nil
}

func fromResult(r gjson.Result) *Value {
	switch r.Type {
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return &Value{kind: KindNumber, num: strings.TrimSpace(r.Raw)}
	case gjson.String:
		return String(r.Str)
	case gjson.JSON:
		if r.IsArray() {
			items := make([]*Value, 0)
			r.ForEach(func(_, item gjson.Result) bool {
				items = append(items, fromResult(item))
				return true
			})
			return Array(items...)
		}
		obj := NewObject()
		r.ForEach(func(key, item gjson.Result) bool {
			obj.Set(key.Str, fromResult(item))
			return true
		})
		return FromObject(obj)
	default:
		return Null()
	}
}

func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// Object returns the underlying object or nil when v is not an object.
func (v *Value) Object() *Object {
	if v == nil || v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Items returns array elements or nil when v is not an array.
func (v *Value) Items() []*Value {
	if v == nil || v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Text renders scalars as plain text. Arrays, objects and null yield "".
func (v *Value) Text() string {
	switch v.Kind() {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Float coerces numbers and numeric strings such as "85" or "85%".
func (v *Value) Float() (float64, bool) {
	var raw string
	switch v.Kind() {
	case KindNumber:
		raw = v.num
	case KindString:
		raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v.str), "%"))
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Strings flattens an array of scalars into strings. A lone string becomes a
// single-element slice, nested containers are encoded as JSON.
func (v *Value) Strings() []string {
	switch v.Kind() {
	case KindArray:
		out := make([]string, 0, len(v.arr))
		for _, item := range v.arr {
			switch item.Kind() {
			case KindNull:
				continue
			case KindArray, KindObject:
				encoded, err := item.MarshalJSON()
				if err != nil {
					continue
				}
				out = append(out, string(encoded))
			default:
				if text := strings.TrimSpace(item.Text()); text != "" {
					out = append(out, text)
				}
			}
		}
		return out
	case KindString, KindNumber, KindBool:
		if text := strings.TrimSpace(v.Text()); text != "" {
			return []string{text}
		}
	}
	return nil
}

func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*v = *parsed
	return nil
}

func (v *Value) encode(buf *bytes.Buffer) error {
	switch v.Kind() {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.num)
	case KindString:
		return writeString(buf, v.str)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		return v.obj.encode(buf)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// Object is a JSON object that remembers insertion order. The zero value is an
// empty object ready to use.
type Object struct {
	keys   []string
	fields map[string]*Value
}

func NewObject() *Object {
	return &Object{fields: make(map[string]*Value)}
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return append([]string(nil), o.keys...)
}

func (o *Object) Get(key string) (*Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.fields[key]
	return v, ok
}

// Set stores v under key. An existing key keeps its position.
func (o *Object) Set(key string, v *Value) {
	if v == nil {
		v = Null()
	}
	if o.fields == nil {
		o.fields = make(map[string]*Value)
	}
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// SetFirst stores v under key and moves the key to the front.
func (o *Object) SetFirst(key string, v *Value) {
	if v == nil {
		v = Null()
	}
	if o.fields == nil {
		o.fields = make(map[string]*Value)
	}
	o.Delete(key)
	o.keys = append([]string{key}, o.keys...)
	o.fields[key] = v
}

func (o *Object) Delete(key string) {
	if _, ok := o.fields[key]; !ok {
		return
	}
	delete(o.fields, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Lookup finds the first of names present in o. Exact matches win, then keys are
// compared ignoring case, spaces, dashes and underscores. It returns the key as
// stored in o.
func (o *Object) Lookup(names ...string) (string, *Value, bool) {
	if o == nil {
		return "", nil, false
	}
	for _, name := range names {
		if v, ok := o.fields[name]; ok {
			return name, v, true
		}
	}
	for _, name := range names {
		want := NormalizeKey(name)
		for _, key := range o.keys {
			if NormalizeKey(key) == want {
				return key, o.fields[key], true
			}
		}
	}
	return "", nil, false
}

func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := o.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Object) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	if o != nil {
		for i, key := range o.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := o.fields[key].encode(buf); err != nil {
				return err
			}
		}
	}
	buf.WriteByte('}')
	return nil
}

// NormalizeKey lowercases s and drops everything except letters and digits.
func NormalizeKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
