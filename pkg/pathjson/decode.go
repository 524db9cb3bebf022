// Package pathjson decodes JSON documents while tracking where in the
// document a type mismatch happened.
//
// It wraps encoding/json: composite values (objects, arrays, pointers) are
// walked one member at a time, and every leaf is handed to json.Unmarshal.
// The first failure is reported as an *Error carrying the path of the
// offending value, e.g. "results.[2].stationName".
package pathjson

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Error describes a decode failure at a specific location in the document.
type Error struct {
	Path   string // dotted path, "." for the document root
	Msg    string // underlying decoder message
	Offset int64  // byte offset, set for syntax errors only
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

var (
	unmarshalerType     = reflect.TypeFor[json.Unmarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Unmarshal parses data into v, which must be a non-nil pointer.
// Semantics match encoding/json: unknown members are ignored, null leaves
// the zero value, and member names match json tags case-insensitively.
func Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &json.InvalidUnmarshalError{Type: reflect.TypeOf(v)}
	}

	if !json.Valid(data) {
		return syntaxError(data)
	}

	return decodeValue(nil, bytes.TrimSpace(data), rv.Elem())
}

func syntaxError(data []byte) error {
	var probe any
	err := json.Unmarshal(data, &probe)
	if err == nil {
		err = errors.New("invalid JSON")
	}
	e := &Error{Path: Path(nil).String(), Msg: trimPrefix(err)}
	var se *json.SyntaxError
	if errors.As(err, &se) {
		e.Offset = se.Offset
	}
	return e
}

func decodeValue(p Path, raw []byte, v reflect.Value) error {
	if isNull(raw) {
		switch v.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			v.SetZero()
		}
		return nil
	}

	if isLeaf(v) {
		return decodeLeaf(p, raw, v)
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return decodeValue(p, raw, v.Elem())
	case reflect.Struct:
		return decodeStruct(p, raw, v)
	case reflect.Slice, reflect.Array:
		return decodeArray(p, raw, v)
	case reflect.Map:
		return decodeMap(p, raw, v)
	}
	return decodeLeaf(p, raw, v)
}

// isLeaf reports whether v is decoded by encoding/json directly.
func isLeaf(v reflect.Value) bool {
	if v.Kind() == reflect.Interface {
		return true
	}
	if v.Kind() != reflect.Pointer && v.CanAddr() {
		pt := v.Addr().Type()
		if pt.Implements(unmarshalerType) || pt.Implements(textUnmarshalerType) {
			return true
		}
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Struct, reflect.Array, reflect.Map:
		return false
	case reflect.Slice:
		// []byte is base64 text in encoding/json.
		return v.Type().Elem().Kind() == reflect.Uint8
	}
	return true
}

func decodeLeaf(p Path, raw []byte, v reflect.Value) error {
	if err := json.Unmarshal(raw, v.Addr().Interface()); err != nil {
		return &Error{Path: p.String(), Msg: trimPrefix(err)}
	}
	return nil
}

func decodeStruct(p Path, raw []byte, v reflect.Value) error {
	if raw[0] != '{' {
		return mismatch(p, raw, v.Type())
	}
	members, err := objectMembers(raw)
	if err != nil {
		return &Error{Path: p.String(), Msg: trimPrefix(err)}
	}

	fields := cachedFields(v.Type())
	for _, m := range members {
		f, ok := fields.lookup(m.key)
		if !ok {
			continue
		}
		fv, err := fieldByIndex(v, f.index)
		if err != nil {
			return &Error{Path: p.Key(m.key).String(), Msg: err.Error()}
		}
		if err := decodeValue(p.Key(m.key), m.value, fv); err != nil {
			return err
		}
	}
	return nil
}

func decodeArray(p Path, raw []byte, v reflect.Value) error {
	if raw[0] != '[' {
		return mismatch(p, raw, v.Type())
	}
	elems, err := arrayElements(raw)
	if err != nil {
		return &Error{Path: p.String(), Msg: trimPrefix(err)}
	}

	if v.Kind() == reflect.Array {
		// Extra elements are dropped and missing ones zeroed, as encoding/json does.
		for i := 0; i < v.Len(); i++ {
			if i >= len(elems) {
				v.Index(i).SetZero()
				continue
			}
			if err := decodeValue(p.Index(i), elems[i], v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}

	s := reflect.MakeSlice(v.Type(), len(elems), len(elems))
	for i, e := range elems {
		if err := decodeValue(p.Index(i), e, s.Index(i)); err != nil {
			return err
		}
	}
	v.Set(s)
	return nil
}

func decodeMap(p Path, raw []byte, v reflect.Value) error {
	if raw[0] != '{' {
		return mismatch(p, raw, v.Type())
	}
	members, err := objectMembers(raw)
	if err != nil {
		return &Error{Path: p.String(), Msg: trimPrefix(err)}
	}

	t := v.Type()
	if v.IsNil() {
		v.Set(reflect.MakeMapWithSize(t, len(members)))
	}
	for _, m := range members {
		kp := p.Key(m.key)
		kv, err := mapKey(t.Key(), m.key)
		if err != nil {
			return &Error{Path: kp.String(), Msg: err.Error()}
		}
		ev := reflect.New(t.Elem()).Elem()
		if err := decodeValue(kp, m.value, ev); err != nil {
			return err
		}
		v.SetMapIndex(kv, ev)
	}
	return nil
}

func mapKey(t reflect.Type, key string) (reflect.Value, error) {
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		kv := reflect.New(t)
		if err := kv.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(key)); err != nil {
			return reflect.Value{}, err
		}
		return kv.Elem(), nil
	}
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(key).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(key, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot unmarshal key %q into Go value of type %s", key, t)
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(key, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot unmarshal key %q into Go value of type %s", key, t)
		}
		return reflect.ValueOf(n).Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("unsupported map key type %s", t)
}

func mismatch(p Path, raw []byte, t reflect.Type) error {
	return &Error{
		Path: p.String(),
		Msg:  fmt.Sprintf("cannot unmarshal %s into Go value of type %s", kindOf(raw), t),
	}
}

func kindOf(raw []byte) string {
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	}
	return "number"
}

func isNull(raw []byte) bool {
	return string(raw) == "null"
}

func trimPrefix(err error) string {
	return strings.TrimPrefix(err.Error(), "json: ")
}

type member struct {
	key   string
	value json.RawMessage
}

// objectMembers splits a JSON object into its members in document order.
func objectMembers(raw []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		out = append(out, member{key: key, value: val})
	}
	return out, nil
}

// arrayElements splits a JSON array into its raw elements.
func arrayElements(raw []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []json.RawMessage
	for dec.More() {
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

type field struct {
	name  string
	index []int
}

type structFields struct {
	exact map[string]field
	list  []field
}

func (s *structFields) lookup(key string) (field, bool) {
	if f, ok := s.exact[key]; ok {
		return f, true
	}
	for _, f := range s.list {
		if strings.EqualFold(f.name, key) {
			return f, true
		}
	}
	return field{}, false
}

var fieldCache sync.Map // map[reflect.Type]*structFields

func cachedFields(t reflect.Type) *structFields {
	if f, ok := fieldCache.Load(t); ok {
		return f.(*structFields)
	}
	sf := &structFields{exact: make(map[string]field)}
	collectFields(t, nil, sf)
	f, _ := fieldCache.LoadOrStore(t, sf)
	return f.(*structFields)
}

func collectFields(t reflect.Type, index []int, sf *structFields) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		idx := append(index[:len(index):len(index)], i)

		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				collectFields(ft, idx, sf)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		sf.add(field{name: name, index: idx})
	}
}

// add registers f. Shallower fields win over promoted ones with the same name.
func (s *structFields) add(f field) {
	if prev, dup := s.exact[f.name]; dup {
		if len(prev.index) <= len(f.index) {
			return
		}
		for i := range s.list {
			if s.list[i].name == f.name {
				s.list[i] = f
			}
		}
		s.exact[f.name] = f
		return
	}
	s.exact[f.name] = f
	s.list = append(s.list, f)
}

// fieldByIndex is reflect.Value.FieldByIndex that allocates nil embedded pointers.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("cannot set embedded pointer to unexported struct %s", v.Type().Elem())
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, nil
}
