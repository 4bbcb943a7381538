// Package phpjson encodes values the way PHP's json_encode does with default flags.
//
// Gateways whose checksum verifiers are written in PHP hash the exact bytes json_encode
// produces, so key order, slash escaping and unicode escaping must all match.
package phpjson

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrInvalidUTF8 mirrors json_encode returning false on malformed input.
var ErrInvalidUTF8 = errors.New("phpjson: malformed UTF-8 in string")

// Field is one key/value pair of an Object.
type Field struct {
	Key   string
	Value any
}

// Object is a JSON object that keeps insertion order, like a PHP associative array.
type Object []Field

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// GetString returns the value under key when it is a string.
func (o Object) GetString(key string) string {
	v, ok := o.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Set replaces the value of an existing key in place or appends a new field.
func (o *Object) Set(key string, value any) {
	for i := range *o {
		if (*o)[i].Key == key {
			(*o)[i].Value = value
			return
		}
	}
	*o = append(*o, Field{Key: key, Value: value})
}

// Without returns a copy of o with the given keys removed.
func (o Object) Without(keys ...string) Object {
	out := make(Object, 0, len(o))
	for _, f := range o {
		drop := false
		for _, k := range keys {
			if f.Key == k {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, f)
		}
	}
	return out
}

// MarshalJSON lets an Object be embedded in values encoded with encoding/json.
func (o Object) MarshalJSON() ([]byte, error) {
	return Marshal(o)
}

// Marshal encodes v. Supported values: nil, bool, string, int, int64, float64,
// Object, []Object, []any, []string and map[string]string (keys sorted).
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalString is Marshal returning a string.
func MarshalString(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return encodeString(buf, val)
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		buf.WriteString(formatFloat(val))
	case Object:
		return encodeObject(buf, val)
	case []Object:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeObject(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []string:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]string:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := make(Object, 0, len(keys))
		for _, k := range keys {
			obj = append(obj, Field{Key: k, Value: val[k]})
		}
		return encodeObject(buf, obj)
	default:
		return fmt.Errorf("phpjson: unsupported type %T", v)
	}
	return nil
}

func encodeObject(buf *bytes.Buffer, o Object) error {
	// PHP encodes an empty array as [] regardless of intent.
	if len(o) == 0 {
		buf.WriteString("[]")
		return nil
	}
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(buf, f.Key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := encode(buf, f.Value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

const hexDigits = "0123456789abcdef"

func encodeString(buf *bytes.Buffer, s string) error {
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '/':
			buf.WriteString(`\/`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			writeUnicodeEscape(buf, uint16(r))
		case r < utf8.RuneSelf:
			buf.WriteByte(byte(r))
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			writeUnicodeEscape(buf, uint16(hi))
			writeUnicodeEscape(buf, uint16(lo))
		default:
			writeUnicodeEscape(buf, uint16(r))
		}
	}
	buf.WriteByte('"')
	return nil
}

func writeUnicodeEscape(buf *bytes.Buffer, u uint16) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[u>>12&0xF])
	buf.WriteByte(hexDigits[u>>8&0xF])
	buf.WriteByte(hexDigits[u>>4&0xF])
	buf.WriteByte(hexDigits[u&0xF])
}

// formatFloat follows serialize_precision=-1: shortest round-trip form, ".0" kept on
// integral values.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !bytes.ContainsAny([]byte(s), ".eE") {
		s += ".0"
	}
	return s
}

// URLEncode mirrors PHP urlencode: spaces become "+" and only -_. stay unescaped.
func URLEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "~", "%7E")
}
