package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"sadad-payment-service/internal/core/domain"
)

// ErrMalformedCallback is returned when a callback body cannot be decoded.
var ErrMalformedCallback = errors.New("malformed callback payload")

// ParseCallbackFields reads gateway callback fields from a JSON body, a form body or the
// query string, keeping the order the gateway sent them in. A POST without a body falls
// back to the query string.
//
// Repeated keys keep the position of their first occurrence and the value of the last,
// matching how the gateway's own PHP verifier sees them.
func ParseCallbackFields(r *http.Request) (domain.CallbackFields, error) {
	if r.Method == http.MethodGet || r.Body == nil {
		return parseQuery(r.URL.RawQuery)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read callback body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return parseQuery(r.URL.RawQuery)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" || (mediaType == "" && body[0] == '{') {
		return parseJSONObject(body)
	}
	return parseQuery(string(body))
}

func parseQuery(raw string) (domain.CallbackFields, error) {
	var fields domain.CallbackFields
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
		}
		fields = setField(fields, key, value)
	}
	return fields, nil
}

// parseJSONObject walks the top-level object token by token; encoding/json maps lose key order.
// Scalars are kept in their textual form, nested values as compact JSON.
func parseJSONObject(body []byte) (domain.CallbackFields, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedCallback)
	}

	var fields domain.CallbackFields
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
		}
		value, err := scalarText(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
		}
		fields = setField(fields, key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	return fields, nil
}

func scalarText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0:
		return "", nil
	case trimmed[0] == '"':
		var s string
		err := json.Unmarshal(trimmed, &s)
		return s, err
	case bytes.Equal(trimmed, []byte("null")):
		return "", nil
	case trimmed[0] == '{' || trimmed[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		// numbers and booleans
		return string(trimmed), nil
	}
}

func setField(fields domain.CallbackFields, key, value string) domain.CallbackFields {
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Value = value
			return fields
		}
	}
	return append(fields, domain.CallbackField{Key: key, Value: value})
}
