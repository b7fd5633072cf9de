package netclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"unicode"
)

// Decoder turns a response body into a value. v is always a non-nil pointer.
type Decoder interface {
	Decode(data []byte, v any) error
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(data []byte, v any) error

func (f DecoderFunc) Decode(data []byte, v any) error { return f(data, v) }

// Validator is implemented by payloads that check their own shape after
// decoding. A failing Validate counts as a decode failure.
type Validator interface {
	Validate() error
}

// Empty is a payload type for responses whose body is ignored.
type Empty struct{}

// KeyStrategy controls how object keys are mapped between the wire and Go.
type KeyStrategy int

const (
	// UseDefaultKeys leaves keys untouched.
	UseDefaultKeys KeyStrategy = iota
	// SnakeCaseKeys reads snake_case wire keys as camelCase and writes
	// camelCase keys as snake_case.
	SnakeCaseKeys
)

// ParseKeyStrategy accepts "none"/"default" and "snake_to_camel"/"snake_case".
func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "default":
		return UseDefaultKeys, nil
	case "snake_to_camel", "snake_case", "snake":
		return SnakeCaseKeys, nil
	default:
		return UseDefaultKeys, fmt.Errorf("unknown key strategy %q", s)
	}
}

func (k KeyStrategy) String() string {
	if k == SnakeCaseKeys {
		return "snake_case"
	}
	return "default"
}

// JSONDecoder decodes JSON bodies with a configurable key strategy.
type JSONDecoder struct {
	Keys                  KeyStrategy
	DisallowUnknownFields bool
}

func (d JSONDecoder) Decode(data []byte, v any) error {
	if _, ok := v.(*Empty); ok {
		return nil
	}
	if d.Keys == SnakeCaseKeys {
		rewritten, err := rewriteKeys(data, snakeToCamel)
		if err != nil {
			return err
		}
		data = rewritten
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) && !acceptsNull(v) {
		return fmt.Errorf("cannot decode JSON null into %T", v)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if d.DisallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after top-level JSON value")
	}
	return validate(v)
}

// JSONEncoder encodes request bodies with a configurable key strategy.
type JSONEncoder struct {
	Keys KeyStrategy
}

func (e JSONEncoder) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if e.Keys == SnakeCaseKeys {
		return rewriteKeys(data, camelToSnake)
	}
	return data, nil
}

// acceptsNull reports whether v points at a type whose zero value is nil.
func acceptsNull(v any) bool {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return true
	}
	switch rv.Elem().Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	default:
		return false
	}
}

func validate(v any) error {
	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("validate payload: %w", err)
		}
	}
	return nil
}

func rewriteKeys(data []byte, convert func(string) string) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level JSON value")
	}
	return json.Marshal(rewriteValue(tree, convert))
}

func rewriteValue(v any, convert func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make(map[string]any, len(t))
		// keys already in target form win over converted duplicates
		var pending []string
		for _, k := range keys {
			if convert(k) == k {
				out[k] = rewriteValue(t[k], convert)
			} else {
				pending = append(pending, k)
			}
		}
		for _, k := range pending {
			nk := convert(k)
			if _, exists := out[nk]; exists {
				continue
			}
			out[nk] = rewriteValue(t[k], convert)
		}
		return out
	case []any:
		for i := range t {
			t[i] = rewriteValue(t[i], convert)
		}
		return t
	default:
		return v
	}
}

// snakeToCamel maps "first_name" to "firstName". Leading and trailing
// underscores are kept.
func snakeToCamel(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	start, end := 0, len(key)
	for start < end && key[start] == '_' {
		start++
	}
	for end > start && key[end-1] == '_' {
		end--
	}
	if start == end {
		return key
	}

	var b strings.Builder
	b.Grow(len(key))
	b.WriteString(key[:start])
	first := true
	for _, part := range strings.Split(key[start:end], "_") {
		if part == "" {
			continue
		}
		if first {
			b.WriteString(part)
			first = false
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	b.WriteString(key[end:])
	return b.String()
}

// camelToSnake maps "FirstName" to "first_name" and "UserID" to "user_id".
func camelToSnake(key string) string {
	runes := []rune(key)
	var b strings.Builder
	b.Grow(len(key) + 4)
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		if i > 0 && runes[i-1] != '_' {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
