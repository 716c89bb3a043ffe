package core

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// timestampLayout is the fixed microsecond-precision form used for every
// temporal literal.
const timestampLayout = "2006-01-02 15:04:05.000000"

// maxEncodeDepth bounds recursive re-encoding so a registry encoder that
// returns its own input cannot loop forever.
const maxEncodeDepth = 32

// Encoder converts a value of an application type into either a SQL
// literal fragment or another value the registry can encode further.
// Returning a string from Encode means the string is encoded as a SQL
// string literal, not spliced in raw.
type Encoder interface {
	Encode(value any) (any, error)
}

// EncoderFunc adapts a plain function to the Encoder interface.
type EncoderFunc func(value any) (any, error)

func (f EncoderFunc) Encode(value any) (any, error) { return f(value) }

// Registry maps runtime types to encoders. The zero value is not usable;
// call NewRegistry. A nil *Registry behaves as an empty one.
type Registry struct {
	mu       sync.RWMutex
	encoders map[reflect.Type]Encoder
}

func NewRegistry() *Registry {
	return &Registry{encoders: make(map[reflect.Type]Encoder)}
}

// Register installs enc for the dynamic type of sample, replacing any
// previous encoder for that type.
func (r *Registry) Register(sample any, enc Encoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoders[reflect.TypeOf(sample)] = enc
}

// RegisterFunc is Register with a bare function.
func (r *Registry) RegisterFunc(sample any, fn func(value any) (any, error)) {
	r.Register(sample, EncoderFunc(fn))
}

func (r *Registry) lookup(t reflect.Type) (Encoder, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	enc, ok := r.encoders[t]
	return enc, ok
}

// EncodeLiteral renders value as an injection-safe SQL literal. Strings
// are single-quoted with embedded quotes doubled, temporal and UUID values
// take a quoted textual form, iterables become a parenthesized list, and
// anything else resolves through the registry (recursively, so an encoder
// may return another encodable value such as an enum's name).
func EncodeLiteral(value any, reg *Registry) (string, error) {
	return encodeLiteral(value, reg, 0)
}

func encodeLiteral(value any, reg *Registry, depth int) (string, error) {
	if depth > maxEncodeDepth {
		return "", NewError(CodeNoEncoderForType, "encoder recursion limit exceeded for %T", value)
	}
	switch v := value.(type) {
	case nil:
		return "null", nil
	case string:
		return quoteString(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case time.Time:
		return "'" + v.Format(timestampLayout) + "'", nil
	case uuid.UUID:
		return "'" + v.String() + "'", nil
	case []byte:
		return quoteString(string(v)), nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return encodeIterable(rv, reg, depth)
	}

	if enc, ok := reg.lookup(reflect.TypeOf(value)); ok {
		next, err := enc.Encode(value)
		if err != nil {
			return "", err
		}
		return encodeLiteral(next, reg, depth+1)
	}

	// Enumeration-style types encode by name.
	if s, ok := value.(fmt.Stringer); ok {
		return quoteString(s.String()), nil
	}

	return "", NewError(CodeNoEncoderForType, "no encoder registered for type %T", value)
}

func encodeIterable(rv reflect.Value, reg *Registry, depth int) (string, error) {
	var sb strings.Builder
	sb.WriteByte('(')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		elem, err := encodeLiteral(rv.Index(i).Interface(), reg, depth+1)
		if err != nil {
			return "", err
		}
		sb.WriteString(elem)
	}
	sb.WriteByte(')')
	return sb.String(), nil
}

// quoteString single-quotes s, doubling embedded quotes. The common case
// of no embedded quote skips the replacement scan.
func quoteString(s string) string {
	if !strings.ContainsRune(s, '\'') {
		return "'" + s + "'"
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ResolveNative reduces value to something a database driver accepts as a
// prepared-statement argument. Built-in primitives, temporal values, UUIDs
// and byte slices pass through unchanged; everything else resolves through
// the registry, recursively, with enumeration-style Stringers falling back
// to their name.
func ResolveNative(value any, reg *Registry) (any, error) {
	return resolveNative(value, reg, 0)
}

func resolveNative(value any, reg *Registry, depth int) (any, error) {
	if depth > maxEncodeDepth {
		return nil, NewError(CodeNoEncoderForType, "encoder recursion limit exceeded for %T", value)
	}
	switch value.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		[]byte, time.Time, uuid.UUID:
		return value, nil
	}

	if enc, ok := reg.lookup(reflect.TypeOf(value)); ok {
		next, err := enc.Encode(value)
		if err != nil {
			return nil, err
		}
		return resolveNative(next, reg, depth+1)
	}

	if s, ok := value.(fmt.Stringer); ok {
		return s.String(), nil
	}

	return nil, NewError(CodeNoEncoderForType, "no encoder registered for type %T", value)
}

// isIterable reports whether value expands to one native placeholder per
// element. Strings and byte slices stay scalar.
func isIterable(value any) (reflect.Value, bool) {
	switch value.(type) {
	case nil, string, []byte:
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv, true
	}
	return reflect.Value{}, false
}
