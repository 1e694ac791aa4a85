package idmap

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Namespace identifies one wrapped entity type inside a Cache.
// Obtain one with Cache.Register or implicitly through Wrap.
type Namespace struct {
	token uint64
	name  string
}

func (n Namespace) Name() string { return n.name }

// IsZero reports whether n was never registered.
func (n Namespace) IsZero() bool { return n.token == 0 }

// Key addresses one cache slot. Two keys are equal only when both the
// namespace and the normalized identity match.
type Key struct {
	NS Namespace
	ID string
}

// String is "<token>:<id>". Tokens are decimal so the first ':' always splits.
func (k Key) String() string {
	return strconv.FormatUint(k.NS.token, 10) + ":" + k.ID
}

// identityOf normalizes an identity attribute value.
// ok is false for nil and zero values ("", 0, false, empty slices).
func identityOf(v any) (id string, ok bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, x != ""
	case []byte:
		return string(x), len(x) > 0
	case int:
		return strconv.Itoa(x), x != 0
	case int8, int16, int32, int64:
		n := reflect.ValueOf(x).Int()
		return strconv.FormatInt(n, 10), n != 0
	case uint, uint8, uint16, uint32, uint64, uintptr:
		n := reflect.ValueOf(x).Uint()
		return strconv.FormatUint(n, 10), n != 0
	case float32:
		return floatIdentity(float64(x))
	case float64:
		return floatIdentity(x)
	case bool:
		return "true", x
	case fmt.Stringer:
		rv := reflect.ValueOf(x)
		if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
			return "", false
		}
		s := x.String()
		return s, s != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		if rv.Len() == 0 {
			return "", false
		}
	}
	if rv.IsZero() {
		return "", false
	}
	return fmt.Sprint(v), true
}

// floatIdentity prints integral floats without a fraction so that 5.0 (a JSON
// decoded number) and 5 address the same slot.
func floatIdentity(f float64) (string, bool) {
	if f == 0 || math.IsNaN(f) {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}
