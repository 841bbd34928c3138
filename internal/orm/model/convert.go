package model

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cast"
)

// SemanticType returns the semantic type name the type mapper understands for V
func SemanticType[V any]() string {
	var zero V
	switch any(zero).(type) {
	case bool:
		return "bool"
	case int:
		return "int"
	case int8:
		return "int8"
	case int16:
		return "int16"
	case int32:
		return "int32"
	case int64:
		return "int64"
	case uint:
		return "uint"
	case uint8:
		return "uint8"
	case uint16:
		return "uint16"
	case uint32:
		return "uint32"
	case uint64:
		return "uint64"
	case float32:
		return "float32"
	case float64:
		return "float64"
	case string:
		return "string"
	case time.Time:
		return "time.Time"
	case []byte:
		return "[]byte"
	default:
		return fmt.Sprintf("%T", zero)
	}
}

// ToStorage converts a field value into what the driver stores. Booleans become 0/1,
// times become epoch milliseconds and the zero time becomes NULL. Unsigned values above
// math.MaxInt64 do not fit an integer column and are rejected.
func ToStorage(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if t {
			return int64(1), nil
		}
		return int64(0), nil
	case time.Time:
		if t.IsZero() {
			return nil, nil
		}
		return t.UnixMilli(), nil
	case uint:
		return unsignedToStorage(uint64(t))
	case uint64:
		return unsignedToStorage(t)
	case int, int8, int16, int32, uint8, uint16, uint32:
		return cast.ToInt64E(t)
	case float32:
		return float64(t), nil
	default:
		return v, nil
	}
}

func unsignedToStorage(u uint64) (interface{}, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("value %d overflows the 64-bit signed integer column", u)
	}
	return int64(u), nil
}

// FromStorage converts a scanned value into V. NULL yields the zero value.
func FromStorage[V any](src interface{}) (V, error) {
	var zero V
	if src == nil {
		return zero, nil
	}

	var (
		out interface{}
		err error
	)
	switch any(zero).(type) {
	case bool:
		out, err = cast.ToBoolE(src)
	case int:
		out, err = cast.ToIntE(src)
	case int8:
		out, err = cast.ToInt8E(src)
	case int16:
		out, err = cast.ToInt16E(src)
	case int32:
		out, err = cast.ToInt32E(src)
	case int64:
		out, err = cast.ToInt64E(src)
	case uint:
		out, err = cast.ToUintE(src)
	case uint8:
		out, err = cast.ToUint8E(src)
	case uint16:
		out, err = cast.ToUint16E(src)
	case uint32:
		out, err = cast.ToUint32E(src)
	case uint64:
		out, err = cast.ToUint64E(src)
	case float32:
		out, err = cast.ToFloat32E(src)
	case float64:
		out, err = cast.ToFloat64E(src)
	case string:
		out, err = cast.ToStringE(src)
	case time.Time:
		var ms int64
		if ms, err = cast.ToInt64E(src); err == nil {
			out = time.UnixMilli(ms)
		}
	case []byte:
		switch b := src.(type) {
		case []byte:
			out = append([]byte(nil), b...)
		case string:
			out = []byte(b)
		default:
			err = fmt.Errorf("unable to cast %#v of type %T to []byte", src, src)
		}
	default:
		v, ok := src.(V)
		if !ok {
			return zero, fmt.Errorf("unable to convert %T to %T", src, zero)
		}
		return v, nil
	}
	if err != nil {
		return zero, fmt.Errorf("converting stored value: %w", err)
	}
	return out.(V), nil
}
