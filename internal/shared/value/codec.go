package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// api keeps number literals intact so Int and Double can be told apart
var api = sonic.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
	UseNumber:        true,
}.Froze()

// ErrUnrepresentable is returned when encoding NaN or an infinity
var ErrUnrepresentable = errors.New("value: NaN and infinite doubles have no JSON form")

// Decode parses one JSON token into a Value
func Decode(data []byte) (Value, error) {
	var raw interface{}
	if err := api.Unmarshal(data, &raw); err != nil {
		return Value{}, err
	}
	return FromAny(raw)
}

// Encode writes v as JSON. Map keys are emitted in sorted order.
func Encode(v Value) ([]byte, error) {
	enc, err := v.encodable()
	if err != nil {
		return nil, err
	}
	return api.Marshal(enc)
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	return Encode(v)
}

// FromAny converts a decoded JSON tree (as produced by a UseNumber decoder)
// into a Value. Native Go numeric types are accepted too.
func FromAny(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case string:
		return String(t), nil
	case json.Number:
		return fromNumber(string(t))
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return Double(float64(t)), nil
	case float64:
		return Double(t), nil
	case bool:
		return Bool(t), nil
	case []interface{}:
		arr := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			arr[i] = ev
		}
		return Value{kind: KindArray, arr: arr}, nil
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			m[k] = ev
		}
		return Value{kind: KindMap, m: m}, nil
	case Value:
		return t, nil
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("value: unsupported type %T", raw)
	}
}

// fromNumber applies the integer-before-double precedence
func fromNumber(lit string) (Value, error) {
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return Value{}, fmt.Errorf("value: number %q out of range", lit)
		}
		return Value{}, err
	}
	return Double(f), nil
}

// Interface returns the plain Go form of v: string, int64, float64, bool,
// []interface{}, map[string]interface{} or nil.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindDouble:
		return v.f
	case KindBool:
		return v.b
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, e := range v.m {
			out[k] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

// encodable mirrors Interface but renders doubles as json.Number so that a
// whole-valued Double keeps its ".0" and decodes back as a Double.
func (v Value) encodable() (interface{}, error) {
	switch v.kind {
	case KindDouble:
		lit, err := formatDouble(v.f)
		if err != nil {
			return nil, err
		}
		return json.Number(lit), nil
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, e := range v.arr {
			enc, err := e.encodable()
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case KindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, e := range v.m {
			enc, err := e.encodable()
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	default:
		return v.Interface(), nil
	}
}

func formatDouble(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", ErrUnrepresentable
	}
	lit := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(lit, ".eE") {
		lit += ".0"
	}
	return lit, nil
}
