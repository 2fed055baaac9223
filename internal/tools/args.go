package tools

import (
	"fmt"
	"math"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// decodeArgs validates args against the shape of out and fills it.
// Unknown keys, mistyped values and fractional numbers for integer
// fields are rejected.
func decodeArgs(args map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.DecodeHookFuncType(integerHook),
		ErrorUnused: true,
		TagName:     "json",
		Result:      out,
	})
	if err != nil {
		return err
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return decoder.Decode(args)
}

// integerHook stops mapstructure from truncating 2.5 into 2 and saturates
// values outside the int range, which a plain conversion would wrap.
func integerHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		return saturate(v)
	case float32:
		return saturate(float64(v))
	case uint64:
		if v > math.MaxInt {
			return math.MaxInt, nil
		}
	}
	return data, nil
}

// saturate converts a whole float to int, clamping at the int bounds.
func saturate(v float64) (interface{}, error) {
	switch {
	case v != math.Trunc(v):
		return nil, fmt.Errorf("expected an integer, got %v", v)
	case v >= float64(math.MaxInt):
		return math.MaxInt, nil
	case v <= float64(math.MinInt):
		return math.MinInt, nil
	}
	return int(v), nil
}
