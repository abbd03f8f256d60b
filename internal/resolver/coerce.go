package resolver

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// coerce converts raw into the declared type of p
func coerce(p models.ParameterSpec, raw any) (any, error) {
	switch p.Type {
	case models.TypeString:
		return toString(raw)
	case models.TypeInteger:
		return toInteger(raw)
	case models.TypeBoolean:
		return toBoolean(raw)
	case models.TypeEnum:
		s, err := toString(raw)
		if err != nil {
			return nil, err
		}
		for _, allowed := range p.AllowedValues {
			if s == allowed {
				return s, nil
			}
		}
		return nil, errNotAllowed
	case models.TypeArray:
		return toArray(raw)
	case models.TypeObject:
		return toObject(raw)
	}
	return nil, fmt.Errorf("unsupported type %q", p.Type)
}

var errNotAllowed = fmt.Errorf("value not allowed")

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case map[string]any, []any:
		return "", fmt.Errorf("cannot use %T as string", raw)
	case json.Number:
		return v.String(), nil
	}
	return cast.ToStringE(raw)
}

func toInteger(raw any) (int64, error) {
	switch v := raw.(type) {
	case bool:
		return 0, fmt.Errorf("cannot use bool as integer")
	case float64:
		return floatToInteger(v)
	case float32:
		return floatToInteger(float64(v))
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	}
	return cast.ToInt64E(raw)
}

// float64 cannot hold MaxInt64 exactly; 2^63 is the first value out of range
const twoTo63 = 1 << 63

func floatToInteger(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%v is not a whole number", v)
	}
	if v >= twoTo63 || v < -twoTo63 {
		return 0, fmt.Errorf("%v is out of the integer range", v)
	}
	return int64(v), nil
}

func toBoolean(raw any) (bool, error) {
	if s, ok := raw.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("%q is not a boolean", s)
	}
	return cast.ToBoolE(raw)
}

// toArray accepts slices, JSON array strings and comma-separated strings
func toArray(raw any) ([]any, error) {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "[") {
			var out []any
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, fmt.Errorf("invalid JSON array: %w", err)
			}
			return out, nil
		}
		out := make([]any, 0)
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	if out, err := cast.ToSliceE(raw); err == nil {
		return out, nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("cannot use %T as array", raw)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// toObject accepts maps and JSON object strings
func toObject(raw any) (map[string]any, error) {
	if s, ok := raw.(string); ok {
		var out map[string]any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("invalid JSON object: %w", err)
		}
		return out, nil
	}
	if out, err := cast.ToStringMapE(raw); err == nil {
		return out, nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("cannot use %T as object", raw)
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, nil
}

// formatScalar renders a coerced value for a path segment or query string
func formatScalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
	return fmt.Sprint(v)
}
