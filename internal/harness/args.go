package harness

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/deployfin/internal/datemath"
)

// args wraps the decoded YAML arguments of one flow step.
type args map[string]any

func (a args) has(key string) bool {
	_, ok := a[key]
	return ok
}

func (a args) stringArg(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q: expected string, got %T", key, v)
	}
	return s, nil
}

func (a args) boolArg(key string) (bool, error) {
	v, ok := a[key]
	if !ok {
		return false, fmt.Errorf("missing argument %q", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("argument %q: expected bool, got %T", key, v)
	}
	return b, nil
}

func (a args) intArg(key string) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("argument %q: expected integer, got %T", key, v)
	}
	return n, nil
}

func (a args) dateArg(key string) (time.Time, error) {
	v, ok := a[key]
	if !ok {
		return time.Time{}, fmt.Errorf("missing argument %q", key)
	}
	switch d := v.(type) {
	case time.Time:
		return datemath.Day(d), nil
	case string:
		t, err := datemath.ParseDate(d)
		if err != nil {
			return time.Time{}, fmt.Errorf("argument %q: %w", key, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("argument %q: expected date, got %T", key, v)
	}
}

func (a args) decimalArg(key string) (decimal.Decimal, error) {
	v, ok := a[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("missing argument %q", key)
	}
	d, err := toDecimal(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("argument %q: %w", key, err)
	}
	return d, nil
}

// optional helpers return nil when the key is absent.

func (a args) optString(key string) (*string, error) {
	if !a.has(key) {
		return nil, nil
	}
	s, err := a.stringArg(key)
	return &s, err
}

func (a args) optBool(key string) (*bool, error) {
	if !a.has(key) {
		return nil, nil
	}
	b, err := a.boolArg(key)
	return &b, err
}

func (a args) optDate(key string) (*time.Time, error) {
	if !a.has(key) {
		return nil, nil
	}
	t, err := a.dateArg(key)
	return &t, err
}

func (a args) optDecimal(key string) (*decimal.Decimal, error) {
	if !a.has(key) {
		return nil, nil
	}
	d, err := a.decimalArg(key)
	return &d, err
}

// toDecimal converts a YAML scalar to a decimal. Strings are parsed so
// amounts can be written as "4812.50".
func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case uint64:
		return decimal.NewFromString(strconv.FormatUint(n, 10))
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("non-finite number %v", n)
		}
		return decimal.NewFromFloat(n), nil
	case string:
		return decimal.NewFromString(n)
	case json.Number:
		return decimal.NewFromString(n.String())
	case decimal.Decimal:
		return n, nil
	default:
		return decimal.Zero, fmt.Errorf("expected number, got %T", v)
	}
}

// normalizeValue converts decoded YAML into values canon.Marshal accepts.
// Binary floats become json.Number and timestamps become civil dates.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case float64:
		return json.Number(strconv.FormatFloat(val, 'f', -1, 64))
	case uint64:
		return json.Number(strconv.FormatUint(val, 10))
	case time.Time:
		return val.Format(datemath.DateLayout)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return val
	}
}

// normalizeArgs returns a canonical-safe copy of step arguments.
func normalizeArgs(a map[string]any) map[string]any {
	if a == nil {
		return map[string]any{}
	}
	return normalizeValue(a).(map[string]any)
}
