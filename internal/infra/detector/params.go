package detector

import (
	"fmt"
	"math"
)

// Params holds the keys of a detector block other than "enabled".
type Params map[string]any

// Float returns the numeric parameter key, or def when it is absent.
func (p Params) Float(key string, def float64) (float64, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidParam, key, raw)
	}
}

// Int returns the integer parameter key, or def when it is absent. Floats
// without a fractional part are accepted.
func (p Params) Int(key string, def int) (int, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidParam, key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidParam, key, raw)
	}
}

// Strings returns the string list parameter key, or def when it is absent.
func (p Params) Strings(key string, def []string) ([]string, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a string, got %T", ErrInvalidParam, key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a list of strings, got %T", ErrInvalidParam, key, raw)
	}
}

// Confidence returns the optional "confidence" override for a detector.
func (p Params) Confidence(def float64) (float64, error) {
	c, err := p.Float("confidence", def)
	if err != nil {
		return 0, err
	}
	if c < 0 || c > 1 || math.IsNaN(c) {
		return 0, fmt.Errorf("%w: confidence must be within [0, 1], got %v", ErrInvalidParam, c)
	}
	return c, nil
}
