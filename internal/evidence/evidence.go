// Package evidence turns a project manifest into the flat fact map that
// rubrics score.
package evidence

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Evidence maps keys to bool, float64 or string values. Treat it as
// read-only once returned by the collector.
type Evidence map[string]any

// Clone returns a shallow copy, which is a full copy since values are scalars.
func (e Evidence) Clone() Evidence {
	out := make(Evidence, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Keys returns the evidence keys, sorted.
func (e Evidence) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Bool reports a boolean value and whether the key held one.
func (e Evidence) Bool(key string) (value, ok bool) {
	value, ok = e[key].(bool)
	return value, ok
}

// Truthy is true for true, numbers above zero, and non-empty strings that do
// not spell a negative.
func (e Evidence) Truthy(key string) bool {
	switch v := e[key].(type) {
	case bool:
		return v
	case float64:
		return v > 0 && !math.IsNaN(v)
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "false", "0", "no", "none":
			return false
		}
		return true
	}
	return false
}

// Number reads a numeric value. Booleans count as 0/1, numeric strings are
// parsed, anything else is 0. NaN is reported as 0.
func (e Evidence) Number(key string) float64 {
	var n float64
	switch v := e[key].(type) {
	case float64:
		n = v
	case bool:
		if v {
			n = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		n = parsed
	}
	if math.IsNaN(n) {
		return 0
	}
	return n
}

func (e Evidence) String(key string) string {
	switch v := e[key].(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// Map converts the evidence to a plain map for serialisation.
func (e Evidence) Map() map[string]any {
	return map[string]any(e.Clone())
}

// FromMap normalises an arbitrary map (for example decoded JSON) into
// Evidence, dropping values that are not scalars.
func FromMap(in map[string]any) Evidence {
	out := make(Evidence, len(in))
	for k, v := range in {
		if nv, ok := Normalize(v); ok {
			out[k] = nv
		}
	}
	return out
}

// Normalize converts a scalar to bool, float64 or string.
func Normalize(v any) (any, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		return x, true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String(), true
		}
		return f, true
	}
	return nil, false
}

// raise sets key to v unless that would lower what is already recorded.
func (e Evidence) raise(key string, v any) {
	existing, ok := e[key]
	if !ok {
		e[key] = v
		return
	}
	switch cur := existing.(type) {
	case bool:
		if !cur {
			e[key] = v
		}
	case float64:
		if n, isNum := v.(float64); isNum && n > cur {
			e[key] = n
		}
	case string:
		if cur == "" {
			e[key] = v
		}
	}
}
