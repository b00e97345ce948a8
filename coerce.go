package relic

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Boolean spellings accepted from text sources. Comparison is
// case-insensitive after trimming. A string in neither set is a
// coercion error; non-string values fall back to truthiness.
var (
	truthyWords = map[string]bool{"true": true, "yes": true, "1": true, "on": true, "t": true, "y": true}
	falsyWords  = map[string]bool{"false": true, "no": true, "0": true, "off": true, "f": true, "n": true, "": true}
)

// Coerce converts a raw request value to the declared type of p. Raw
// values are strings from the URL or decoded media values (JSON
// scalars, arrays, objects). Integers surface as int64 and numbers as
// float64 regardless of source.
func Coerce(raw any, p ParamSpec) (any, error) {
	return coerceValue(raw, p.Type(), p.ItemType())
}

func coerceValue(raw any, typ, item string) (any, error) {
	if strings.ContainsRune(typ, '|') {
		return coerceUnion(raw, strings.Split(typ, "|"))
	}
	switch typ {
	case TypeInteger:
		return asInteger(raw)
	case TypeNumber:
		return asNumber(raw)
	case TypeBoolean:
		return asBoolean(raw)
	case TypeObject:
		return asObject(raw)
	case TypeArray:
		return asArray(raw, item)
	default:
		return asString(raw)
	}
}

// coerceUnion tries each member type in declared order and returns the
// first success. The first failure is reported when nothing matches.
func coerceUnion(raw any, members []string) (any, error) {
	var firstErr error
	for _, member := range members {
		member = strings.TrimSpace(member)
		if member == "" {
			continue
		}
		v, err := coerceValue(raw, member, "")
		if err == nil {
			return v, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("no union member matched")
	}
	return nil, firstErr
}

func asString(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	case bool:
		return strconv.FormatBool(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func asInteger(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", v)
		}
		return n, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to integer", raw)
	}
}

func asNumber(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", v)
		}
		return f, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to number", raw)
	}
}

func asBoolean(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		w := strings.ToLower(strings.TrimSpace(v))
		if truthyWords[w] {
			return true, nil
		}
		if falsyWords[w] {
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", v)
	case nil:
		return false, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case []any:
		return len(v) > 0, nil
	case map[string]any:
		return len(v) > 0, nil
	default:
		return true, nil
	}
}

// asObject passes structured media values through and parses JSON text.
func asObject(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return raw, nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("invalid JSON: %v", err)
	}
	return out, nil
}

// asArray coerces raw into a slice. Strings split on commas with
// elements trimmed and empties dropped, existing slices coerce
// elementwise, and anything else wraps into a one-element array. When
// item is empty the elements pass through unconverted.
func asArray(raw any, item string) (any, error) {
	switch v := raw.(type) {
	case string:
		return coerceElements(splitList(v), item)
	case []any:
		return coerceElements(v, item)
	case []string:
		elems := make([]any, len(v))
		for i, s := range v {
			elems[i] = s
		}
		return coerceElements(elems, item)
	default:
		return coerceElements([]any{raw}, item)
	}
}

// splitList splits comma-separated text, trimming each element and
// dropping empties, so "1,2,,3" and "1, 2, 3" both yield three items.
func splitList(s string) []any {
	parts := strings.Split(s, ",")
	out := make([]any, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func coerceElements(elems []any, item string) (any, error) {
	out := make([]any, 0, len(elems))
	for _, e := range elems {
		if item == "" {
			out = append(out, e)
			continue
		}
		v, err := coerceValue(e, item, "")
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
