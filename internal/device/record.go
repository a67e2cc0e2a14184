package device

import "fmt"

// Record is one loosely-typed configuration entry as returned by the device
// SDK. Values may be strings, lists, or missing entirely depending on the
// dump format, so accessors take an ordered list of candidate keys.
type Record map[string]any

// Name returns the record's name field, or "" if absent.
func (r Record) Name() string {
	return r.FirstString("name")
}

// FirstString returns the first non-empty value among the candidate keys,
// rendered as a string. A list value yields its first element.
func (r Record) FirstString(keys ...string) string {
	for _, key := range keys {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		if s := scalarString(v); s != "" {
			return s
		}
	}
	return ""
}

// StringList returns the first present candidate key as a string slice. A
// bare string becomes a one-element slice; scalars are stringified.
func (r Record) StringList(keys ...string) []string {
	for _, key := range keys {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val == "" {
				continue
			}
			return []string{val}
		case []string:
			if len(val) == 0 {
				continue
			}
			return val
		case []any:
			if len(val) == 0 {
				continue
			}
			out := make([]string, 0, len(val))
			for _, item := range val {
				if s := scalarString(item); s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
		return ""
	case []any:
		if len(val) > 0 {
			return scalarString(val[0])
		}
		return ""
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
