package plan

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Terraform renders nested blocks as a list of objects, even for blocks that
// may only appear once. The accessors below hide that encoding: a key whose
// value is a single-element list of objects is read as that object.

// Has reports whether key is present in cfg with a non-null, non-empty value.
func Has(cfg map[string]any, key string) bool {
	v, ok := cfg[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case string:
		return t != ""
	}
	return true
}

// Bool returns the boolean at key and whether it was present as a bool.
func Bool(cfg map[string]any, key string) (bool, bool) {
	switch t := cfg[key].(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	}
	return false, false
}

// IsTrue reports whether key is present and true.
func IsTrue(cfg map[string]any, key string) bool {
	b, ok := Bool(cfg, key)
	return ok && b
}

// IsFalse reports whether key is present and explicitly false.
func IsFalse(cfg map[string]any, key string) bool {
	b, ok := Bool(cfg, key)
	return ok && !b
}

// String returns the string at key, or "" when absent or not a string.
func String(cfg map[string]any, key string) string {
	s, _ := cfg[key].(string)
	return s
}

// Number returns the numeric value at key and whether one was present.
// Plans decoded with json.Decoder.UseNumber carry json.Number values.
func Number(cfg map[string]any, key string) (float64, bool) {
	switch t := cfg[key].(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// Block returns the first object of the nested block at key, or nil.
func Block(cfg map[string]any, key string) map[string]any {
	blocks := Blocks(cfg, key)
	if len(blocks) == 0 {
		return nil
	}
	return blocks[0]
}

// Blocks returns every object of the nested block at key. A bare object is
// returned as a one-element slice.
func Blocks(cfg map[string]any, key string) []map[string]any {
	switch t := cfg[key].(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// Strings returns the string list at key. A single string is returned as a
// one-element list.
func Strings(cfg map[string]any, key string) []string {
	switch t := cfg[key].(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Tags returns the tag map of a resource, preferring tags_all when present.
// Keys are returned as-is; lookups should use TagValue for case folding.
func Tags(cfg map[string]any) map[string]string {
	out := make(map[string]string)
	for _, key := range []string{"tags", "tags_all"} {
		m, ok := cfg[key].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}

// TagValue returns the value of the first tag whose key case-insensitively
// matches one of keys. An exact key match wins; otherwise tag keys are tried
// in sorted order so the result does not depend on map iteration.
func TagValue(cfg map[string]any, keys ...string) string {
	tags := Tags(cfg)
	sorted := make([]string, 0, len(tags))
	for k := range tags {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, want := range keys {
		if v, ok := tags[want]; ok {
			return v
		}
		for _, k := range sorted {
			if strings.EqualFold(k, want) {
				return tags[k]
			}
		}
	}
	return ""
}
