package cache

import (
	"encoding/json"
	"strconv"
)

// TypenameField carries the GraphQL concrete type of a fragment.
const TypenameField = "__typename"

// Fragment is a partial view of an entity keyed by GraphQL field name.
type Fragment map[string]any

// Ref points at another record in the cache. It encodes as {"__ref": id}.
type Ref struct {
	ID string `json:"__ref"`
}

// Typename returns the fragment's __typename, or "" when absent.
func (f Fragment) Typename() string {
	return f.String(TypenameField)
}

// String returns the field as a string. Numbers are formatted; other types yield "".
func (f Fragment) String(field string) string {
	switch v := f[field].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Int64 returns the field as an integer when it holds a number or numeric string.
func (f Fragment) Int64(field string) (int64, bool) {
	return toInt64(f[field])
}

// Items returns the items list of a paginated collection field such as
// {"items": [...], "nextToken": ...}.
func (f Fragment) Items(field string) []any {
	coll, ok := asMap(f[field])
	if !ok {
		return nil
	}
	items, _ := coll["items"].([]any)
	return items
}

// SetItems replaces the items list of a collection field, creating the
// collection when missing.
func (f Fragment) SetItems(field string, items []any) {
	coll, ok := asMap(f[field])
	if !ok {
		coll = map[string]any{}
	}
	coll["items"] = items
	f[field] = coll
}

// List returns a plain list field such as activeMemberIds or crewShares.
func (f Fragment) List(field string) []any {
	list, _ := f[field].([]any)
	return list
}

// Clone returns a deep copy of the fragment.
func (f Fragment) Clone() Fragment {
	if f == nil {
		return nil
	}
	out := make(Fragment, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

// AsFragment converts a nested object value into a Fragment.
func AsFragment(v any) (Fragment, bool) {
	m, ok := asMap(v)
	if !ok {
		return nil, false
	}
	return Fragment(m), true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Fragment:
		return map[string]any(m), m != nil
	case map[string]any:
		return m, m != nil
	default:
		return nil, false
	}
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case Fragment:
		return map[string]any(x.Clone())
	case map[string]any:
		return map[string]any(Fragment(x).Clone())
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	default:
		return v
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// refOf reports whether v is a cache reference, including the decoded
// {"__ref": id} form.
func refOf(v any) (string, bool) {
	switch r := v.(type) {
	case Ref:
		return r.ID, true
	case *Ref:
		if r == nil {
			return "", false
		}
		return r.ID, true
	}
	m, ok := asMap(v)
	if !ok || len(m) != 1 {
		return "", false
	}
	id, ok := m["__ref"].(string)
	return id, ok
}

// RefID returns the record id when v is a cache reference.
func RefID(v any) (string, bool) {
	return refOf(v)
}
