package cache

import (
	"sort"
	"sync"
)

// Memory is an in-process normalized cache guarded by a readers-writer lock.
type Memory struct {
	policies *Policies

	mu      sync.RWMutex
	records map[string]Fragment
	roots   map[string]struct{}
}

var _ Port = (*Memory)(nil)

// NewMemory returns an empty cache that identifies records with policies.
func NewMemory(policies *Policies) *Memory {
	return &Memory{
		policies: policies,
		records:  make(map[string]Fragment),
		roots:    make(map[string]struct{}),
	}
}

// Identify implements Port.
func (m *Memory) Identify(f Fragment) (string, error) {
	return m.policies.Identify(f)
}

// Typename implements Port.
func (m *Memory) Typename(f Fragment) string {
	return m.policies.Typename(f)
}

// Read implements Reader.
func (m *Memory) Read(id string) (Fragment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tx().Read(id)
}

// Write implements Tx.
func (m *Memory) Write(id string, f Fragment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tx().Write(id, f)
}

// Modify implements Tx.
func (m *Memory) Modify(id string, fn func(f Fragment) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().Modify(id, fn)
}

// Evict implements Tx.
func (m *Memory) Evict(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().Evict(id)
}

// Retain implements Tx.
func (m *Memory) Retain(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tx().Retain(id)
}

// Batch implements Port.
func (m *Memory) Batch(fn func(tx Tx)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.tx())
}

// View implements Port.
func (m *Memory) View(fn func(r Reader)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.tx())
}

// WriteTree implements Port.
func (m *Memory) WriteTree(f Fragment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx().writeTree(f)
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// IDs returns the stored record ids in sorted order.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GC implements Port.
func (m *Memory) GC() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	reachable := make(map[string]struct{}, len(m.records))
	var stack []string
	for id := range m.roots {
		stack = append(stack, id)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := reachable[id]; seen {
			continue
		}
		rec, ok := m.records[id]
		if !ok {
			continue
		}
		reachable[id] = struct{}{}
		walkRefs(rec, func(ref string) {
			stack = append(stack, ref)
		})
	}

	evicted := 0
	for id := range m.records {
		if _, ok := reachable[id]; !ok {
			delete(m.records, id)
			evicted++
		}
	}
	for id := range m.roots {
		if _, ok := m.records[id]; !ok {
			delete(m.roots, id)
		}
	}
	for id, rec := range m.records {
		if pruned, changed := pruneValue(map[string]any(rec), m.records); changed {
			m.records[id] = Fragment(pruned.(map[string]any))
		}
	}
	return evicted
}

func (m *Memory) tx() memTx {
	return memTx{m: m}
}

// memTx operates on the records of m without locking; callers hold m.mu.
type memTx struct {
	m *Memory
}

func (t memTx) Read(id string) (Fragment, bool) {
	rec, ok := t.m.records[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (t memTx) Write(id string, f Fragment) {
	t.m.records[id] = f.Clone()
}

func (t memTx) Modify(id string, fn func(f Fragment) bool) bool {
	rec, ok := t.m.records[id]
	if !ok {
		return false
	}
	working := rec.Clone()
	if fn(working) {
		t.m.records[id] = working
	}
	return true
}

func (t memTx) Evict(id string) bool {
	_, ok := t.m.records[id]
	delete(t.m.records, id)
	delete(t.m.roots, id)
	return ok
}

func (t memTx) Retain(id string) {
	t.m.roots[id] = struct{}{}
}

// writeTree stores f and every identifiable descendant. A stored record that
// is strictly newer (by updatedAt) than the incoming one is kept as is.
func (t memTx) writeTree(f Fragment) (string, error) {
	id, err := t.m.policies.Identify(f)
	if err != nil {
		return "", err
	}
	flat := make(Fragment, len(f))
	for k, v := range f {
		nv, err := t.normalize(v)
		if err != nil {
			return "", err
		}
		flat[k] = nv
	}
	if name := t.m.policies.Typename(f); name != "" {
		flat[TypenameField] = name
	}
	existing, ok := t.m.records[id]
	if ok && Newer(existing, flat) {
		return id, nil
	}
	merged := make(Fragment, len(existing)+len(flat))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range flat {
		merged[k] = v
	}
	t.m.records[id] = merged
	return id, nil
}

func (t memTx) normalize(v any) (any, error) {
	if _, ok := refOf(v); ok {
		return v, nil
	}
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			nv, err := t.normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case []string:
		return cloneValue(x), nil
	}
	obj, ok := asMap(v)
	if !ok {
		return v, nil
	}
	child := Fragment(obj)
	if t.m.policies.Identifiable(child) {
		id, err := t.writeTree(child)
		if err != nil {
			return nil, err
		}
		return Ref{ID: id}, nil
	}
	out := make(map[string]any, len(obj))
	for k, item := range obj {
		nv, err := t.normalize(item)
		if err != nil {
			return nil, err
		}
		out[k] = nv
	}
	return out, nil
}

// Newer reports whether existing carries a strictly greater updatedAt than incoming.
func Newer(existing, incoming Fragment) bool {
	have, ok := existing.Int64("updatedAt")
	if !ok {
		return false
	}
	want, ok := incoming.Int64("updatedAt")
	if !ok {
		return false
	}
	return have > want
}

func walkRefs(v any, visit func(id string)) {
	if id, ok := refOf(v); ok {
		visit(id)
		return
	}
	switch x := v.(type) {
	case Fragment:
		for _, item := range x {
			walkRefs(item, visit)
		}
	case map[string]any:
		for _, item := range x {
			walkRefs(item, visit)
		}
	case []any:
		for _, item := range x {
			walkRefs(item, visit)
		}
	}
}

// pruneValue drops references to missing records from lists. It reports
// whether anything changed so untouched records keep their identity.
func pruneValue(v any, records map[string]Fragment) (any, bool) {
	switch x := v.(type) {
	case Fragment:
		out, changed := pruneValue(map[string]any(x), records)
		return out, changed
	case map[string]any:
		changed := false
		var out map[string]any
		for k, item := range x {
			nv, c := pruneValue(item, records)
			if !c {
				continue
			}
			if out == nil {
				out = make(map[string]any, len(x))
				for kk, vv := range x {
					out[kk] = vv
				}
			}
			out[k] = nv
			changed = true
		}
		if !changed {
			return x, false
		}
		return out, true
	case []any:
		changed := false
		out := make([]any, 0, len(x))
		for _, item := range x {
			if id, ok := refOf(item); ok {
				if _, exists := records[id]; !exists {
					changed = true
					continue
				}
				out = append(out, item)
				continue
			}
			nv, c := pruneValue(item, records)
			if c {
				changed = true
			}
			out = append(out, nv)
		}
		if !changed {
			return x, false
		}
		return out, true
	default:
		return v, false
	}
}
