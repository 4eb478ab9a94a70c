package filter

import "sync"

// TempValues is a scoped arena for the normalized strings an Evaluate call
// produces along the way (per-rule normalization of assertion values in
// extensible matching). The original matching-rule dispatch in
// OpenLDAP's filterentry.c allocates and frees these with per-call
// ch_malloc/ch_free pairs; Go has no matching manual-free story, so this
// type plays the same "scoped, bulk-released" role with a slice of the
// retained values, collected during one Evaluate call and dropped by a
// Release deferred at its root, rather than a free-list.
type TempValues struct {
	mu    sync.Mutex
	items []any
}

// NewTempValues starts a fresh scope. Call Release (typically via defer)
// once the owning Evaluate call returns.
func NewTempValues() *TempValues {
	return &TempValues{}
}

// Keep records v as live for the duration of this scope and returns it
// unchanged, so call sites can wrap an allocation in place:
//
//	norm := tv.Keep(strings.ToLower(raw))
func (tv *TempValues) Keep(v string) string {
	tv.mu.Lock()
	tv.items = append(tv.items, v)
	tv.mu.Unlock()
	return v
}

// Release drops every value retained by this scope. Safe to call more
// than once.
func (tv *TempValues) Release() {
	tv.mu.Lock()
	tv.items = nil
	tv.mu.Unlock()
}

// Len reports how many values are currently retained.
func (tv *TempValues) Len() int {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return len(tv.items)
}
