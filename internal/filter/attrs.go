package filter

import "github.com/wepe912/openldap/internal/models"

// AttributeInstance is one attribute on an entry, as seen by the
// evaluator: its own description plus parallel raw/normalized value
// sequences (spec.md §3's invariant).
type AttributeInstance struct {
	Desc       string
	Raw        []string
	Normalized []string
}

// AttrsCursor streams the attribute instances on an entry whose
// description is the query description or a subtype of it, in the
// entry's insertion order. It mirrors attrs_find's "call again with
// a_next" pattern from filterentry.c as a pull-based iterator instead of
// a linked-list walk (spec.md §4.7, §9).
type AttrsCursor struct {
	entry *models.Entry
	order []string
	pos   int
	query string
	reg   SchemaRegistry
}

// NewAttrsCursor returns a cursor over entry's attributes matching query
// (query itself, or any subtype of it per reg).
func NewAttrsCursor(entry *models.Entry, query string, reg SchemaRegistry) *AttrsCursor {
	return &AttrsCursor{entry: entry, order: entry.AttributeOrder, query: query, reg: reg}
}

// Next returns the next matching attribute instance, or ok=false once the
// cursor is exhausted. Idempotent across repeated exhaustion calls.
func (c *AttrsCursor) Next() (AttributeInstance, bool) {
	for c.pos < len(c.order) {
		desc := c.order[c.pos]
		c.pos++

		if !subtypeMatch(c.reg, desc, c.query) {
			continue
		}

		raw := c.entry.Attributes[desc]
		if len(raw) == 0 {
			continue
		}
		norm := c.entry.NormalizedAttributes[desc]
		if len(norm) != len(raw) {
			norm = raw
		}
		return AttributeInstance{Desc: desc, Raw: raw, Normalized: norm}, true
	}
	return AttributeInstance{}, false
}

// subtypeMatch reports whether desc is query or a subtype of it. With a
// nil registry (tests exercising the cursor in isolation), only exact
// (case-folded) matches count.
func subtypeMatch(reg SchemaRegistry, desc, query string) bool {
	if reg == nil {
		return equalFold(desc, query)
	}
	return reg.IsSubtype(desc, query)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
