package schema

import (
	"context"
	"strings"

	"github.com/wepe912/openldap/internal/dn"
	"github.com/wepe912/openldap/internal/models"
)

// PopulateNormalized fills entry.NormalizedAttributes with the
// registry-normalized form of every raw value on entry, keyed the same
// way as entry.Attributes so internal/filter.AttrsCursor can return
// parallel raw/normalized slices.
//
// This lives here rather than as an Entry method because internal/schema
// already imports internal/models; giving Entry a reciprocal import of
// schema would cycle.
func PopulateNormalized(ctx context.Context, entry *models.Entry, reg *Registry) {
	if entry.NormalizedAttributes == nil {
		entry.NormalizedAttributes = make(map[string][]string)
	}

	for _, desc := range entry.AttributeOrder {
		raw := entry.Attributes[desc]
		if len(raw) == 0 {
			continue
		}

		at, ok := reg.Resolve(desc)
		rule := ""
		if ok {
			rule = at.Equality
		}
		if rule == "" {
			// No known equality rule: fall back to case-folding, the
			// same default the teacher's original in-memory Matches
			// used for every attribute (internal/schema/filter.go).
			norm := make([]string, len(raw))
			for i, v := range raw {
				norm[i] = strings.ToLower(v)
			}
			entry.NormalizedAttributes[desc] = norm
			continue
		}

		norm := make([]string, len(raw))
		for i, v := range raw {
			n, err := reg.Normalize(ctx, desc, rule, v)
			if err != nil {
				n = strings.ToLower(v)
			}
			norm[i] = n
		}
		entry.NormalizedAttributes[desc] = norm
	}

	entry.NormalizedDN = dn.Normalize(entry.DN)
}
