package filter

import (
	"context"

	"github.com/wepe912/openldap/internal/models"
)

// AccessOp names the LDAP operation an access check is performed for. The
// evaluator only ever asks for OpSearch, but the type exists so the
// AccessOracle contract reads the same as the directory's other
// operations (bind, compare, modify) would, matching spec.md §6.
type AccessOp int

const (
	OpSearch AccessOp = iota
)

// AccessQuery describes one access-control decision: may the current
// subject see attribute Desc (optionally restricted to Value) on Entry,
// for the purpose of Op.
type AccessQuery struct {
	Op    AccessOp
	Entry *models.Entry
	Desc  string
	// Value is optional; nil means "any value of Desc", used by PRESENT
	// and SUBSTRINGS checks.
	Value *string
}

// AccessOracle decides whether the operation's subject may see an
// attribute or value on an entry. Implementations are expected to resolve
// the subject from ctx.
type AccessOracle interface {
	Allowed(ctx context.Context, q AccessQuery) bool
}

// AttributeType is what the SchemaRegistry resolves an attribute
// description to: the matching rules available for it, and its subtype
// relationship to other descriptions.
type AttributeType struct {
	Desc       string
	Equality   string // matching rule name, "" if absent
	Ordering   string
	Substr     string
	Approx     string
}

// SchemaRegistry resolves attribute descriptions to their schema
// metadata, recognizes well-known operational descriptors, and reports
// matching-rule applicability.
type SchemaRegistry interface {
	// Resolve returns the AttributeType for desc, and whether it is
	// known to the registry at all (an unknown type has no matching
	// rules and is its own only subtype).
	Resolve(desc string) (AttributeType, bool)

	// IsSubtype reports whether child is desc or a (transitive) subtype
	// of desc.
	IsSubtype(child, desc string) bool

	// WellKnown reports whether desc names one of the special
	// descriptors (entryDN, hasSubordinates, subschemaSubentry) and, if
	// so, which.
	WellKnown(desc string) (WellKnownDescriptor, bool)

	// RuleUsableWith reports whether the named matching rule may be
	// applied to values of the given attribute type, per mr_usable_with_at
	// in spec.md §6.
	RuleUsableWith(rule, desc string) bool
}

// WellKnownDescriptor enumerates the sentinels with special evaluator
// semantics (spec.md §3).
type WellKnownDescriptor int

const (
	NotWellKnown WellKnownDescriptor = iota
	EntryDN
	HasSubordinates
	SubschemaSubentry
)

// BackendHook is the optional collaborator supplying computed attributes
// the evaluator cannot derive from the entry alone. Today this is limited
// to hasSubordinates.
type BackendHook interface {
	HasSubordinates(ctx context.Context, entry *models.Entry) (bool, error)
}

// Value is a stored-or-asserted value passed to a ValueMatcher. Raw is the
// value as stored/asserted; Normalized is the schema-normalized form, used
// when the comparison rule equals the attribute's own equality rule
// (spec.md §4.7, §9 "raw vs normalized values").
type Value struct {
	Raw        string
	Normalized string
}

// ValueMatcher applies one named matching rule to a stored value vs. an
// asserted value, returning a strcmp-style ordering (0 equal, negative if
// stored < asserted, positive if stored > asserted).
type ValueMatcher interface {
	Match(ctx context.Context, desc, rule string, stored, asserted Value) (int, error)
	// MatchSubstrings applies rule as a substring matching rule.
	MatchSubstrings(ctx context.Context, desc, rule string, stored Value, assertion SubstringAssertion) (int, error)
	// Normalize produces the normalized form of an asserted value for
	// desc under rule, used by extensible matching without a fixed
	// descriptor (spec.md §4.5's asserted_value_validate_normalize).
	Normalize(ctx context.Context, desc, rule, value string) (string, error)
}
