package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/wepe912/openldap/internal/filter"
	"github.com/wepe912/openldap/internal/matchrule"
)

// attributeType is the registry's internal record for one attribute
// description: its matching rules and its direct supertype, if any.
type attributeType struct {
	desc       string
	equality   string
	ordering   string
	substr     string
	approx     string
	supertype  string
}

// Registry resolves attribute descriptions to schema metadata and
// recognizes the well-known operational descriptors the evaluator special
// cases. It implements both filter.SchemaRegistry (rule/subtype
// resolution) and filter.ValueMatcher (actual comparison, delegated to
// internal/matchrule) since both are schema-driven lookups over the same
// table.
type Registry struct {
	types     map[string]attributeType
	wellKnown map[string]filter.WellKnownDescriptor
}

// NewRegistry builds the built-in attribute type table covering the
// descriptions this module's models package assumes: cn, sn, uid, mail,
// member, memberOf, objectClass, description, ou, dc, createTimestamp,
// modifyTimestamp; generalized from filter_compiler.go's hard-coded
// "objectclass" and isComputedAttribute special cases.
func NewRegistry() *Registry {
	r := &Registry{
		types:     make(map[string]attributeType),
		wellKnown: make(map[string]filter.WellKnownDescriptor),
	}

	add := func(desc, equality, ordering, substr, approx, supertype string) {
		r.types[strings.ToLower(desc)] = attributeType{
			desc: desc, equality: equality, ordering: ordering,
			substr: substr, approx: approx, supertype: supertype,
		}
	}

	add("name", matchrule.CaseIgnoreMatch, matchrule.CaseIgnoreOrderingMatch, matchrule.CaseIgnoreSubstringsMatch, matchrule.CaseIgnoreMatch, "")
	add("cn", matchrule.CaseIgnoreMatch, matchrule.CaseIgnoreOrderingMatch, matchrule.CaseIgnoreSubstringsMatch, matchrule.CaseIgnoreMatch, "name")
	add("sn", matchrule.CaseIgnoreMatch, matchrule.CaseIgnoreOrderingMatch, matchrule.CaseIgnoreSubstringsMatch, matchrule.CaseIgnoreMatch, "name")
	add("ou", matchrule.CaseIgnoreMatch, matchrule.CaseIgnoreOrderingMatch, matchrule.CaseIgnoreSubstringsMatch, matchrule.CaseIgnoreMatch, "name")
	add("uid", matchrule.CaseIgnoreMatch, matchrule.CaseIgnoreOrderingMatch, matchrule.CaseIgnoreSubstringsMatch, "", "")
	add("mail", matchrule.CaseIgnoreMatch, matchrule.CaseIgnoreOrderingMatch, matchrule.CaseIgnoreSubstringsMatch, "", "")
	add("description", matchrule.CaseIgnoreMatch, matchrule.CaseIgnoreOrderingMatch, matchrule.CaseIgnoreSubstringsMatch, "", "")
	add("dc", matchrule.CaseIgnoreMatch, matchrule.CaseIgnoreOrderingMatch, matchrule.CaseIgnoreSubstringsMatch, "", "")
	add("objectclass", matchrule.CaseIgnoreMatch, "", "", "", "")
	add("member", matchrule.DistinguishedNameMatch, "", "", "", "")
	add("memberof", matchrule.DistinguishedNameMatch, "", "", "", "")
	add("createtimestamp", matchrule.GeneralizedTimeMatch, matchrule.GeneralizedTimeOrderingMatch, "", "", "")
	add("modifytimestamp", matchrule.GeneralizedTimeMatch, matchrule.GeneralizedTimeOrderingMatch, "", "", "")
	add("entrydn", matchrule.DistinguishedNameMatch, "", "", matchrule.DistinguishedNameMatch, "")

	r.wellKnown["entrydn"] = filter.EntryDN
	r.wellKnown["hassubordinates"] = filter.HasSubordinates
	r.wellKnown["subschemasubentry"] = filter.SubschemaSubentry

	return r
}

// Resolve implements filter.SchemaRegistry.
func (r *Registry) Resolve(desc string) (filter.AttributeType, bool) {
	at, ok := r.types[strings.ToLower(desc)]
	if !ok {
		return filter.AttributeType{}, false
	}
	return filter.AttributeType{
		Desc: at.desc, Equality: at.equality, Ordering: at.ordering,
		Substr: at.substr, Approx: at.approx,
	}, true
}

// IsSubtype implements filter.SchemaRegistry: the relation is reflexive
// and transitive over the supertype chain built by NewRegistry.
func (r *Registry) IsSubtype(child, desc string) bool {
	child, desc = strings.ToLower(child), strings.ToLower(desc)
	for i := 0; i < len(r.types)+1; i++ {
		if child == desc {
			return true
		}
		at, ok := r.types[child]
		if !ok || at.supertype == "" {
			return false
		}
		child = strings.ToLower(at.supertype)
	}
	return false
}

// WellKnown implements filter.SchemaRegistry.
func (r *Registry) WellKnown(desc string) (filter.WellKnownDescriptor, bool) {
	wk, ok := r.wellKnown[strings.ToLower(desc)]
	return wk, ok
}

// RuleUsableWith implements filter.SchemaRegistry: a rule is usable with
// an attribute type if it is configured as one of that type's four
// matching rules (spec.md §6's mr_usable_with_at).
func (r *Registry) RuleUsableWith(rule, desc string) bool {
	at, ok := r.Resolve(desc)
	if !ok {
		return false
	}
	return at.Equality == rule || at.Ordering == rule || at.Substr == rule || at.Approx == rule
}

// Match implements filter.ValueMatcher by delegating to the named rule's
// comparison in internal/matchrule.
func (r *Registry) Match(_ context.Context, _, rule string, stored, asserted filter.Value) (int, error) {
	if rule == "" {
		return 0, fmt.Errorf("schema: no matching rule supplied")
	}
	return matchrule.Compare(rule, stored.Raw, asserted.Raw)
}

// MatchSubstrings implements filter.ValueMatcher.
func (r *Registry) MatchSubstrings(_ context.Context, _, rule string, stored filter.Value, assertion filter.SubstringAssertion) (int, error) {
	if rule == "" {
		return 0, fmt.Errorf("schema: no substrings matching rule supplied")
	}
	seg := matchrule.Segments{
		Initial: assertion.Initial, HasInitial: assertion.HasInitial,
		Any:   assertion.Any,
		Final: assertion.Final, HasFinal: assertion.HasFinal,
	}
	return matchrule.Substrings(rule, stored.Raw, seg)
}

// Normalize implements filter.ValueMatcher.
func (r *Registry) Normalize(_ context.Context, _, rule, value string) (string, error) {
	if rule == "" {
		return "", fmt.Errorf("schema: no matching rule supplied")
	}
	return matchrule.Normalize(rule, value)
}
