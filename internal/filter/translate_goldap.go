package filter

import "github.com/lor00x/goldap/message"

// FromGoldap converts a wire-parsed goldap filter into this package's AST.
// It is the counterpart of the server's legacy serializeFilter: where that
// function flattens a filter to a string for the SQL pre-filter pass, this
// one keeps full fidelity (substrings segments, extensible-match rule and
// dnAttrs) for the exact evaluation pass that follows it.
//
// An unrecognized filter variant degrades to an always-true COMPUTED node
// rather than failing the whole search, matching serializeFilter's
// fallback-to-"(objectClass=*)" behavior for filters neither function
// has a case for.
func FromGoldap(f message.Filter) *Filter {
	if f == nil {
		return &Filter{Kind: Computed, Result: TTrue}
	}

	switch v := f.(type) {
	case message.FilterEqualityMatch:
		return &Filter{Kind: Equality, AVA: AttributeAssertion{Desc: string(v.AttributeDesc()), Value: string(v.AssertionValue())}}

	case message.FilterGreaterOrEqual:
		return &Filter{Kind: GreaterOrEqual, AVA: AttributeAssertion{Desc: string(v.AttributeDesc()), Value: string(v.AssertionValue())}}

	case message.FilterLessOrEqual:
		return &Filter{Kind: LessOrEqual, AVA: AttributeAssertion{Desc: string(v.AttributeDesc()), Value: string(v.AssertionValue())}}

	case message.FilterApproxMatch:
		return &Filter{Kind: Approx, AVA: AttributeAssertion{Desc: string(v.AttributeDesc()), Value: string(v.AssertionValue())}}

	case message.FilterPresent:
		return &Filter{Kind: Present, Desc: string(v)}

	case message.FilterAnd:
		children := make([]*Filter, 0, len(v))
		for _, sub := range v {
			children = append(children, FromGoldap(sub))
		}
		return &Filter{Kind: And, Children: children}

	case message.FilterOr:
		children := make([]*Filter, 0, len(v))
		for _, sub := range v {
			children = append(children, FromGoldap(sub))
		}
		return &Filter{Kind: Or, Children: children}

	case message.FilterNot:
		return &Filter{Kind: Not, Child: FromGoldap(v.Filter)}

	case message.FilterSubstrings:
		sub := SubstringAssertion{}
		for _, piece := range v.Substrings() {
			switch s := piece.(type) {
			case message.SubstringInitial:
				sub.Initial, sub.HasInitial = string(s), true
			case message.SubstringAny:
				sub.Any = append(sub.Any, string(s))
			case message.SubstringFinal:
				sub.Final, sub.HasFinal = string(s), true
			}
		}
		return &Filter{Kind: Substrings, SubDesc: string(v.Type_()), Substrings: sub}

	case message.FilterExtensibleMatch:
		return &Filter{Kind: Extensible, MRA: MatchingRuleAssertion{
			Desc:    string(v.Type_()),
			Rule:    string(v.MatchingRule()),
			Value:   string(v.MatchValue()),
			DNAttrs: bool(v.DnAttributes()),
		}}

	default:
		return &Filter{Kind: Computed, Result: TTrue}
	}
}
