// Package filter implements the LDAPv3 search-filter evaluator (RFC 4511
// §4.5.1): deciding whether a directory entry satisfies a filter, in
// three-valued logic, consulting access control and schema collaborators
// along the way.
package filter

// Kind identifies the variant carried by a Filter node. The set of kinds is
// closed by the LDAP protocol; dispatch is a switch, not a type hierarchy.
type Kind int

const (
	// Computed carries a constant Truth value, used by callers that have
	// already decided a filter's outcome (e.g. an always-true base-object
	// match) without building a full AST for it.
	Computed Kind = iota
	Equality
	GreaterOrEqual
	LessOrEqual
	Approx
	Present
	Substrings
	And
	Or
	Not
	Extensible
)

// AttributeAssertion is a (description, value) pair, used by EQUALITY, GE,
// LE and APPROX nodes.
type AttributeAssertion struct {
	Desc  string
	Value string
}

// SubstringAssertion carries the Initial/Any/Final segments of a substrings
// filter per RFC 4511 §4.5.1 and RFC 4517 §4.2.3. Any of the three may be
// absent (Initial/Final as empty strings with HasInitial/HasFinal false;
// Any as a nil or empty slice) but at least one segment must be present for
// the filter to have been syntactically valid.
type SubstringAssertion struct {
	Initial   string
	HasInitial bool
	Any       []string
	Final     string
	HasFinal  bool
}

// MatchingRuleAssertion is an AVA extended with an explicit matching rule,
// used by EXTENSIBLE (MRA) filters. At least one of Desc/Rule must be set;
// if both are set the rule must be usable with Desc's attribute type.
type MatchingRuleAssertion struct {
	Desc    string // optional
	Rule    string // optional matching rule name
	Value   string
	DNAttrs bool
}

// Filter is a tagged tree: one node kind, one payload. Node kinds not
// relevant to a Kind leave their corresponding fields zero.
type Filter struct {
	Kind Kind

	// Computed
	Result Truth

	// EQUALITY / GE / LE / APPROX
	AVA AttributeAssertion

	// PRESENT
	Desc string

	// SUBSTRINGS
	SubDesc    string
	Substrings SubstringAssertion

	// AND / OR
	Children []*Filter

	// NOT
	Child *Filter

	// EXTENSIBLE
	MRA MatchingRuleAssertion
}

// String renders a short debug form of the filter; not a round-trippable
// LDAP filter string.
func (f *Filter) String() string {
	switch f.Kind {
	case Computed:
		switch f.Result {
		case TTrue:
			return "(computed:true)"
		case TFalse:
			return "(computed:false)"
		default:
			return "(computed:undefined)"
		}
	case Equality:
		return "(" + f.AVA.Desc + "=" + f.AVA.Value + ")"
	case GreaterOrEqual:
		return "(" + f.AVA.Desc + ">=" + f.AVA.Value + ")"
	case LessOrEqual:
		return "(" + f.AVA.Desc + "<=" + f.AVA.Value + ")"
	case Approx:
		return "(" + f.AVA.Desc + "~=" + f.AVA.Value + ")"
	case Present:
		return "(" + f.Desc + "=*)"
	case Substrings:
		return "(" + f.SubDesc + "=substrings)"
	case And:
		return "(&...)"
	case Or:
		return "(|...)"
	case Not:
		return "(!...)"
	case Extensible:
		return "(" + f.MRA.Desc + ":=" + f.MRA.Value + ")"
	default:
		return "(unknown)"
	}
}
