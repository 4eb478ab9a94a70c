package filter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wepe912/openldap/internal/dn"
	"github.com/wepe912/openldap/internal/matchrule"
	"github.com/wepe912/openldap/internal/models"
)

// fakeSchema is a minimal in-memory SchemaRegistry standing in for
// internal/schema's Registry, just enough to drive the evaluator
// against the literal end-to-end scenarios.
type fakeSchema struct {
	types     map[string]AttributeType
	subtypes  map[string][]string // child -> direct parents
	wellKnown map[string]WellKnownDescriptor
}

func newFakeSchema() *fakeSchema {
	return &fakeSchema{
		types: map[string]AttributeType{
			"cn":   {Desc: "cn", Equality: matchrule.CaseIgnoreMatch, Substr: matchrule.CaseIgnoreSubstringsMatch, Approx: matchrule.CaseIgnoreMatch},
			"sn":   {Desc: "sn", Equality: matchrule.CaseIgnoreMatch, Ordering: matchrule.CaseIgnoreOrderingMatch, Substr: matchrule.CaseIgnoreSubstringsMatch},
			"mail":    {Desc: "mail", Equality: matchrule.CaseIgnoreMatch},
			"entrydn": {Desc: "entryDN", Equality: matchrule.DistinguishedNameMatch, Approx: matchrule.DistinguishedNameMatch},
		},
		subtypes: map[string][]string{},
		wellKnown: map[string]WellKnownDescriptor{
			"entrydn":           EntryDN,
			"hassubordinates":   HasSubordinates,
			"subschemasubentry": SubschemaSubentry,
		},
	}
}

func (s *fakeSchema) Resolve(desc string) (AttributeType, bool) {
	at, ok := s.types[strings.ToLower(desc)]
	return at, ok
}

func (s *fakeSchema) IsSubtype(child, desc string) bool {
	child, desc = strings.ToLower(child), strings.ToLower(desc)
	if child == desc {
		return true
	}
	for _, p := range s.subtypes[child] {
		if s.IsSubtype(p, desc) {
			return true
		}
	}
	return false
}

func (s *fakeSchema) WellKnown(desc string) (WellKnownDescriptor, bool) {
	wk, ok := s.wellKnown[strings.ToLower(desc)]
	return wk, ok
}

func (s *fakeSchema) RuleUsableWith(rule, desc string) bool {
	at, ok := s.Resolve(desc)
	if !ok {
		return false
	}
	return at.Equality == rule || at.Ordering == rule || at.Substr == rule || at.Approx == rule
}

// fakeMatcher delegates to the matchrule package, the same way a real
// ValueMatcher implementation backed by the schema registry would.
type fakeMatcher struct{}

func (fakeMatcher) Match(_ context.Context, _, rule string, stored, asserted Value) (int, error) {
	return matchrule.Compare(rule, stored.Raw, asserted.Raw)
}

func (fakeMatcher) MatchSubstrings(_ context.Context, _, rule string, stored Value, assertion SubstringAssertion) (int, error) {
	seg := matchrule.Segments{
		Initial: assertion.Initial, HasInitial: assertion.HasInitial,
		Any:   assertion.Any,
		Final: assertion.Final, HasFinal: assertion.HasFinal,
	}
	return matchrule.Substrings(rule, stored.Raw, seg)
}

func (fakeMatcher) Normalize(_ context.Context, _, rule, value string) (string, error) {
	return matchrule.Normalize(rule, value)
}

// fakeOracle denies SEARCH on any description in Deny (case-insensitive),
// allows everything else.
type fakeOracle struct {
	Deny map[string]bool
}

func (o fakeOracle) Allowed(_ context.Context, q AccessQuery) bool {
	return !o.Deny[strings.ToLower(q.Desc)]
}

func allowAll() fakeOracle { return fakeOracle{Deny: map[string]bool{}} }

func denying(descs ...string) fakeOracle {
	d := map[string]bool{}
	for _, s := range descs {
		d[strings.ToLower(s)] = true
	}
	return fakeOracle{Deny: d}
}

func newE1(t *testing.T) *models.Entry {
	t.Helper()
	e := models.NewEntry("cn=Alice,ou=People,dc=ex,dc=org", "inetOrgPerson")
	e.AddAttribute("cn", "Alice")
	e.AddAttribute("cn", "alice")
	e.AddAttribute("sn", "Smith")
	e.NormalizedDN = dn.Normalize(e.DN)
	e.NormalizedAttributes["cn"] = []string{"alice", "alice"}
	e.NormalizedAttributes["sn"] = []string{"smith"}
	return e
}

func newEvaluator(oracle AccessOracle) *Evaluator {
	return NewEvaluator(oracle, newFakeSchema(), fakeMatcher{}, nil)
}

func eq(desc, value string) *Filter {
	return &Filter{Kind: Equality, AVA: AttributeAssertion{Desc: desc, Value: value}}
}

func TestEqualityMatchesFoldedValue(t *testing.T) {
	e := newEvaluator(allowAll())
	r := e.Evaluate(context.Background(), newE1(t), eq("cn", "alice"))
	assert.Equal(t, TTrue, r.Truth)
	assert.NoError(t, r.Err)
}

func TestEqualityNoMatch(t *testing.T) {
	e := newEvaluator(allowAll())
	r := e.Evaluate(context.Background(), newE1(t), eq("cn", "bob"))
	assert.Equal(t, TFalse, r.Truth)
}

func TestNotFlipsTrueAndFalse(t *testing.T) {
	e := newEvaluator(allowAll())
	r := e.Evaluate(context.Background(), newE1(t), &Filter{Kind: Not, Child: eq("cn", "bob")})
	assert.Equal(t, TTrue, r.Truth)
}

func TestDoubleNegation(t *testing.T) {
	e := newEvaluator(allowAll())
	inner := eq("cn", "alice")
	f := &Filter{Kind: Not, Child: &Filter{Kind: Not, Child: inner}}
	assert.Equal(t, e.Evaluate(context.Background(), newE1(t), inner), e.Evaluate(context.Background(), newE1(t), f))
}

func TestAndBothTrue(t *testing.T) {
	e := newEvaluator(allowAll())
	f := &Filter{Kind: And, Children: []*Filter{eq("cn", "alice"), eq("sn", "Smith")}}
	assert.Equal(t, TTrue, e.Evaluate(context.Background(), newE1(t), f).Truth)
}

func TestAndOneFalse(t *testing.T) {
	e := newEvaluator(allowAll())
	f := &Filter{Kind: And, Children: []*Filter{eq("cn", "alice"), eq("sn", "Jones")}}
	assert.Equal(t, TFalse, e.Evaluate(context.Background(), newE1(t), f).Truth)
}

func TestOrOneTrue(t *testing.T) {
	e := newEvaluator(allowAll())
	f := &Filter{Kind: Or, Children: []*Filter{eq("cn", "bob"), eq("sn", "Smith")}}
	assert.Equal(t, TTrue, e.Evaluate(context.Background(), newE1(t), f).Truth)
}

func TestOrderingGreaterAndLessEqual(t *testing.T) {
	e := newEvaluator(allowAll())
	ge := &Filter{Kind: GreaterOrEqual, AVA: AttributeAssertion{Desc: "sn", Value: "S"}}
	assert.Equal(t, TTrue, e.Evaluate(context.Background(), newE1(t), ge).Truth)

	le := &Filter{Kind: LessOrEqual, AVA: AttributeAssertion{Desc: "sn", Value: "R"}}
	assert.Equal(t, TFalse, e.Evaluate(context.Background(), newE1(t), le).Truth)
}

func TestSubstringsMatch(t *testing.T) {
	e := newEvaluator(allowAll())
	f := &Filter{Kind: Substrings, SubDesc: "sn", Substrings: SubstringAssertion{
		Initial: "Sm", HasInitial: true,
		Final: "th", HasFinal: true,
	}}
	assert.Equal(t, TTrue, e.Evaluate(context.Background(), newE1(t), f).Truth)
}

func TestPresentMissingAttribute(t *testing.T) {
	e := newEvaluator(allowAll())
	f := &Filter{Kind: Present, Desc: "mail"}
	assert.Equal(t, TFalse, e.Evaluate(context.Background(), newE1(t), f).Truth)
}

func TestEntryDNEquality(t *testing.T) {
	e := newEvaluator(allowAll())
	f := eq("entryDN", "cn=alice,ou=people,dc=ex,dc=org")
	assert.Equal(t, TTrue, e.Evaluate(context.Background(), newE1(t), f).Truth)

	f2 := eq("entryDN", "cn=mallory,ou=people,dc=ex,dc=org")
	assert.Equal(t, TFalse, e.Evaluate(context.Background(), newE1(t), f2).Truth)
}

func TestEntryDNInappropriateMatching(t *testing.T) {
	e := newEvaluator(allowAll())
	f := &Filter{Kind: GreaterOrEqual, AVA: AttributeAssertion{Desc: "entryDN", Value: "cn=alice"}}
	r := e.Evaluate(context.Background(), newE1(t), f)
	require.Error(t, r.Err)
	assert.ErrorIs(t, r.Err, ErrInappropriateMatching)
}

func TestExtensibleDNAttrsMatchesRDN(t *testing.T) {
	e := newEvaluator(allowAll())
	// cn is deliberately not a stored attribute here; the match can only
	// come from walking the DN's own RDN (invariant 9, spec.md §8).
	entry := models.NewEntry("cn=Alice,ou=People,dc=ex,dc=org", "inetOrgPerson")
	entry.AddAttribute("sn", "Smith")
	entry.NormalizedDN = dn.Normalize(entry.DN)
	entry.NormalizedAttributes["sn"] = []string{"smith"}

	f := &Filter{Kind: Extensible, MRA: MatchingRuleAssertion{
		Desc: "cn", Rule: matchrule.CaseIgnoreMatch, Value: "Alice", DNAttrs: true,
	}}
	assert.Equal(t, TTrue, e.Evaluate(context.Background(), entry, f).Truth)
}

func TestAccessDenialYieldsInsufficientAccess(t *testing.T) {
	e := newEvaluator(denying("sn"))
	r := e.Evaluate(context.Background(), newE1(t), eq("sn", "Smith"))
	require.Error(t, r.Err)
	assert.ErrorIs(t, r.Err, ErrInsufficientAccess)
	assert.Equal(t, TUndefined, r.Truth)
}

func TestAccessDenialMaskedByOrSibling(t *testing.T) {
	e := newEvaluator(denying("sn"))
	f := &Filter{Kind: Or, Children: []*Filter{eq("sn", "Smith"), eq("cn", "alice")}}
	assert.Equal(t, TTrue, e.Evaluate(context.Background(), newE1(t), f).Truth)
}

func TestAccessDenialAndFalseDominates(t *testing.T) {
	e := newEvaluator(denying("sn"))
	f := &Filter{Kind: And, Children: []*Filter{eq("sn", "Smith"), eq("cn", "bob")}}
	assert.Equal(t, TFalse, e.Evaluate(context.Background(), newE1(t), f).Truth)
}

func TestEmptyAndIsTrueEmptyOrIsFalse(t *testing.T) {
	e := newEvaluator(allowAll())
	assert.Equal(t, TTrue, e.Evaluate(context.Background(), newE1(t), &Filter{Kind: And}).Truth)
	assert.Equal(t, TFalse, e.Evaluate(context.Background(), newE1(t), &Filter{Kind: Or}).Truth)
}

func TestUnknownKindIsProtocolError(t *testing.T) {
	e := newEvaluator(allowAll())
	r := e.Evaluate(context.Background(), newE1(t), &Filter{Kind: Kind(99)})
	assert.ErrorIs(t, r.Err, ErrProtocol)
}

func TestHasSubordinatesPresentRequiresBackend(t *testing.T) {
	e := NewEvaluator(allowAll(), newFakeSchema(), fakeMatcher{}, nil)
	f := &Filter{Kind: Present, Desc: "hasSubordinates"}
	assert.Equal(t, TFalse, e.Evaluate(context.Background(), newE1(t), f).Truth)
}

type fakeBackend struct {
	has bool
}

func (b fakeBackend) HasSubordinates(context.Context, *models.Entry) (bool, error) {
	return b.has, nil
}

func TestHasSubordinatesEquality(t *testing.T) {
	e := NewEvaluator(allowAll(), newFakeSchema(), fakeMatcher{}, fakeBackend{has: true})
	f := eq("hasSubordinates", "TRUE")
	assert.Equal(t, TTrue, e.Evaluate(context.Background(), newE1(t), f).Truth)

	e2 := NewEvaluator(allowAll(), newFakeSchema(), fakeMatcher{}, fakeBackend{has: false})
	assert.Equal(t, TFalse, e2.Evaluate(context.Background(), newE1(t), f).Truth)
}
