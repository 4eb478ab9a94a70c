package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/wepe912/openldap/internal/dn"
	"github.com/wepe912/openldap/internal/models"
)

// Evaluator holds the collaborators a single test_filter-style call needs:
// access control, schema resolution, value comparison, and the optional
// computed-attribute hook. It carries no per-call state of its own — all
// of that lives in the TempValues scope created by Evaluate.
type Evaluator struct {
	Access  AccessOracle
	Schema  SchemaRegistry
	Matcher ValueMatcher
	Backend BackendHook
}

// NewEvaluator builds an Evaluator from its collaborators. Backend may be
// nil; a nil Backend makes hasSubordinates behave as always-absent.
func NewEvaluator(access AccessOracle, schema SchemaRegistry, matcher ValueMatcher, backend BackendHook) *Evaluator {
	return &Evaluator{Access: access, Schema: schema, Matcher: matcher, Backend: backend}
}

// Evaluate decides whether entry satisfies f, per RFC 4511 §4.5.1's
// three-valued logic. It is synchronous, single-threaded, and performs no
// I/O of its own beyond what the injected collaborators do.
func (e *Evaluator) Evaluate(ctx context.Context, entry *models.Entry, f *Filter) Result {
	opID := uuid.NewString()
	slog.Debug("filter evaluate start", "op", opID, "dn", entry.DN)

	tv := NewTempValues()
	defer tv.Release()
	result := e.eval(ctx, entry, f, tv)

	slog.Debug("filter evaluate done", "op", opID, "dn", entry.DN, "result", result.Truth.String())
	return result
}

func (e *Evaluator) eval(ctx context.Context, entry *models.Entry, f *Filter, tv *TempValues) Result {
	if f == nil {
		return Err(ErrProtocol)
	}
	switch f.Kind {
	case Computed:
		return FromTruth(f.Result)
	case Equality, GreaterOrEqual, LessOrEqual, Approx:
		return e.evalAVA(ctx, entry, f.Kind, f.AVA)
	case Present:
		return e.evalPresent(ctx, entry, f.Desc)
	case Substrings:
		return e.evalSubstrings(ctx, entry, f.SubDesc, f.Substrings)
	case Extensible:
		return e.evalExtensible(ctx, entry, f.MRA, tv)
	case Not:
		if f.Child == nil {
			return Err(ErrProtocol)
		}
		return e.eval(ctx, entry, f.Child, tv).not()
	case And:
		return e.evalAnd(ctx, entry, f.Children, tv)
	case Or:
		return e.evalOr(ctx, entry, f.Children, tv)
	default:
		return Err(ErrProtocol)
	}
}

// evalAnd implements three-valued conjunction (spec.md §4.6): a FALSE
// child short-circuits, a TRUE child is silently absorbed, and the most
// recent UNDEFINED/error is remembered in case nothing later dominates it.
func (e *Evaluator) evalAnd(ctx context.Context, entry *models.Entry, children []*Filter, tv *TempValues) Result {
	pending := True()
	for _, c := range children {
		r := e.eval(ctx, entry, c, tv)
		if r.Err == nil && r.Truth == TFalse {
			return False()
		}
		if r.Err == nil && r.Truth == TTrue {
			continue
		}
		pending = r
	}
	return pending
}

// evalOr implements three-valued disjunction, symmetric to evalAnd.
func (e *Evaluator) evalOr(ctx context.Context, entry *models.Entry, children []*Filter, tv *TempValues) Result {
	pending := False()
	for _, c := range children {
		r := e.eval(ctx, entry, c, tv)
		if r.Err == nil && r.Truth == TTrue {
			return True()
		}
		if r.Err == nil && r.Truth == TFalse {
			continue
		}
		pending = r
	}
	return pending
}

// evalAVA implements the EQUALITY/GE/LE/APPROX leaf (spec.md §4.2).
func (e *Evaluator) evalAVA(ctx context.Context, entry *models.Entry, kind Kind, ava AttributeAssertion) Result {
	desc, val := ava.Desc, ava.Value
	if !e.Access.Allowed(ctx, AccessQuery{Op: OpSearch, Entry: entry, Desc: desc, Value: &val}) {
		return Err(ErrInsufficientAccess)
	}

	if wk, ok := e.Schema.WellKnown(desc); ok {
		switch wk {
		case HasSubordinates:
			if kind != Equality && kind != Approx {
				return Err(ErrInappropriateMatching)
			}
			return e.matchHasSubordinates(ctx, entry, val)
		case EntryDN:
			if kind != Equality && kind != Approx {
				return Err(ErrInappropriateMatching)
			}
			return e.matchEntryDN(ctx, desc, entry, val)
		}
	}

	pending := False()
	cursor := NewAttrsCursor(entry, desc, e.Schema)
	for {
		inst, ok := cursor.Next()
		if !ok {
			break
		}

		if !equalFold(inst.Desc, desc) {
			if !e.Access.Allowed(ctx, AccessQuery{Op: OpSearch, Entry: entry, Desc: inst.Desc}) {
				pending = Err(ErrInsufficientAccess)
				continue
			}
		}

		at, _ := e.Schema.Resolve(inst.Desc)
		rule := ""
		switch kind {
		case Approx:
			rule = at.Approx
			if rule == "" {
				rule = at.Equality
			}
		case Equality:
			rule = at.Equality
		case GreaterOrEqual, LessOrEqual:
			rule = at.Ordering
		}
		if rule == "" {
			pending = Err(ErrInappropriateMatching)
			continue
		}

		for i, raw := range inst.Raw {
			norm := raw
			if i < len(inst.Normalized) {
				norm = inst.Normalized[i]
			}
			cmp, err := e.Matcher.Match(ctx, inst.Desc, rule, Value{Raw: raw, Normalized: norm}, Value{Raw: val, Normalized: val})
			if err != nil {
				pending = Err(err)
				break
			}
			switch kind {
			case Equality, Approx:
				if cmp == 0 {
					return True()
				}
			case GreaterOrEqual:
				if cmp >= 0 {
					return True()
				}
			case LessOrEqual:
				if cmp <= 0 {
					return True()
				}
			}
		}
	}
	return pending
}

func (e *Evaluator) matchHasSubordinates(ctx context.Context, entry *models.Entry, asserted string) Result {
	if e.Backend == nil {
		return False()
	}
	has, err := e.Backend.HasSubordinates(ctx, entry)
	if err != nil {
		return Err(fmt.Errorf("%w: %v", ErrOther, err))
	}
	want := "FALSE"
	if has {
		want = "TRUE"
	}
	if equalFold(want, asserted) {
		return True()
	}
	return False()
}

func (e *Evaluator) matchEntryDN(ctx context.Context, desc string, entry *models.Entry, asserted string) Result {
	rule := ""
	if at, ok := e.Schema.Resolve(desc); ok {
		rule = at.Equality
	}
	cmp, err := e.Matcher.Match(ctx, desc, rule, Value{Raw: entry.NormalizedDN, Normalized: entry.NormalizedDN}, Value{Raw: asserted, Normalized: asserted})
	if err != nil {
		return Err(err)
	}
	if cmp == 0 {
		return True()
	}
	return False()
}

// evalPresent implements the PRESENT leaf (spec.md §4.3).
func (e *Evaluator) evalPresent(ctx context.Context, entry *models.Entry, desc string) Result {
	if !e.Access.Allowed(ctx, AccessQuery{Op: OpSearch, Entry: entry, Desc: desc}) {
		return Err(ErrInsufficientAccess)
	}

	if wk, ok := e.Schema.WellKnown(desc); ok {
		switch wk {
		case HasSubordinates:
			if e.Backend != nil {
				return True()
			}
			return False()
		case EntryDN, SubschemaSubentry:
			return True()
		}
	}

	pending := False()
	cursor := NewAttrsCursor(entry, desc, e.Schema)
	for {
		inst, ok := cursor.Next()
		if !ok {
			break
		}
		if !equalFold(inst.Desc, desc) {
			if !e.Access.Allowed(ctx, AccessQuery{Op: OpSearch, Entry: entry, Desc: inst.Desc}) {
				pending = Err(ErrInsufficientAccess)
				continue
			}
		}
		return True()
	}
	return pending
}

// evalSubstrings implements the SUBSTRINGS leaf (spec.md §4.4).
func (e *Evaluator) evalSubstrings(ctx context.Context, entry *models.Entry, desc string, sub SubstringAssertion) Result {
	if !e.Access.Allowed(ctx, AccessQuery{Op: OpSearch, Entry: entry, Desc: desc}) {
		return Err(ErrInsufficientAccess)
	}

	pending := False()
	cursor := NewAttrsCursor(entry, desc, e.Schema)
	for {
		inst, ok := cursor.Next()
		if !ok {
			break
		}
		if !equalFold(inst.Desc, desc) {
			if !e.Access.Allowed(ctx, AccessQuery{Op: OpSearch, Entry: entry, Desc: inst.Desc}) {
				pending = Err(ErrInsufficientAccess)
				continue
			}
		}

		at, _ := e.Schema.Resolve(inst.Desc)
		if at.Substr == "" {
			pending = Err(ErrInappropriateMatching)
			continue
		}

		for i, raw := range inst.Raw {
			norm := raw
			if i < len(inst.Normalized) {
				norm = inst.Normalized[i]
			}
			cmp, err := e.Matcher.MatchSubstrings(ctx, inst.Desc, at.Substr, Value{Raw: raw, Normalized: norm}, sub)
			if err != nil {
				pending = Err(err)
				break
			}
			if cmp == 0 {
				return True()
			}
		}
	}
	return pending
}

// evalExtensible implements the EXTENSIBLE (MRA) leaf (spec.md §4.5),
// including the dnAttrs augmentation applied after the desc-present or
// desc-absent base evaluation.
func (e *Evaluator) evalExtensible(ctx context.Context, entry *models.Entry, mra MatchingRuleAssertion, tv *TempValues) Result {
	var base Result
	if mra.Desc != "" {
		base = e.evalMRAWithDesc(ctx, entry, mra)
	} else {
		base = e.evalMRANoDesc(ctx, entry, mra, tv)
	}

	if base.Truth == TTrue {
		return base
	}
	if base.Err != nil && !isSoftPending(base.Err) {
		return base
	}
	if !mra.DNAttrs {
		return base
	}

	dnRes := e.evalMRADNAttrs(ctx, entry, mra, tv)
	if dnRes.Err != nil {
		return dnRes
	}
	if dnRes.Truth == TTrue {
		return True()
	}
	return base
}

func isSoftPending(err error) bool {
	return errors.Is(err, ErrInsufficientAccess) || errors.Is(err, ErrInappropriateMatching)
}

// evalMRAWithDesc handles the MRA desc-present case (spec.md §4.5).
func (e *Evaluator) evalMRAWithDesc(ctx context.Context, entry *models.Entry, mra MatchingRuleAssertion) Result {
	desc := mra.Desc
	if !e.Access.Allowed(ctx, AccessQuery{Op: OpSearch, Entry: entry, Desc: desc, Value: &mra.Value}) {
		return Err(ErrInsufficientAccess)
	}

	if wk, ok := e.Schema.WellKnown(desc); ok && wk == EntryDN {
		return e.matchEntryDNRule(ctx, desc, mra.Rule, entry, mra.Value)
	}

	pending := False()
	cursor := NewAttrsCursor(entry, desc, e.Schema)
	for {
		inst, ok := cursor.Next()
		if !ok {
			break
		}

		rule := mra.Rule
		at, known := e.Schema.Resolve(inst.Desc)
		if rule == "" {
			rule = at.Equality
		}
		if rule == "" {
			pending = Err(ErrInappropriateMatching)
			continue
		}

		useNormalized := known && at.Equality == rule && len(inst.Normalized) == len(inst.Raw)
		values := inst.Raw
		if useNormalized {
			values = inst.Normalized
		}

		for _, v := range values {
			cmp, err := e.Matcher.Match(ctx, inst.Desc, rule, Value{Raw: v, Normalized: v}, Value{Raw: mra.Value, Normalized: mra.Value})
			if err != nil {
				return Err(err)
			}
			if cmp == 0 {
				return True()
			}
		}
	}
	return pending
}

func (e *Evaluator) matchEntryDNRule(ctx context.Context, desc, rule string, entry *models.Entry, asserted string) Result {
	if rule == "" {
		if at, ok := e.Schema.Resolve(desc); ok {
			rule = at.Equality
		}
	}
	cmp, err := e.Matcher.Match(ctx, desc, rule, Value{Raw: entry.NormalizedDN, Normalized: entry.NormalizedDN}, Value{Raw: asserted, Normalized: asserted})
	if err != nil {
		return Err(err)
	}
	if cmp == 0 {
		return True()
	}
	return False()
}

// evalMRANoDesc handles the MRA desc-absent case: match against every
// attribute on the entry. Per the source's test_mra_filter, a matcher
// error on one attribute's values breaks only that attribute's inner
// loop; the outer walk continues, and the final result is FALSE rather
// than the error if nothing ever matched (spec.md §9, first open
// question — kept as specified).
func (e *Evaluator) evalMRANoDesc(ctx context.Context, entry *models.Entry, mra MatchingRuleAssertion, tv *TempValues) Result {
	if mra.Rule == "" {
		return Err(ErrInappropriateMatching)
	}

	for _, desc := range entry.AttributeOrder {
		if !e.Schema.RuleUsableWith(mra.Rule, desc) {
			continue
		}

		normVal, err := e.Matcher.Normalize(ctx, desc, mra.Rule, mra.Value)
		if err != nil {
			continue
		}
		normVal = tv.Keep(normVal)

		if !e.Access.Allowed(ctx, AccessQuery{Op: OpSearch, Entry: entry, Desc: desc, Value: &normVal}) {
			continue
		}

		at, known := e.Schema.Resolve(desc)
		useNormalized := known && at.Equality == mra.Rule
		raw := entry.Attributes[desc]
		values := raw
		if useNormalized {
			if norm := entry.NormalizedAttributes[desc]; len(norm) == len(raw) {
				values = norm
			}
		}

		for _, v := range values {
			cmp, err := e.Matcher.Match(ctx, desc, mra.Rule, Value{Raw: v, Normalized: v}, Value{Raw: normVal, Normalized: normVal})
			if err != nil {
				break
			}
			if cmp == 0 {
				return True()
			}
		}
	}
	return False()
}

// evalMRADNAttrs implements the dnAttrs augmentation: matching the MRA
// against the AVAs that make up the entry's own DN (spec.md §4.5,
// "dnAttrs augmentation").
func (e *Evaluator) evalMRADNAttrs(ctx context.Context, entry *models.Entry, mra MatchingRuleAssertion, tv *TempValues) Result {
	parsed, err := dn.Parse(entry.DN)
	if err != nil {
		return Err(fmt.Errorf("%w: %v", ErrInvalidSyntax, err))
	}

	for _, rdn := range parsed.RDNs {
		for _, ava := range rdn.AVAs {
			if mra.Desc != "" {
				if !e.Schema.IsSubtype(ava.Type, mra.Desc) {
					continue
				}
				rule := mra.Rule
				if rule == "" {
					if at, ok := e.Schema.Resolve(mra.Desc); ok {
						rule = at.Equality
					}
				}
				if rule == "" {
					continue
				}
				cmp, err := e.Matcher.Match(ctx, ava.Type, rule, Value{Raw: ava.Value, Normalized: ava.Value}, Value{Raw: mra.Value, Normalized: mra.Value})
				if err != nil {
					return Err(err)
				}
				if cmp == 0 {
					return True()
				}
				continue
			}

			if mra.Rule == "" || !e.Schema.RuleUsableWith(mra.Rule, ava.Type) {
				continue
			}
			normVal, err := e.Matcher.Normalize(ctx, ava.Type, mra.Rule, mra.Value)
			if err != nil {
				continue
			}
			normVal = tv.Keep(normVal)
			if !e.Access.Allowed(ctx, AccessQuery{Op: OpSearch, Entry: entry, Desc: ava.Type, Value: &normVal}) {
				continue
			}
			cmp, err := e.Matcher.Match(ctx, ava.Type, mra.Rule, Value{Raw: ava.Value, Normalized: ava.Value}, Value{Raw: normVal, Normalized: normVal})
			if err != nil {
				return Err(err)
			}
			if cmp == 0 {
				return True()
			}
		}
	}
	return False()
}
