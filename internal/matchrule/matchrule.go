// Package matchrule implements the LDAP matching rules (RFC 4517 §4.2)
// the filter evaluator dispatches to: equality, ordering, substrings and
// approximate comparisons, plus the handful of well-known rules used for
// DN and generalized-time comparisons.
//
// CaseIgnoreMatch and the substrings walk are promoted from ldaplite's
// original ad hoc strings.ToLower comparisons and matchSubstring helper
// (internal/schema/filter.go); GeneralizedTimeOrderingMatch is promoted
// from the timestamp parsing in internal/schema/filter_compiler.go's
// convertLDAPTimestampToSQLite.
package matchrule

import (
	"fmt"
	"strings"
	"time"

	"github.com/wepe912/openldap/internal/dn"
)

// Well-known matching rule names, per RFC 4517 §4.2 and RFC 4512 §4.1.3's
// operational-attribute rules.
const (
	CaseIgnoreMatch            = "caseIgnoreMatch"
	CaseIgnoreOrderingMatch    = "caseIgnoreOrderingMatch"
	CaseIgnoreSubstringsMatch  = "caseIgnoreSubstringsMatch"
	CaseExactMatch             = "caseExactMatch"
	DistinguishedNameMatch     = "distinguishedNameMatch"
	GeneralizedTimeMatch       = "generalizedTimeMatch"
	GeneralizedTimeOrderingMatch = "generalizedTimeOrderingMatch"
	BooleanMatch               = "booleanMatch"
)

// Segments carries the RFC 4517 §4.2.3 substring-assertion triple in a
// library-agnostic form (mirrors filter.SubstringAssertion without
// importing the filter package, which would cycle back to here).
type Segments struct {
	Initial    string
	HasInitial bool
	Any        []string
	Final      string
	HasFinal   bool
}

// Compare applies the named matching rule to stored vs. asserted,
// returning a strcmp-style ordering (0 equal, negative if stored is
// "less", positive if "greater"). Rules that are equality-only (no
// natural ordering) still produce a usable 0/nonzero result for EQUALITY
// and APPROX callers.
func Compare(rule, stored, asserted string) (int, error) {
	switch rule {
	case CaseIgnoreMatch, CaseIgnoreOrderingMatch:
		return strings.Compare(strings.ToLower(stored), strings.ToLower(asserted)), nil
	case CaseExactMatch:
		return strings.Compare(stored, asserted), nil
	case DistinguishedNameMatch:
		return strings.Compare(strings.ToLower(dn.Normalize(stored)), strings.ToLower(dn.Normalize(asserted))), nil
	case GeneralizedTimeMatch, GeneralizedTimeOrderingMatch:
		st, err := ParseGeneralizedTime(stored)
		if err != nil {
			return 0, err
		}
		as, err := ParseGeneralizedTime(asserted)
		if err != nil {
			return 0, err
		}
		switch {
		case st.Before(as):
			return -1, nil
		case st.After(as):
			return 1, nil
		default:
			return 0, nil
		}
	case BooleanMatch:
		sb, err := parseLDAPBool(stored)
		if err != nil {
			return 0, err
		}
		ab, err := parseLDAPBool(asserted)
		if err != nil {
			return 0, err
		}
		if sb == ab {
			return 0, nil
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("matchrule: unknown matching rule %q", rule)
	}
}

// Substrings applies a substrings matching rule to one stored value,
// returning 0 when it matches the assertion and nonzero otherwise.
func Substrings(rule string, stored string, seg Segments) (int, error) {
	switch rule {
	case CaseIgnoreSubstringsMatch:
		if substringsMatch(strings.ToLower(stored), foldSegments(seg)) {
			return 0, nil
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("matchrule: unknown substrings matching rule %q", rule)
	}
}

func foldSegments(seg Segments) Segments {
	any := make([]string, len(seg.Any))
	for i, a := range seg.Any {
		any[i] = strings.ToLower(a)
	}
	return Segments{
		Initial:    strings.ToLower(seg.Initial),
		HasInitial: seg.HasInitial,
		Any:        any,
		Final:      strings.ToLower(seg.Final),
		HasFinal:   seg.HasFinal,
	}
}

// substringsMatch implements the RFC 4517 §4.2.3 segment walk: initial
// prefix, then each "any" fragment in order, then final suffix. value and
// seg's segments are assumed already case-folded by the caller.
func substringsMatch(value string, seg Segments) bool {
	if seg.HasInitial {
		if !strings.HasPrefix(value, seg.Initial) {
			return false
		}
		value = value[len(seg.Initial):]
	}

	if seg.HasFinal {
		if !strings.HasSuffix(value, seg.Final) {
			return false
		}
		value = value[:len(value)-len(seg.Final)]
	}

	for _, frag := range seg.Any {
		if frag == "" {
			continue
		}
		idx := strings.Index(value, frag)
		if idx == -1 {
			return false
		}
		value = value[idx+len(frag):]
	}

	return true
}

// Normalize produces the case-folded comparable form of value for the
// named rule; used when an extensible-match assertion needs a normalized
// value computed ahead of per-attribute comparison (spec.md §4.5).
func Normalize(rule, value string) (string, error) {
	switch rule {
	case CaseIgnoreMatch, CaseIgnoreOrderingMatch, CaseIgnoreSubstringsMatch:
		return strings.ToLower(value), nil
	case CaseExactMatch:
		return value, nil
	case DistinguishedNameMatch:
		return strings.ToLower(dn.Normalize(value)), nil
	case GeneralizedTimeMatch, GeneralizedTimeOrderingMatch:
		t, err := ParseGeneralizedTime(value)
		if err != nil {
			return "", err
		}
		return t.UTC().Format("20060102150405Z"), nil
	case BooleanMatch:
		b, err := parseLDAPBool(value)
		if err != nil {
			return "", err
		}
		if b {
			return "TRUE", nil
		}
		return "FALSE", nil
	default:
		return "", fmt.Errorf("matchrule: unknown matching rule %q", rule)
	}
}

// ParseGeneralizedTime parses an LDAP GeneralizedTime value
// (YYYYMMDDHHMMSSZ, RFC 4517 §3.3.13) into a time.Time.
func ParseGeneralizedTime(v string) (time.Time, error) {
	v = strings.TrimSuffix(v, "Z")
	v = strings.TrimSuffix(v, "z")
	if len(v) != 14 {
		return time.Time{}, fmt.Errorf("matchrule: invalid generalized time length: %q", v)
	}
	return time.Parse("20060102150405", v)
}

// FormatGeneralizedTime renders t as an LDAP GeneralizedTime value.
func FormatGeneralizedTime(t time.Time) string {
	return t.UTC().Format("20060102150405Z")
}

func parseLDAPBool(v string) (bool, error) {
	switch v {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	default:
		return false, fmt.Errorf("matchrule: invalid boolean value %q", v)
	}
}
