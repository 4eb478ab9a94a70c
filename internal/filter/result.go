package filter

import "errors"

// Truth is one of LDAP's three filter-evaluation outcomes (RFC 4511
// §4.5.1). Conventional two-valued boolean reasoning does not apply here:
// Undefined is a first-class result, not an error.
type Truth int

const (
	TFalse Truth = iota
	TTrue
	TUndefined
)

func (t Truth) String() string {
	switch t {
	case TTrue:
		return "TRUE"
	case TFalse:
		return "FALSE"
	default:
		return "UNDEFINED"
	}
}

// Sentinel errors surfaced by the evaluator. Collaborator errors that do
// not map onto one of these are wrapped and returned verbatim (ErrOther
// covers the general "backend hook failed" case, but a ValueMatcher may
// also return an arbitrary error that propagates unwrapped).
var (
	// ErrProtocol is returned for a filter node of unknown Kind.
	ErrProtocol = errors.New("ldap: protocol error")
	// ErrInsufficientAccess means the subject cannot SEARCH the attribute
	// or value in question. Treated as Undefined by the combinators; only
	// surfaced to the caller if nothing else dominates.
	ErrInsufficientAccess = errors.New("ldap: insufficient access")
	// ErrInappropriateMatching means the attribute type lacks the
	// matching rule the requested operator needs.
	ErrInappropriateMatching = errors.New("ldap: inappropriate matching")
	// ErrInvalidSyntax is returned when a dnAttrs filter's DN fails to
	// parse.
	ErrInvalidSyntax = errors.New("ldap: invalid syntax")
	// ErrOther covers backend hook failures (e.g. has_subordinates).
	ErrOther = errors.New("ldap: other error")
)

// Result is the outcome of evaluating a filter: either a decisive Truth
// value or an error. A zero Result is TFalse with no error, which callers
// should never rely on implicitly — always construct via the helpers
// below.
type Result struct {
	Truth Truth
	Err   error
}

func True() Result                 { return Result{Truth: TTrue} }
func False() Result                { return Result{Truth: TFalse} }
func Undefined() Result            { return Result{Truth: TUndefined} }
func Err(err error) Result         { return Result{Truth: TUndefined, Err: err} }
func FromTruth(t Truth) Result     { return Result{Truth: t} }

// IsError reports whether r carries an error.
func (r Result) IsError() bool { return r.Err != nil }

// not implements NOT's truth table: True<->False flip, Undefined and
// errors pass through unchanged (spec.md §4.1).
func (r Result) not() Result {
	if r.Err != nil {
		return r
	}
	switch r.Truth {
	case TTrue:
		return False()
	case TFalse:
		return True()
	default:
		return Undefined()
	}
}
