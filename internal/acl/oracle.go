// Package acl provides filter.AccessOracle implementations deciding
// whether a search subject may see a given attribute or value.
package acl

import (
	"context"
	"strings"

	"github.com/wepe912/openldap/internal/filter"
)

// GroupMembership is the narrow collaborator GroupGatedAccessOracle needs
// from the store: a membership check over two DNs. store.Store's
// IsMemberOf method satisfies this directly, without acl importing the
// whole store package.
type GroupMembership interface {
	IsMemberOf(ctx context.Context, memberDN, groupDN string) (bool, error)
}

// SubjectFunc resolves the authenticated subject DN from ctx. The server
// supplies it, so acl does not depend on how the subject is carried.
type SubjectFunc func(ctx context.Context) string

// OpenAccessOracle allows every search. The server uses it whenever the
// ACL mode is not "group" (the default mode is "open"), matching ldaplite's original
// behavior of imposing no attribute-level ACL on search.
type OpenAccessOracle struct{}

func (OpenAccessOracle) Allowed(ctx context.Context, q filter.AccessQuery) bool {
	return true
}

// GroupGatedAccessOracle denies SEARCH access to a configured set of
// protected attribute descriptions unless the resolved subject is a
// member of the configured admin group. Every other attribute is allowed
// unconditionally. This generalizes protectedAttributes/
// isProtectedAttribute (internal/server/ldap.go), which protects the same
// attributes from modification, to also protect them from being read back
// by non-admins.
type GroupGatedAccessOracle struct {
	Members      GroupMembership
	Subject      SubjectFunc
	AdminGroupDN string
	Protected    map[string]bool
}

// NewGroupGatedAccessOracle builds an oracle protecting the given
// attribute descriptions (case-insensitive).
func NewGroupGatedAccessOracle(members GroupMembership, subject SubjectFunc, adminGroupDN string, protected ...string) *GroupGatedAccessOracle {
	p := make(map[string]bool, len(protected))
	for _, d := range protected {
		p[strings.ToLower(d)] = true
	}
	return &GroupGatedAccessOracle{
		Members:      members,
		Subject:      subject,
		AdminGroupDN: adminGroupDN,
		Protected:    p,
	}
}

func (o *GroupGatedAccessOracle) Allowed(ctx context.Context, q filter.AccessQuery) bool {
	if !o.Protected[strings.ToLower(q.Desc)] {
		return true
	}

	subjectDN := o.Subject(ctx)
	if subjectDN == "" {
		return false
	}

	isMember, err := o.Members.IsMemberOf(ctx, subjectDN, o.AdminGroupDN)
	if err != nil {
		return false
	}
	return isMember
}
