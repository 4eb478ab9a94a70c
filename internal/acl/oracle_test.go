package acl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wepe912/openldap/internal/filter"
)

type fakeMembers struct {
	member map[string]bool
	err    error
}

func (f fakeMembers) IsMemberOf(_ context.Context, memberDN, groupDN string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.member[memberDN+"|"+groupDN], nil
}

func subjectOf(dn string) SubjectFunc {
	return func(context.Context) string { return dn }
}

func TestOpenAccessOracleAllowsEverything(t *testing.T) {
	o := OpenAccessOracle{}
	assert.True(t, o.Allowed(context.Background(), filter.AccessQuery{Desc: "createTimestamp"}))
}

func TestGroupGatedAllowsUnprotectedAttribute(t *testing.T) {
	o := NewGroupGatedAccessOracle(fakeMembers{}, subjectOf(""), "cn=admins,dc=ex,dc=org", "createtimestamp")
	assert.True(t, o.Allowed(context.Background(), filter.AccessQuery{Desc: "cn"}))
}

func TestGroupGatedDeniesProtectedWithoutSubject(t *testing.T) {
	o := NewGroupGatedAccessOracle(fakeMembers{}, subjectOf(""), "cn=admins,dc=ex,dc=org", "createTimestamp")
	assert.False(t, o.Allowed(context.Background(), filter.AccessQuery{Desc: "createTimestamp"}))
}

func TestGroupGatedAllowsProtectedForMember(t *testing.T) {
	members := fakeMembers{member: map[string]bool{
		"cn=alice,dc=ex,dc=org|cn=admins,dc=ex,dc=org": true,
	}}
	o := NewGroupGatedAccessOracle(members, subjectOf("cn=alice,dc=ex,dc=org"), "cn=admins,dc=ex,dc=org", "createTimestamp")
	assert.True(t, o.Allowed(context.Background(), filter.AccessQuery{Desc: "createTimestamp"}))
}

func TestGroupGatedDeniesProtectedForNonMember(t *testing.T) {
	o := NewGroupGatedAccessOracle(fakeMembers{}, subjectOf("cn=bob,dc=ex,dc=org"), "cn=admins,dc=ex,dc=org", "createTimestamp")
	assert.False(t, o.Allowed(context.Background(), filter.AccessQuery{Desc: "createTimestamp"}))
}

func TestGroupGatedDeniesOnMembershipError(t *testing.T) {
	members := fakeMembers{err: errors.New("store unavailable")}
	o := NewGroupGatedAccessOracle(members, subjectOf("cn=bob,dc=ex,dc=org"), "cn=admins,dc=ex,dc=org", "createTimestamp")
	assert.False(t, o.Allowed(context.Background(), filter.AccessQuery{Desc: "createTimestamp"}))
}

func TestGroupGatedAttributeMatchIsCaseInsensitive(t *testing.T) {
	o := NewGroupGatedAccessOracle(fakeMembers{}, subjectOf(""), "cn=admins,dc=ex,dc=org", "createTimestamp")
	assert.False(t, o.Allowed(context.Background(), filter.AccessQuery{Desc: "CREATETIMESTAMP"}))
}
