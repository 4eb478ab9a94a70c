package dn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimple(t *testing.T) {
	d, err := Parse("cn=Alice,ou=People,dc=ex,dc=org")
	require.NoError(t, err)
	require.Len(t, d.RDNs, 4)
	assert.Equal(t, "cn", d.RDNs[0].AVAs[0].Type)
	assert.Equal(t, "Alice", d.RDNs[0].AVAs[0].Value)
}

func TestNormalizeCaseInsensitiveType(t *testing.T) {
	a := Normalize("CN=Alice,OU=People,DC=ex,DC=org")
	b := Normalize("cn=alice,ou=people,dc=ex,dc=org")
	// Types fold to lowercase but values do not (case-ignore matching on
	// values is the matching rule's job, not the DN walker's).
	assert.Equal(t, "cn=Alice,ou=People,dc=ex,dc=org", a)
	assert.Equal(t, "cn=alice,ou=people,dc=ex,dc=org", b)
}

func TestParseMultiValuedRDN(t *testing.T) {
	d, err := Parse("cn=Alice+uid=alice,dc=ex,dc=org")
	require.NoError(t, err)
	require.Len(t, d.RDNs, 2)
	require.Len(t, d.RDNs[0].AVAs, 2)
}

func TestParseEscapedComma(t *testing.T) {
	d, err := Parse(`cn=Smith\, John,dc=ex,dc=org`)
	require.NoError(t, err)
	require.Len(t, d.RDNs, 2)
	assert.Equal(t, "Smith, John", d.RDNs[0].AVAs[0].Value)
}

func TestParseHexValue(t *testing.T) {
	d, err := Parse("cn=#41626364,dc=ex,dc=org")
	require.NoError(t, err)
	assert.Equal(t, "Abcd", d.RDNs[0].AVAs[0].Value)
}

func TestParseEmptyRDNError(t *testing.T) {
	_, err := Parse("cn=Alice,,dc=org")
	assert.Error(t, err)
}

func TestParseMissingEqualsError(t *testing.T) {
	_, err := Parse("cnAlice,dc=org")
	assert.Error(t, err)
}

func TestNormalizeFallsBackOnMalformed(t *testing.T) {
	got := Normalize("  Not A Real DN  ")
	assert.Equal(t, "not a real dn", got)
}

func TestRDNStringSortsMultiValued(t *testing.T) {
	d, err := Parse("uid=alice+cn=Alice,dc=ex,dc=org")
	require.NoError(t, err)
	// "cn=Alice" < "uid=alice" lexically
	assert.Equal(t, "cn=Alice+uid=alice", d.RDNs[0].String())
}
