package matchrule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareCaseIgnoreMatch(t *testing.T) {
	c, err := Compare(CaseIgnoreMatch, "Alice", "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

func TestCompareCaseIgnoreOrdering(t *testing.T) {
	c, err := Compare(CaseIgnoreOrderingMatch, "alice", "bob")
	require.NoError(t, err)
	assert.Negative(t, c)
}

func TestCompareDistinguishedNameMatch(t *testing.T) {
	c, err := Compare(DistinguishedNameMatch, "CN=Alice,OU=People,DC=ex,DC=org", "cn=Alice,ou=People,dc=ex,dc=org")
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

func TestCompareGeneralizedTimeOrdering(t *testing.T) {
	c, err := Compare(GeneralizedTimeOrderingMatch, "20200101000000Z", "20210101000000Z")
	require.NoError(t, err)
	assert.Negative(t, c)
}

func TestCompareGeneralizedTimeInvalid(t *testing.T) {
	_, err := Compare(GeneralizedTimeMatch, "not-a-time", "20210101000000Z")
	assert.Error(t, err)
}

func TestCompareBooleanMatch(t *testing.T) {
	c, err := Compare(BooleanMatch, "TRUE", "TRUE")
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	c, err = Compare(BooleanMatch, "TRUE", "FALSE")
	require.NoError(t, err)
	assert.NotEqual(t, 0, c)
}

func TestCompareBooleanMatchInvalid(t *testing.T) {
	_, err := Compare(BooleanMatch, "yes", "TRUE")
	assert.Error(t, err)
}

func TestCompareUnknownRule(t *testing.T) {
	_, err := Compare("bogusMatch", "a", "b")
	assert.Error(t, err)
}

func TestSubstringsInitialAnyFinal(t *testing.T) {
	seg := Segments{
		Initial: "Jo", HasInitial: true,
		Any:   []string{"oE"},
		Final: "son", HasFinal: true,
	}
	c, err := Substrings(CaseIgnoreSubstringsMatch, "JohnJoesephson", seg)
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

func TestSubstringsNoMatch(t *testing.T) {
	seg := Segments{Initial: "Al", HasInitial: true}
	c, err := Substrings(CaseIgnoreSubstringsMatch, "Bob", seg)
	require.NoError(t, err)
	assert.NotEqual(t, 0, c)
}

func TestSubstringsAnyFragmentsMustBeOrdered(t *testing.T) {
	seg := Segments{Any: []string{"b", "a"}}
	// "ab" has 'a' then 'b'; assertion requires 'b' before 'a' -> no match.
	c, err := Substrings(CaseIgnoreSubstringsMatch, "ab", seg)
	require.NoError(t, err)
	assert.NotEqual(t, 0, c)
}

func TestNormalizeCaseIgnore(t *testing.T) {
	got, err := Normalize(CaseIgnoreMatch, "MiXeD")
	require.NoError(t, err)
	assert.Equal(t, "mixed", got)
}

func TestNormalizeDistinguishedName(t *testing.T) {
	got, err := Normalize(DistinguishedNameMatch, "CN=Alice,DC=ex,DC=org")
	require.NoError(t, err)
	assert.Equal(t, "cn=alice,dc=ex,dc=org", got)
}

func TestParseAndFormatGeneralizedTime(t *testing.T) {
	tm, err := ParseGeneralizedTime("20230615120000Z")
	require.NoError(t, err)
	assert.Equal(t, "20230615120000Z", FormatGeneralizedTime(tm))
}
