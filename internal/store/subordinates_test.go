package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasSubordinatesHookReportsChildren(t *testing.T) {
	st := setupTestStore(t)
	hook := NewHasSubordinatesHook(st)
	ctx := context.Background()

	baseEntry, err := st.GetEntry(ctx, "dc=test,dc=com")
	require.NoError(t, err)
	require.NotNil(t, baseEntry)

	has, err := hook.HasSubordinates(ctx, baseEntry)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestHasSubordinatesHookReportsLeaf(t *testing.T) {
	st := setupTestStore(t)
	hook := NewHasSubordinatesHook(st)
	ctx := context.Background()

	leaf, err := st.GetEntry(ctx, "uid=jdoe,ou=users,dc=test,dc=com")
	require.NoError(t, err)
	require.NotNil(t, leaf)

	has, err := hook.HasSubordinates(ctx, leaf)
	require.NoError(t, err)
	assert.False(t, has)
}
