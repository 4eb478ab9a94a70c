package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProtectedAttributesSeeded(t *testing.T) {
	st := setupTestStore(t)

	attrs, err := st.GetProtectedAttributes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"createtimestamp", "modifytimestamp"}, attrs)
}
