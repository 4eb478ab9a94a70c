package store

import (
	"context"
	"fmt"

	"github.com/wepe912/openldap/internal/filter"
	"github.com/wepe912/openldap/internal/models"
)

// HasSubordinatesHook implements filter.BackendHook over a Store's
// existing child-listing query, giving the evaluator's hasSubordinates
// well-known attribute a real answer instead of always reporting false.
type HasSubordinatesHook struct {
	Store Store
}

func NewHasSubordinatesHook(st Store) *HasSubordinatesHook {
	return &HasSubordinatesHook{Store: st}
}

func (h *HasSubordinatesHook) HasSubordinates(ctx context.Context, entry *models.Entry) (bool, error) {
	children, err := h.Store.GetChildren(ctx, entry.DN)
	if err != nil {
		return false, fmt.Errorf("hasSubordinates: %w", err)
	}
	return len(children) > 0, nil
}

var _ filter.BackendHook = (*HasSubordinatesHook)(nil)
