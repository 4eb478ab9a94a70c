package store

import (
	"context"
	"fmt"
)

// GetProtectedAttributes returns the attribute descriptions configured in
// acl_protected_attributes, backing acl.GroupGatedAccessOracle. An empty
// table is a valid "nothing protected" configuration, distinct from the
// error case.
func (s *SQLiteStore) GetProtectedAttributes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT attribute FROM acl_protected_attributes ORDER BY attribute`)
	if err != nil {
		return nil, fmt.Errorf("failed to list protected attributes: %w", err)
	}
	defer rows.Close()

	var attrs []string
	for rows.Next() {
		var attr string
		if err := rows.Scan(&attr); err != nil {
			return nil, fmt.Errorf("failed to scan protected attribute: %w", err)
		}
		attrs = append(attrs, attr)
	}
	return attrs, rows.Err()
}
