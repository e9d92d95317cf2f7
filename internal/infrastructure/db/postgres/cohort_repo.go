package postgres

import (
	"context"
	"database/sql"
)

// CohortRepo resolves the geographic cohorts a user belongs to. The table is
// owned by the community app; we only read it.
type CohortRepo struct {
	db *sql.DB
}

func NewCohortRepo(db *sql.DB) *CohortRepo { return &CohortRepo{db: db} }

func (r *CohortRepo) Cohorts(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, userCohortsSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
