package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ClassRepository resolves class metadata owned by the roster module.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// GetName returns the display name of a class. Unknown ids yield ("", false, nil).
func (r *ClassRepository) GetName(ctx context.Context, id string) (string, bool, error) {
	var name string
	if err := r.db.GetContext(ctx, &name, "SELECT name FROM classes WHERE id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get class name: %w", err)
	}
	return name, true, nil
}
