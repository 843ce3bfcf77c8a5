package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

type InstitutionRepository struct {
	*base.Repository
}

func NewInstitutionRepository(db base.DBTX) *InstitutionRepository {
	return &InstitutionRepository{Repository: base.NewRepository(db)}
}

func (r *InstitutionRepository) Create(ctx context.Context, inst *model.Institution) error {
	err := r.QueryRow(ctx,
		`INSERT INTO institutions (name) VALUES ($1) RETURNING id, created_at`,
		inst.Name,
	).Scan(&inst.ID, &inst.CreatedAt)
	if err != nil {
		return fmt.Errorf("create institution: %w", err)
	}
	return nil
}

func (r *InstitutionRepository) GetByID(ctx context.Context, id int64) (*model.Institution, error) {
	var inst model.Institution
	err := r.QueryRow(ctx,
		`SELECT id, name, created_at FROM institutions WHERE id = $1`, id,
	).Scan(&inst.ID, &inst.Name, &inst.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get institution: %w", err)
	}
	return &inst, nil
}
