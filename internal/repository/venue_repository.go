package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

type VenueRepository struct {
	*base.Repository
}

func NewVenueRepository(db base.DBTX) *VenueRepository {
	return &VenueRepository{Repository: base.NewRepository(db)}
}

func (r *VenueRepository) Create(ctx context.Context, v *model.Venue) error {
	err := r.QueryRow(ctx,
		`INSERT INTO venues (institution_id, name, capacity) VALUES ($1, $2, $3) RETURNING id`,
		v.InstitutionID, v.Name, v.Capacity,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("create venue: %w", err)
	}
	return nil
}

func (r *VenueRepository) GetByID(ctx context.Context, id int64) (*model.Venue, error) {
	var v model.Venue
	err := r.QueryRow(ctx,
		`SELECT id, institution_id, name, capacity FROM venues WHERE id = $1`, id,
	).Scan(&v.ID, &v.InstitutionID, &v.Name, &v.Capacity)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}
	return &v, nil
}
