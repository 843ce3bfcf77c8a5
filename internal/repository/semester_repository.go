package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

type SemesterRepository struct {
	*base.Repository
}

func NewSemesterRepository(db base.DBTX) *SemesterRepository {
	return &SemesterRepository{Repository: base.NewRepository(db)}
}

const semesterColumns = `id, institution_id, name, start_date, end_date`

func (r *SemesterRepository) Create(ctx context.Context, s *model.Semester) error {
	query := `
		INSERT INTO semesters (institution_id, name, start_date, end_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := r.QueryRow(ctx, query, s.InstitutionID, s.Name, s.StartDate, s.EndDate).Scan(&s.ID); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}
	return nil
}

func (r *SemesterRepository) GetByID(ctx context.Context, id int64) (*model.Semester, error) {
	var s model.Semester
	err := r.QueryRow(ctx, `SELECT `+semesterColumns+` FROM semesters WHERE id = $1`, id).
		Scan(&s.ID, &s.InstitutionID, &s.Name, &s.StartDate, &s.EndDate)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get semester: %w", err)
	}
	return &s, nil
}

// Current returns the semester containing day; overlapping semesters resolve
// to the latest start date.
func (r *SemesterRepository) Current(ctx context.Context, institutionID int64, day time.Time) (*model.Semester, error) {
	query := `
		SELECT ` + semesterColumns + `
		FROM semesters
		WHERE institution_id = $1 AND start_date <= $2::date AND end_date >= $2::date
		ORDER BY start_date DESC, id DESC
		LIMIT 1
	`

	var s model.Semester
	err := r.QueryRow(ctx, query, institutionID, day.Format(time.DateOnly)).
		Scan(&s.ID, &s.InstitutionID, &s.Name, &s.StartDate, &s.EndDate)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get current semester: %w", err)
	}
	return &s, nil
}
