package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

type ClassRepository struct {
	*base.Repository
}

func NewClassRepository(db base.DBTX) *ClassRepository {
	return &ClassRepository{Repository: base.NewRepository(db)}
}

const classSelect = `
	SELECT c.id, c.course_id, c.semester_id, c.venue_id, c.lecturer_id, c.start_time, c.end_time, c.status,
	       co.institution_id, co.code, co.name
	FROM classes c
	JOIN courses co ON co.id = c.course_id
`

func scanClass(row pgx.Row) (*model.Class, error) {
	var c model.Class
	err := row.Scan(
		&c.ID,
		&c.CourseID,
		&c.SemesterID,
		&c.VenueID,
		&c.LecturerID,
		&c.StartTime,
		&c.EndTime,
		&c.Status,
		&c.InstitutionID,
		&c.CourseCode,
		&c.CourseName,
	)
	if err != nil {
		return nil, err
	}
	c.StartTime = c.StartTime.UTC()
	c.EndTime = c.EndTime.UTC()
	return &c, nil
}

func (r *ClassRepository) Create(ctx context.Context, c *model.Class) error {
	query := `
		INSERT INTO classes (course_id, semester_id, venue_id, lecturer_id, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.QueryRow(ctx, query,
		c.CourseID,
		c.SemesterID,
		c.VenueID,
		c.LecturerID,
		c.StartTime.UTC(),
		c.EndTime.UTC(),
		c.Status,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

func (r *ClassRepository) GetByID(ctx context.Context, id int64) (*model.Class, error) {
	c, err := scanClass(r.QueryRow(ctx, classSelect+` WHERE c.id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get class: %w", err)
	}
	return c, nil
}

func (r *ClassRepository) SetStatus(ctx context.Context, id int64, status model.ClassStatus) error {
	affected, err := r.ExecAffected(ctx, `UPDATE classes SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("set class status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("class %d not found", id)
	}
	return nil
}

// CompleteEnded flips scheduled classes that ended before now to completed.
func (r *ClassRepository) CompleteEnded(ctx context.Context, now time.Time) (int64, error) {
	affected, err := r.ExecAffected(ctx,
		`UPDATE classes SET status = 'completed' WHERE status = 'scheduled' AND end_time < $1`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("complete ended classes: %w", err)
	}
	return affected, nil
}

// ListActiveBetween returns scheduled classes overlapping [from, to).
func (r *ClassRepository) ListActiveBetween(ctx context.Context, from, to time.Time) ([]*model.Class, error) {
	query := classSelect + `
		WHERE c.status = 'scheduled' AND c.start_time < $2 AND c.end_time > $1
		ORDER BY c.start_time, c.id
	`
	return r.list(ctx, query, from.UTC(), to.UTC())
}

// ListByLecturer returns the lecturer's classes starting in [from, to).
func (r *ClassRepository) ListByLecturer(ctx context.Context, lecturerID int64, from, to time.Time) ([]*model.Class, error) {
	query := classSelect + `
		WHERE c.lecturer_id = $1 AND c.start_time >= $2 AND c.start_time < $3
		ORDER BY c.start_time, c.id
	`
	return r.list(ctx, query, lecturerID, from.UTC(), to.UTC())
}

func (r *ClassRepository) list(ctx context.Context, query string, args ...any) ([]*model.Class, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	var classes []*model.Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}
