package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

type AppealRepository struct {
	*base.Repository
}

func NewAppealRepository(db base.DBTX) *AppealRepository {
	return &AppealRepository{Repository: base.NewRepository(db)}
}

const appealSelect = `
	SELECT ap.id, ap.attendance_id, ap.student_id, ap.reason, ap.status, ap.created_at, ap.decided_by, ap.decided_at,
	       co.institution_id, c.id, c.start_time
	FROM attendance_appeals ap
	JOIN attendance_records ar ON ar.id = ap.attendance_id
	JOIN classes c ON c.id = ar.class_id
	JOIN courses co ON co.id = c.course_id
`

func scanAppeal(row pgx.Row) (*model.Appeal, error) {
	var a model.Appeal
	err := row.Scan(
		&a.ID,
		&a.AttendanceID,
		&a.StudentID,
		&a.Reason,
		&a.Status,
		&a.CreatedAt,
		&a.DecidedBy,
		&a.DecidedAt,
		&a.InstitutionID,
		&a.ClassID,
		&a.ClassStart,
	)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.ClassStart = a.ClassStart.UTC()
	return &a, nil
}

// Create inserts a pending appeal. A second appeal for the same record is a
// unique violation.
func (r *AppealRepository) Create(ctx context.Context, a *model.Appeal) error {
	query := `
		INSERT INTO attendance_appeals (attendance_id, student_id, reason, status, created_at)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING id, status, created_at
	`
	err := r.QueryRow(ctx, query, a.AttendanceID, a.StudentID, a.Reason, a.CreatedAt.UTC()).
		Scan(&a.ID, &a.Status, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create appeal: %w", err)
	}
	return nil
}

func (r *AppealRepository) GetByID(ctx context.Context, id int64) (*model.Appeal, error) {
	a, err := scanAppeal(r.QueryRow(ctx, appealSelect+` WHERE ap.id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appeal: %w", err)
	}
	return a, nil
}

func (r *AppealRepository) ExistsForRecord(ctx context.Context, attendanceID int64) (bool, error) {
	var exists bool
	err := r.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM attendance_appeals WHERE attendance_id = $1)`, attendanceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check appeal: %w", err)
	}
	return exists, nil
}

// DeletePending removes the appeal only while it is still pending.
func (r *AppealRepository) DeletePending(ctx context.Context, id int64) (bool, error) {
	affected, err := r.ExecAffected(ctx,
		`DELETE FROM attendance_appeals WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("delete appeal: %w", err)
	}
	return affected > 0, nil
}

// Decide moves a pending appeal to a terminal status. It reports false when
// the appeal was no longer pending.
func (r *AppealRepository) Decide(ctx context.Context, id int64, status model.AppealStatus, adminID int64, at time.Time) (bool, error) {
	affected, err := r.ExecAffected(ctx, `
		UPDATE attendance_appeals
		SET status = $2, decided_by = $3, decided_at = $4
		WHERE id = $1 AND status = 'pending'
	`, id, status, adminID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("decide appeal: %w", err)
	}
	return affected > 0, nil
}

func (r *AppealRepository) ListByStudent(ctx context.Context, studentID int64) ([]*model.Appeal, error) {
	return r.list(ctx, appealSelect+` WHERE ap.student_id = $1 ORDER BY ap.created_at DESC, ap.id DESC`, studentID)
}

// ListPending returns the institution's open appeals, oldest first.
func (r *AppealRepository) ListPending(ctx context.Context, institutionID int64) ([]*model.Appeal, error) {
	return r.list(ctx,
		appealSelect+` WHERE co.institution_id = $1 AND ap.status = 'pending' ORDER BY ap.created_at, ap.id`,
		institutionID)
}

func (r *AppealRepository) list(ctx context.Context, query string, args ...any) ([]*model.Appeal, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appeals: %w", err)
	}
	defer rows.Close()

	var out []*model.Appeal
	for rows.Next() {
		a, err := scanAppeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appeal: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
