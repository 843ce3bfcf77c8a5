package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

type AttendanceRepository struct {
	*base.Repository
}

func NewAttendanceRepository(db base.DBTX) *AttendanceRepository {
	return &AttendanceRepository{Repository: base.NewRepository(db)}
}

const recordColumns = `ar.id, ar.class_id, ar.student_id, ar.status, ar.marked_by, ar.lecturer_id, ar.notes, ar.recorded_at`

func recordDest(rec *model.AttendanceRecord) []any {
	return []any{
		&rec.ID,
		&rec.ClassID,
		&rec.StudentID,
		&rec.Status,
		&rec.MarkedBy,
		&rec.LecturerID,
		&rec.Notes,
		&rec.RecordedAt,
	}
}

func (r *AttendanceRepository) Get(ctx context.Context, classID, studentID int64) (*model.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records ar WHERE ar.class_id = $1 AND ar.student_id = $2`

	var rec model.AttendanceRecord
	if err := r.QueryRow(ctx, query, classID, studentID).Scan(recordDest(&rec)...); err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance record: %w", err)
	}
	rec.RecordedAt = rec.RecordedAt.UTC()
	return &rec, nil
}

const studentRowSelect = `
	SELECT ` + recordColumns + `, c.start_time, c.end_time, co.id, co.code, co.name, co.institution_id
	FROM attendance_records ar
	JOIN classes c ON c.id = ar.class_id
	JOIN courses co ON co.id = c.course_id
`

func scanStudentRow(row pgx.Row) (*model.StudentAttendanceRow, error) {
	var out model.StudentAttendanceRow
	dest := append(recordDest(&out.AttendanceRecord),
		&out.ClassStart,
		&out.ClassEnd,
		&out.CourseID,
		&out.CourseCode,
		&out.CourseName,
		&out.InstitutionID,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	out.RecordedAt = out.RecordedAt.UTC()
	out.ClassStart = out.ClassStart.UTC()
	out.ClassEnd = out.ClassEnd.UTC()
	return &out, nil
}

// GetByID returns a record together with its class and course context.
func (r *AttendanceRepository) GetByID(ctx context.Context, id int64) (*model.StudentAttendanceRow, error) {
	row, err := scanStudentRow(r.QueryRow(ctx, studentRowSelect+` WHERE ar.id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance record by id: %w", err)
	}
	return row, nil
}

// ListByClass orders by student display name, then student id.
func (r *AttendanceRepository) ListByClass(ctx context.Context, classID int64) ([]*model.ClassAttendanceRow, error) {
	query := `
		SELECT ar.id, ar.student_id, u.name, ar.status, ar.marked_by, ar.lecturer_id, ar.recorded_at, ar.notes
		FROM attendance_records ar
		JOIN users u ON u.id = ar.student_id
		WHERE ar.class_id = $1
		ORDER BY u.name, ar.student_id
	`

	rows, err := r.Query(ctx, query, classID)
	if err != nil {
		return nil, fmt.Errorf("list class attendance: %w", err)
	}
	defer rows.Close()

	var out []*model.ClassAttendanceRow
	for rows.Next() {
		var (
			row        model.ClassAttendanceRow
			recordedAt time.Time
		)
		err := rows.Scan(
			&row.RecordID,
			&row.StudentID,
			&row.DisplayName,
			&row.Status,
			&row.MarkedBy,
			&row.LecturerID,
			&recordedAt,
			&row.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan class attendance: %w", err)
		}
		// unmarked rows were only materialized, not recorded
		if row.Status.IsMarked() {
			at := recordedAt.UTC()
			row.RecordedAt = &at
		}
		out = append(out, &row)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func studentFilter(studentID int64, f model.RecordFilter) (string, []any) {
	where := []string{"ar.student_id = $1"}
	args := []any{studentID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if !f.From.IsZero() {
		add("c.start_time >= $%d", f.From.UTC())
	}
	if !f.To.IsZero() {
		add("c.start_time < $%d", f.To.UTC())
	}
	if f.Status != "" {
		add("ar.status = $%d", string(f.Status))
	}
	if f.CourseID != 0 {
		add("c.course_id = $%d", f.CourseID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+likeEscaper.Replace(s)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(co.code ILIKE $%d OR co.name ILIKE $%d)", n, n))
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// ListByStudent returns one page of the student's records, newest class first,
// and the total number of rows matching the filter.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID int64, f model.RecordFilter) ([]*model.StudentAttendanceRow, int, error) {
	where, args := studentFilter(studentID, f)

	var total int
	countQuery := `
		SELECT count(*)
		FROM attendance_records ar
		JOIN classes c ON c.id = ar.class_id
		JOIN courses co ON co.id = c.course_id
	` + where
	if err := r.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count student attendance: %w", err)
	}

	query := studentRowSelect + where + ` ORDER BY c.start_time DESC, ar.id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list student attendance: %w", err)
	}
	defer rows.Close()

	var out []*model.StudentAttendanceRow
	for rows.Next() {
		row, err := scanStudentRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan student attendance: %w", err)
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

// MaterializeRoster inserts an unmarked record for every enrolled student
// that has none yet and returns how many rows were inserted. Concurrent
// callers are absorbed by the (class_id, student_id) constraint.
func (r *AttendanceRepository) MaterializeRoster(ctx context.Context, class *model.Class, now time.Time) (int64, error) {
	query := `
		INSERT INTO attendance_records (class_id, student_id, status, marked_by, recorded_at)
		SELECT $1, cu.user_id, 'unmarked', 'system', $4
		FROM course_users cu
		JOIN users u ON u.id = cu.user_id AND u.role = 'student'
		WHERE cu.course_id = $2 AND cu.semester_id = $3
		ON CONFLICT (class_id, student_id) DO NOTHING
	`
	inserted, err := r.ExecAffected(ctx, query, class.ID, class.CourseID, class.SemesterID, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("materialize roster: %w", err)
	}
	return inserted, nil
}

// Upsert writes rec over any existing record of the same (class, student).
func (r *AttendanceRepository) Upsert(ctx context.Context, rec *model.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (class_id, student_id, status, marked_by, lecturer_id, notes, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (class_id, student_id) DO UPDATE
		SET status = EXCLUDED.status,
		    marked_by = EXCLUDED.marked_by,
		    lecturer_id = EXCLUDED.lecturer_id,
		    notes = EXCLUDED.notes,
		    recorded_at = EXCLUDED.recorded_at
		RETURNING id
	`
	err := r.QueryRow(ctx, query,
		rec.ClassID,
		rec.StudentID,
		rec.Status,
		rec.MarkedBy,
		rec.LecturerID,
		rec.Notes,
		rec.RecordedAt.UTC(),
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("upsert attendance record: %w", err)
	}
	return nil
}

// UpsertSystem is Upsert restricted to rows still owned by the system. A
// system row only moves up: unmarked to anything, late to present. It
// reports false when the existing row was kept.
func (r *AttendanceRepository) UpsertSystem(ctx context.Context, rec *model.AttendanceRecord) (bool, error) {
	query := `
		INSERT INTO attendance_records (class_id, student_id, status, marked_by, recorded_at)
		VALUES ($1, $2, $3, 'system', $4)
		ON CONFLICT (class_id, student_id) DO UPDATE
		SET status = EXCLUDED.status,
		    marked_by = 'system',
		    lecturer_id = NULL,
		    recorded_at = EXCLUDED.recorded_at
		WHERE attendance_records.marked_by = 'system'
		  AND (attendance_records.status = 'unmarked'
		       OR (attendance_records.status = 'late' AND EXCLUDED.status = 'present'))
		RETURNING id
	`
	err := r.QueryRow(ctx, query, rec.ClassID, rec.StudentID, rec.Status, rec.RecordedAt.UTC()).Scan(&rec.ID)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("upsert system attendance record: %w", err)
	}
	rec.MarkedBy = model.MarkedBySystem
	rec.LecturerID = nil
	return true, nil
}
