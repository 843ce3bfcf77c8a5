package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
	"github.com/Freeeeeet/attendance_tracker/internal/stats"
)

// StatsRepository runs the aggregate reads behind the statistics service.
// Cancelled classes never contribute.
type StatsRepository struct {
	*base.Repository
}

func NewStatsRepository(db base.DBTX) *StatsRepository {
	return &StatsRepository{Repository: base.NewRepository(db)}
}

// periodClasses selects the institution's held or scheduled classes starting in [$2, $3).
const periodClasses = `
	SELECT c.id, c.course_id, c.semester_id
	FROM classes c
	JOIN courses co ON co.id = c.course_id
	WHERE co.institution_id = $1 AND c.status <> 'cancelled'
	  AND c.start_time >= $2 AND c.start_time < $3
`

// PeriodTotals returns the number of classes and distinct enrolled students
// of the courses those classes belong to.
func (r *StatsRepository) PeriodTotals(ctx context.Context, institutionID int64, start, end time.Time) (classes, students int, err error) {
	query := `
		WITH pc AS (` + periodClasses + `)
		SELECT
			(SELECT count(*) FROM pc),
			(SELECT count(DISTINCT cu.user_id)
			 FROM course_users cu
			 JOIN users u ON u.id = cu.user_id AND u.role = 'student'
			 WHERE (cu.course_id, cu.semester_id) IN (SELECT course_id, semester_id FROM pc))
	`
	if err := r.QueryRow(ctx, query, institutionID, start.UTC(), end.UTC()).Scan(&classes, &students); err != nil {
		return 0, 0, fmt.Errorf("period totals: %w", err)
	}
	return classes, students, nil
}

func (r *StatsRepository) PeriodStatusCounts(ctx context.Context, institutionID int64, start, end time.Time) (stats.StatusCounts, error) {
	query := `
		WITH pc AS (` + periodClasses + `)
		SELECT ar.status, count(*)
		FROM attendance_records ar
		JOIN pc ON pc.id = ar.class_id
		GROUP BY ar.status
	`

	var counts stats.StatusCounts
	rows, err := r.Query(ctx, query, institutionID, start.UTC(), end.UTC())
	if err != nil {
		return counts, fmt.Errorf("period status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status model.AttendanceStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return counts, fmt.Errorf("scan status count: %w", err)
		}
		counts.Add(status, n)
	}
	return counts, rows.Err()
}

// PeriodAbsentees returns up to limit students ranked by absences.
func (r *StatsRepository) PeriodAbsentees(ctx context.Context, institutionID int64, start, end time.Time, limit int) ([]stats.Absentee, error) {
	query := `
		WITH pc AS (` + periodClasses + `)
		SELECT ar.student_id, u.name, count(*) AS absences
		FROM attendance_records ar
		JOIN pc ON pc.id = ar.class_id
		JOIN users u ON u.id = ar.student_id
		WHERE ar.status = 'absent'
		GROUP BY ar.student_id, u.name
		ORDER BY absences DESC, ar.student_id
		LIMIT $4
	`

	rows, err := r.Query(ctx, query, institutionID, start.UTC(), end.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("period absentees: %w", err)
	}
	defer rows.Close()

	var out []stats.Absentee
	for rows.Next() {
		var a stats.Absentee
		if err := rows.Scan(&a.StudentID, &a.Name, &a.Count); err != nil {
			return nil, fmt.Errorf("scan absentee: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CourseClassSamples returns per class: enrolled students of its semester and
// how many of them were present or late.
func (r *StatsRepository) CourseClassSamples(ctx context.Context, courseID int64, start, end time.Time) ([]stats.ClassSample, error) {
	query := `
		SELECT c.id, c.start_time,
			(SELECT count(*)
			 FROM course_users cu
			 JOIN users u ON u.id = cu.user_id AND u.role = 'student'
			 WHERE cu.course_id = c.course_id AND cu.semester_id = c.semester_id),
			(SELECT count(*)
			 FROM attendance_records ar
			 WHERE ar.class_id = c.id AND ar.status IN ('present', 'late'))
		FROM classes c
		WHERE c.course_id = $1 AND c.status <> 'cancelled'
		  AND c.start_time >= $2 AND c.start_time < $3
		ORDER BY c.start_time, c.id
	`

	rows, err := r.Query(ctx, query, courseID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("course class samples: %w", err)
	}
	defer rows.Close()

	var out []stats.ClassSample
	for rows.Next() {
		var s stats.ClassSample
		if err := rows.Scan(&s.ClassID, &s.Start, &s.Enrolled, &s.PresentLate); err != nil {
			return nil, fmt.Errorf("scan class sample: %w", err)
		}
		s.Start = s.Start.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// CourseStudentRates returns a personal rate for every student enrolled in a
// semester that has classes of the course inside the window.
func (r *StatsRepository) CourseStudentRates(ctx context.Context, courseID int64, start, end time.Time) ([]float64, error) {
	query := `
		WITH wc AS (
			SELECT id, semester_id
			FROM classes
			WHERE course_id = $1 AND status <> 'cancelled' AND start_time >= $2 AND start_time < $3
		), enrolled AS (
			SELECT DISTINCT cu.user_id, cu.semester_id
			FROM course_users cu
			JOIN users u ON u.id = cu.user_id AND u.role = 'student'
			WHERE cu.course_id = $1 AND cu.semester_id IN (SELECT semester_id FROM wc)
		)
		SELECT e.user_id,
			count(wc.id),
			count(ar.id) FILTER (WHERE ar.status IN ('present', 'late'))
		FROM enrolled e
		JOIN wc ON wc.semester_id = e.semester_id
		LEFT JOIN attendance_records ar ON ar.class_id = wc.id AND ar.student_id = e.user_id
		GROUP BY e.user_id
		ORDER BY e.user_id
	`

	rows, err := r.Query(ctx, query, courseID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("course student rates: %w", err)
	}
	defer rows.Close()

	var rates []float64
	for rows.Next() {
		var studentID int64
		var classes, attended int
		if err := rows.Scan(&studentID, &classes, &attended); err != nil {
			return nil, fmt.Errorf("scan student rate: %w", err)
		}
		rates = append(rates, stats.PersonalRate(attended, classes))
	}
	return rates, rows.Err()
}

// StudentRecordSamples returns the student's records on classes starting in [start, end).
func (r *StatsRepository) StudentRecordSamples(ctx context.Context, studentID int64, start, end time.Time) ([]stats.RecordSample, error) {
	query := `
		SELECT c.start_time, ar.status
		FROM attendance_records ar
		JOIN classes c ON c.id = ar.class_id
		WHERE ar.student_id = $1 AND c.status <> 'cancelled'
		  AND c.start_time >= $2 AND c.start_time < $3
		ORDER BY c.start_time
	`

	rows, err := r.Query(ctx, query, studentID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("student record samples: %w", err)
	}
	defer rows.Close()

	var out []stats.RecordSample
	for rows.Next() {
		var s stats.RecordSample
		if err := rows.Scan(&s.ClassStart, &s.Status); err != nil {
			return nil, fmt.Errorf("scan record sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
