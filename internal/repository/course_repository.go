package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

// CourseRepository owns courses and the course_users membership table.
type CourseRepository struct {
	*base.Repository
}

func NewCourseRepository(db base.DBTX) *CourseRepository {
	return &CourseRepository{Repository: base.NewRepository(db)}
}

func (r *CourseRepository) Create(ctx context.Context, c *model.Course) error {
	err := r.QueryRow(ctx,
		`INSERT INTO courses (institution_id, code, name, credits) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.InstitutionID, c.Code, c.Name, c.Credits,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	var c model.Course
	err := r.QueryRow(ctx,
		`SELECT id, institution_id, code, name, credits FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.InstitutionID, &c.Code, &c.Name, &c.Credits)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &c, nil
}

// AddMember inserts an enrollment or lecturer assignment. A duplicate triple
// surfaces as a unique violation.
func (r *CourseRepository) AddMember(ctx context.Context, cu model.CourseUser) error {
	_, err := r.DB().Exec(ctx,
		`INSERT INTO course_users (course_id, user_id, semester_id) VALUES ($1, $2, $3)`,
		cu.CourseID, cu.UserID, cu.SemesterID,
	)
	if err != nil {
		return fmt.Errorf("add course member: %w", err)
	}
	return nil
}

func (r *CourseRepository) IsMember(ctx context.Context, cu model.CourseUser) (bool, error) {
	var exists bool
	err := r.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM course_users WHERE course_id = $1 AND user_id = $2 AND semester_id = $3)`,
		cu.CourseID, cu.UserID, cu.SemesterID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check course member: %w", err)
	}
	return exists, nil
}

// MembersWithRole lists user ids of course members holding role in a semester.
func (r *CourseRepository) MembersWithRole(ctx context.Context, courseID, semesterID int64, role model.Role) ([]int64, error) {
	query := `
		SELECT cu.user_id
		FROM course_users cu
		JOIN users u ON u.id = cu.user_id
		WHERE cu.course_id = $1 AND cu.semester_id = $2 AND u.role = $3
		ORDER BY cu.user_id
	`
	return r.collectIDs(ctx, "list course members", query, courseID, semesterID, role)
}

// LecturersOf returns every lecturer assigned to the course in any semester.
func (r *CourseRepository) LecturersOf(ctx context.Context, courseID int64) ([]int64, error) {
	query := `
		SELECT DISTINCT cu.user_id
		FROM course_users cu
		JOIN users u ON u.id = cu.user_id
		WHERE cu.course_id = $1 AND u.role = 'lecturer'
		UNION
		SELECT DISTINCT lecturer_id FROM classes WHERE course_id = $1
	`
	return r.collectIDs(ctx, "list course lecturers", query, courseID)
}

// CoursesOf lists the courses a student is enrolled in; semesterID 0 means any semester.
func (r *CourseRepository) CoursesOf(ctx context.Context, studentID, semesterID int64) ([]int64, error) {
	query := `
		SELECT DISTINCT cu.course_id
		FROM course_users cu
		WHERE cu.user_id = $1 AND ($2::bigint = 0 OR cu.semester_id = $2)
		ORDER BY cu.course_id
	`
	return r.collectIDs(ctx, "list student courses", query, studentID, semesterID)
}

func (r *CourseRepository) collectIDs(ctx context.Context, op, query string, args ...any) ([]int64, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}
