package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/policy"
	"github.com/Freeeeeet/attendance_tracker/internal/repository"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

// EnrollmentService resolves who belongs to which course and semester.
type EnrollmentService struct {
	uow    unitOfWork
	loc    *time.Location
	now    Clock
	logger *zap.Logger
}

func NewEnrollmentService(pool base.Pool, loc *time.Location, logger *zap.Logger) *EnrollmentService {
	return &EnrollmentService{
		uow:    unitOfWork{pool: pool},
		loc:    loc,
		now:    systemClock,
		logger: logger,
	}
}

// StudentsOf lists the students enrolled in a course for a semester.
func (s *EnrollmentService) StudentsOf(ctx context.Context, actor model.Actor, courseID, semesterID int64) ([]int64, error) {
	var ids []int64
	err := s.uow.read(ctx, func(st *repository.Store) error {
		course, err := requireCourse(ctx, st, courseID)
		if err != nil {
			return err
		}
		if _, err := requireSemester(ctx, st, semesterID); err != nil {
			return err
		}
		lecturers, err := st.Courses.LecturersOf(ctx, courseID)
		if err != nil {
			return err
		}
		target := policy.Target{Resource: policy.ResourceCourse, InstitutionID: course.InstitutionID, LecturerIDs: lecturers}
		if err := policy.Authorize(actor, policy.ActionRead, target); err != nil {
			return err
		}
		ids, err = studentsOf(ctx, st, courseID, semesterID)
		return err
	})
	return ids, err
}

// CoursesOf lists a student's courses; semesterID 0 spans all semesters.
func (s *EnrollmentService) CoursesOf(ctx context.Context, actor model.Actor, studentID, semesterID int64) ([]int64, error) {
	var ids []int64
	err := s.uow.read(ctx, func(st *repository.Store) error {
		student, err := requireUser(ctx, st, studentID)
		if err != nil {
			return err
		}
		if semesterID != 0 {
			if _, err := requireSemester(ctx, st, semesterID); err != nil {
				return err
			}
		}
		if err := policy.Authorize(actor, policy.ActionRead, userTarget(student)); err != nil {
			return err
		}
		ids, err = st.Courses.CoursesOf(ctx, studentID, semesterID)
		return err
	})
	return ids, err
}

// CurrentSemester returns the semester containing the institution-local date
// of at, or nil when none does. A zero at means today.
func (s *EnrollmentService) CurrentSemester(ctx context.Context, actor model.Actor, institutionID int64, at time.Time) (*model.Semester, error) {
	target := policy.Target{Resource: policy.ResourceSemester, InstitutionID: institutionID}
	if err := policy.Authorize(actor, policy.ActionRead, target); err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = s.now()
	}
	day := model.DateOf(at.In(s.loc))

	var semester *model.Semester
	err := s.uow.read(ctx, func(st *repository.Store) error {
		var err error
		semester, err = st.Semesters.Current(ctx, institutionID, day)
		return err
	})
	return semester, err
}

// LecturerSchedule lists the classes a lecturer teaches that start on the
// local dates from through to, inclusive.
func (s *EnrollmentService) LecturerSchedule(ctx context.Context, actor model.Actor, lecturerID int64, from, to time.Time) ([]*model.Class, error) {
	start := model.DateOf(from.In(s.loc))
	end := model.DateOf(to.In(s.loc)).AddDate(0, 0, 1)
	if !start.Before(end) {
		return nil, apperr.Invalid("schedule window is empty")
	}

	var classes []*model.Class
	err := s.uow.read(ctx, func(st *repository.Store) error {
		lecturer, err := requireUser(ctx, st, lecturerID)
		if err != nil {
			return err
		}
		if err := policy.Authorize(actor, policy.ActionRead, userTarget(lecturer)); err != nil {
			return err
		}
		classes, err = st.Classes.ListByLecturer(ctx, lecturerID, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return classes, nil
}

func studentsOf(ctx context.Context, st *repository.Store, courseID, semesterID int64) ([]int64, error) {
	return st.Courses.MembersWithRole(ctx, courseID, semesterID, model.RoleStudent)
}

func requireCourse(ctx context.Context, st *repository.Store, id int64) (*model.Course, error) {
	course, err := st.Courses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, apperr.NotFound("course %d not found", id)
	}
	return course, nil
}

func requireSemester(ctx context.Context, st *repository.Store, id int64) (*model.Semester, error) {
	semester, err := st.Semesters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if semester == nil {
		return nil, apperr.NotFound("semester %d not found", id)
	}
	return semester, nil
}

func requireUser(ctx context.Context, st *repository.Store, id int64) (*model.User, error) {
	user, err := st.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user %d not found", id)
	}
	return user, nil
}

func requireClass(ctx context.Context, st *repository.Store, id int64) (*model.Class, error) {
	class, err := st.Classes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if class == nil {
		return nil, apperr.NotFound("class %d not found", id)
	}
	return class, nil
}

func userTarget(u *model.User) policy.Target {
	return policy.Target{
		Resource:      policy.ResourceUser,
		InstitutionID: u.InstitutionID,
		OwnerID:       u.ID,
		OwnerRole:     u.Role,
	}
}

func classTarget(c *model.Class) policy.Target {
	return policy.Target{
		Resource:      policy.ResourceClass,
		InstitutionID: c.InstitutionID,
		LecturerIDs:   []int64{c.LecturerID},
	}
}

func recordTarget(c *model.Class, studentID int64) policy.Target {
	return policy.Target{
		Resource:      policy.ResourceAttendance,
		InstitutionID: c.InstitutionID,
		StudentID:     studentID,
		LecturerIDs:   []int64{c.LecturerID},
	}
}
