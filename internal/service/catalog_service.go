package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/policy"
	"github.com/Freeeeeet/attendance_tracker/internal/repository"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

// CatalogService lets institution admins maintain semesters, courses,
// venues, users, enrollments and the class timetable.
type CatalogService struct {
	uow    unitOfWork
	logger *zap.Logger
}

func NewCatalogService(pool base.Pool, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		uow:    unitOfWork{pool: pool},
		logger: logger,
	}
}

func institutionWrite(actor model.Actor, institutionID int64) error {
	if actor.Role != model.RoleAdmin && actor.Role != model.RolePlatformManager {
		return apperr.Forbidden(apperr.ReasonForbidden, "only institution admins manage the catalog")
	}
	return policy.Authorize(actor, policy.ActionWrite, policy.Target{Resource: policy.ResourceInstitution, InstitutionID: institutionID})
}

func (s *CatalogService) CreateSemester(ctx context.Context, actor model.Actor, semester *model.Semester) error {
	if err := institutionWrite(actor, semester.InstitutionID); err != nil {
		return err
	}
	semester.StartDate, semester.EndDate = model.DateOf(semester.StartDate), model.DateOf(semester.EndDate)
	if err := validateInput(semester); err != nil {
		return err
	}
	err := s.uow.write(ctx, func(st *repository.Store) error {
		return st.Semesters.Create(ctx, semester)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Semester created", zap.Int64("semester_id", semester.ID), zap.Int64("institution_id", semester.InstitutionID))
	return nil
}

// CreateCourse fails with a conflict when the code is taken in the institution.
func (s *CatalogService) CreateCourse(ctx context.Context, actor model.Actor, course *model.Course) error {
	if err := institutionWrite(actor, course.InstitutionID); err != nil {
		return err
	}
	if err := validateInput(course); err != nil {
		return err
	}
	err := s.uow.write(ctx, func(st *repository.Store) error {
		return st.Courses.Create(ctx, course)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Course created", zap.Int64("course_id", course.ID), zap.String("code", course.Code))
	return nil
}

func (s *CatalogService) CreateVenue(ctx context.Context, actor model.Actor, venue *model.Venue) error {
	if err := institutionWrite(actor, venue.InstitutionID); err != nil {
		return err
	}
	if err := validateInput(venue); err != nil {
		return err
	}
	err := s.uow.write(ctx, func(st *repository.Store) error {
		return st.Venues.Create(ctx, venue)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Venue created", zap.Int64("venue_id", venue.ID))
	return nil
}

type newUser struct {
	Name  string     `json:"name" validate:"notblank,max=200"`
	Email string     `json:"email" validate:"required,email"`
	Role  model.Role `json:"role" validate:"required,stored_role,ne=platform_manager"`
}

// CreateUser adds a student, lecturer or admin to the actor's institution.
func (s *CatalogService) CreateUser(ctx context.Context, actor model.Actor, user *model.User) error {
	if err := validateInput(newUser{Name: user.Name, Email: user.Email, Role: user.Role}); err != nil {
		return err
	}
	target := policy.Target{Resource: policy.ResourceUser, InstitutionID: user.InstitutionID, OwnerRole: user.Role}
	if err := policy.Authorize(actor, policy.ActionWrite, target); err != nil {
		return err
	}
	err := s.uow.write(ctx, func(st *repository.Store) error {
		return st.Users.Create(ctx, user)
	})
	if err != nil {
		return err
	}

	s.logger.Info("User created",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Int64("institution_id", user.InstitutionID),
	)
	return nil
}

// Enroll adds a student (enrollment) or lecturer (assignment) to a course
// for a semester. All three rows must belong to the same institution.
func (s *CatalogService) Enroll(ctx context.Context, actor model.Actor, cu model.CourseUser) error {
	err := s.uow.write(ctx, func(st *repository.Store) error {
		course, err := requireCourse(ctx, st, cu.CourseID)
		if err != nil {
			return err
		}
		user, err := requireUser(ctx, st, cu.UserID)
		if err != nil {
			return err
		}
		semester, err := requireSemester(ctx, st, cu.SemesterID)
		if err != nil {
			return err
		}
		if err := institutionWrite(actor, course.InstitutionID); err != nil {
			return err
		}
		if user.InstitutionID != course.InstitutionID || semester.InstitutionID != course.InstitutionID {
			return apperr.Invalid("course, user and semester must belong to the same institution")
		}
		if !user.IsStudent() && !user.IsLecturer() {
			return apperr.Invalid("only students and lecturers can join a course, user %d is %s", user.ID, user.Role)
		}
		if err := st.Courses.AddMember(ctx, cu); err != nil {
			if base.IsUniqueViolation(err) {
				return apperr.Conflict(apperr.ReasonDuplicate, "user %d is already in course %d for semester %d", cu.UserID, cu.CourseID, cu.SemesterID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Course member added",
		zap.Int64("course_id", cu.CourseID),
		zap.Int64("user_id", cu.UserID),
		zap.Int64("semester_id", cu.SemesterID),
	)
	return nil
}

// ScheduleClass validates the timetable entry against its course, venue,
// lecturer and semester before storing it as scheduled.
func (s *CatalogService) ScheduleClass(ctx context.Context, actor model.Actor, class *model.Class) error {
	if !class.StartTime.Before(class.EndTime) {
		return apperr.Invalid("class must start before it ends")
	}
	class.StartTime, class.EndTime = class.StartTime.UTC(), class.EndTime.UTC()
	class.Status = model.ClassStatusScheduled

	err := s.uow.write(ctx, func(st *repository.Store) error {
		course, err := requireCourse(ctx, st, class.CourseID)
		if err != nil {
			return err
		}
		if err := institutionWrite(actor, course.InstitutionID); err != nil {
			return err
		}
		venue, err := st.Venues.GetByID(ctx, class.VenueID)
		if err != nil {
			return err
		}
		if venue == nil {
			return apperr.NotFound("venue %d not found", class.VenueID)
		}
		lecturer, err := requireUser(ctx, st, class.LecturerID)
		if err != nil {
			return err
		}
		semester, err := requireSemester(ctx, st, class.SemesterID)
		if err != nil {
			return err
		}

		if venue.InstitutionID != course.InstitutionID || lecturer.InstitutionID != course.InstitutionID || semester.InstitutionID != course.InstitutionID {
			return apperr.Invalid("course, venue, lecturer and semester must belong to the same institution")
		}
		if !lecturer.IsLecturer() {
			return apperr.Invalid("user %d is not a lecturer", lecturer.ID)
		}

		class.InstitutionID = course.InstitutionID
		class.CourseCode, class.CourseName = course.Code, course.Name
		return st.Classes.Create(ctx, class)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Class scheduled",
		zap.Int64("class_id", class.ID),
		zap.Int64("course_id", class.CourseID),
		zap.Time("start_time", class.StartTime),
	)
	return nil
}

// ListUsers returns the institution's users ordered by name. An empty role
// lists everyone.
func (s *CatalogService) ListUsers(ctx context.Context, actor model.Actor, institutionID int64, role model.Role) ([]*model.User, error) {
	if role != "" && !role.Valid() {
		return nil, apperr.Invalid("unknown role %q", role)
	}
	target := policy.Target{Resource: policy.ResourceInstitution, InstitutionID: institutionID}
	if err := policy.Authorize(actor, policy.ActionRead, target); err != nil {
		return nil, err
	}

	var users []*model.User
	err := s.uow.read(ctx, func(st *repository.Store) error {
		var err error
		users, err = st.Users.ListByInstitution(ctx, institutionID, role)
		return err
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CancelClass may be done by the class lecturer or an admin. Cancelled
// classes drop out of every statistic; their records are kept.
func (s *CatalogService) CancelClass(ctx context.Context, actor model.Actor, classID int64) error {
	err := s.uow.write(ctx, func(st *repository.Store) error {
		class, err := requireClass(ctx, st, classID)
		if err != nil {
			return err
		}
		if actor.Role == model.RoleSystem {
			return apperr.Forbidden(apperr.ReasonForbidden, "system cannot cancel classes")
		}
		if err := policy.Authorize(actor, policy.ActionWrite, classTarget(class)); err != nil {
			return err
		}
		if class.IsCancelled() {
			return nil
		}
		return st.Classes.SetStatus(ctx, classID, model.ClassStatusCancelled)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Class cancelled", zap.Int64("class_id", classID), zap.Int64("user_id", actor.UserID))
	return nil
}

// DeleteUser removes a user together with their enrollments and their
// attendance records as a student.
func (s *CatalogService) DeleteUser(ctx context.Context, actor model.Actor, userID int64) error {
	err := s.uow.write(ctx, func(st *repository.Store) error {
		user, err := requireUser(ctx, st, userID)
		if err != nil {
			return err
		}
		if err := policy.Authorize(actor, policy.ActionWrite, userTarget(user)); err != nil {
			return err
		}
		if actor.Role != model.RoleAdmin {
			return apperr.Forbidden(apperr.ReasonForbidden, "only institution admins delete users")
		}
		if _, err := st.Users.Delete(ctx, userID); err != nil {
			if base.IsForeignKeyViolation(err) {
				return apperr.Conflict(apperr.ReasonImmutable, "user %d still teaches scheduled classes", userID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("User deleted", zap.Int64("user_id", userID), zap.Int64("admin_id", actor.UserID))
	return nil
}
