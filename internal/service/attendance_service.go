package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/policy"
	"github.com/Freeeeeet/attendance_tracker/internal/repository"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

const (
	DefaultHistoryPageSize = 10
	maxHistoryPageSize     = 100
)

// AttendanceService owns the attendance store: roster materialization,
// status changes and the read views over records.
type AttendanceService struct {
	uow       unitOfWork
	lateGrace time.Duration
	loc       *time.Location
	now       Clock
	logger    *zap.Logger
}

func NewAttendanceService(pool base.Pool, lateGrace time.Duration, loc *time.Location, logger *zap.Logger) *AttendanceService {
	return &AttendanceService{
		uow:       unitOfWork{pool: pool},
		lateGrace: lateGrace,
		loc:       loc,
		now:       systemClock,
		logger:    logger,
	}
}

// Get returns the record of a student in a class, or nil when it was never created.
func (s *AttendanceService) Get(ctx context.Context, actor model.Actor, classID, studentID int64) (*model.AttendanceRecord, error) {
	var rec *model.AttendanceRecord
	err := s.uow.read(ctx, func(st *repository.Store) error {
		class, err := requireClass(ctx, st, classID)
		if err != nil {
			return err
		}
		if _, err := requireUser(ctx, st, studentID); err != nil {
			return err
		}
		if err := policy.Authorize(actor, policy.ActionRead, recordTarget(class, studentID)); err != nil {
			return err
		}
		rec, err = st.Attendance.Get(ctx, classID, studentID)
		return err
	})
	return rec, err
}

// MaterializeRoster makes sure every enrolled student has a record for the
// class and returns how many were created. Repeated calls return 0.
func (s *AttendanceService) MaterializeRoster(ctx context.Context, actor model.Actor, classID int64) (int64, error) {
	var inserted int64
	err := s.uow.write(ctx, func(st *repository.Store) error {
		class, err := requireClass(ctx, st, classID)
		if err != nil {
			return err
		}
		if err := policy.Authorize(actor, policy.ActionWrite, classTarget(class)); err != nil {
			return err
		}
		inserted, err = st.Attendance.MaterializeRoster(ctx, class, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		s.logger.Info("Roster materialized",
			zap.Int64("class_id", classID),
			zap.Int64("inserted", inserted),
			zap.String("actor_role", string(actor.Role)),
		)
	}
	return inserted, nil
}

// ReadClassAttendance lists the class's records by student name.
func (s *AttendanceService) ReadClassAttendance(ctx context.Context, actor model.Actor, classID int64) ([]*model.ClassAttendanceRow, error) {
	var rows []*model.ClassAttendanceRow
	err := s.uow.read(ctx, func(st *repository.Store) error {
		class, err := requireClass(ctx, st, classID)
		if err != nil {
			return err
		}
		if err := policy.Authorize(actor, policy.ActionRead, classTarget(class)); err != nil {
			return err
		}
		rows, err = st.Attendance.ListByClass(ctx, classID)
		return err
	})
	return rows, err
}

// OpenClassAttendance is what a lecturer sees when opening a class: the
// roster is completed first, then read back in the same transaction.
func (s *AttendanceService) OpenClassAttendance(ctx context.Context, actor model.Actor, classID int64) ([]*model.ClassAttendanceRow, error) {
	var (
		rows     []*model.ClassAttendanceRow
		inserted int64
	)
	err := s.uow.write(ctx, func(st *repository.Store) error {
		class, err := requireClass(ctx, st, classID)
		if err != nil {
			return err
		}
		if err := policy.Authorize(actor, policy.ActionWrite, classTarget(class)); err != nil {
			return err
		}
		if inserted, err = st.Attendance.MaterializeRoster(ctx, class, s.now()); err != nil {
			return err
		}
		rows, err = st.Attendance.ListByClass(ctx, classID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Class attendance opened",
		zap.Int64("class_id", classID),
		zap.Int64("user_id", actor.UserID),
		zap.Int64("inserted", inserted),
	)
	return rows, nil
}

// MarkEntry is one line of a batch mark.
type MarkEntry struct {
	StudentID int64                  `json:"student_id" validate:"required,gt=0"`
	Status    model.AttendanceStatus `json:"status" validate:"required,attendance_status"`
	Notes     *string                `json:"notes" validate:"omitempty,max=500"`
}

// MarkResult reports the outcome of one entry. When any entry fails the
// whole batch is rolled back and Record is nil everywhere.
type MarkResult struct {
	StudentID int64
	Record    *model.AttendanceRecord
	Err       error
}

// Mark sets one student's status on behalf of the class lecturer or an admin.
func (s *AttendanceService) Mark(ctx context.Context, actor model.Actor, classID, studentID int64, status model.AttendanceStatus, notes *string) (*model.AttendanceRecord, error) {
	results, err := s.MarkBatch(ctx, actor, classID, []MarkEntry{{StudentID: studentID, Status: status, Notes: notes}})
	if err != nil {
		return nil, err
	}
	return results[0].Record, nil
}

// MarkBatch applies all entries atomically.
func (s *AttendanceService) MarkBatch(ctx context.Context, actor model.Actor, classID int64, entries []MarkEntry) ([]MarkResult, error) {
	results := make([]MarkResult, len(entries))
	if len(entries) == 0 {
		return results, nil
	}

	for i, e := range entries {
		results[i].StudentID = e.StudentID
	}

	now := s.now()
	err := s.uow.write(ctx, func(st *repository.Store) error {
		class, err := requireClass(ctx, st, classID)
		if err != nil {
			return err
		}
		// Callers outside the class learn nothing about their input.
		if err := policy.Authorize(actor, policy.ActionWrite, classTarget(class)); err != nil {
			return err
		}
		if err := validateEntries(entries, results); err != nil {
			return err
		}
		for i, e := range entries {
			rec, err := s.markOne(ctx, st, actor, class, e, now)
			if err != nil {
				results[i].Err = base.Classify(err)
				return err
			}
			results[i].Record = rec
		}
		return nil
	})
	if err != nil {
		for i := range results {
			results[i].Record = nil
		}
		return results, err
	}

	s.logger.Info("Attendance marked",
		zap.Int64("class_id", classID),
		zap.Int64("user_id", actor.UserID),
		zap.Int("entries", len(entries)),
	)
	return results, nil
}

// validateEntries records every entry's validation error and returns the first.
func validateEntries(entries []MarkEntry, results []MarkResult) error {
	var invalid error
	for i, e := range entries {
		if err := validateInput(e); err != nil {
			if !e.Status.Valid() {
				err = apperr.WithReason(err, apperr.ReasonInvalidStatus)
			}
			results[i].Err = err
			if invalid == nil {
				invalid = err
			}
		}
	}
	return invalid
}

func (s *AttendanceService) markOne(ctx context.Context, st *repository.Store, actor model.Actor, class *model.Class, e MarkEntry, now time.Time) (*model.AttendanceRecord, error) {
	if err := policy.Authorize(actor, policy.ActionWrite, recordTarget(class, e.StudentID)); err != nil {
		return nil, err
	}
	if actor.Role == model.RoleSystem {
		return nil, apperr.Forbidden(apperr.ReasonForbidden, "system marks go through recognition intake")
	}
	if err := s.requireOnRoster(ctx, st, class, e.StudentID); err != nil {
		return nil, err
	}

	lecturerID := actor.UserID
	rec := &model.AttendanceRecord{
		ClassID:    class.ID,
		StudentID:  e.StudentID,
		Status:     e.Status,
		MarkedBy:   model.MarkedByLecturer,
		LecturerID: &lecturerID,
		Notes:      e.Notes,
		RecordedAt: now,
	}
	if err := st.Attendance.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// requireOnRoster accepts students enrolled for the class's semester and
// students who already hold a record from an earlier enrollment.
func (s *AttendanceService) requireOnRoster(ctx context.Context, st *repository.Store, class *model.Class, studentID int64) error {
	student, err := requireUser(ctx, st, studentID)
	if err != nil {
		return err
	}
	if !student.IsStudent() {
		return apperr.NotFound("user %d is not a student", studentID)
	}
	enrolled, err := st.Courses.IsMember(ctx, model.CourseUser{CourseID: class.CourseID, UserID: studentID, SemesterID: class.SemesterID})
	if err != nil {
		return err
	}
	if enrolled {
		return nil
	}
	existing, err := st.Attendance.Get(ctx, class.ID, studentID)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.NotFound("student %d is not on the roster of class %d", studentID, class.ID)
	}
	return nil
}

// HistoryQuery filters a student's history. Month is YYYY-MM in the
// institution's timezone.
type HistoryQuery struct {
	Search   string `json:"search" validate:"max=100"`
	Status   string `json:"status" validate:"omitempty,attendance_status"`
	Month    string `json:"month" validate:"omitempty,datetime=2006-01"`
	CourseID int64  `json:"course_id" validate:"gte=0"`
	Page     int    `json:"page" validate:"gte=1"`
	PerPage  int    `json:"per_page" validate:"gte=0,lte=100"`
}

type HistoryPage struct {
	Rows       []*model.StudentAttendanceRow `json:"rows"`
	Page       int                           `json:"page"`
	PerPage    int                           `json:"per_page"`
	Total      int                           `json:"total"`
	TotalPages int                           `json:"total_pages"`
}

// StudentHistory pages through a student's records, newest class first.
func (s *AttendanceService) StudentHistory(ctx context.Context, actor model.Actor, studentID int64, q HistoryQuery) (*HistoryPage, error) {
	if err := validateInput(q); err != nil {
		return nil, err
	}
	perPage := q.PerPage
	if perPage == 0 {
		perPage = DefaultHistoryPageSize
	}
	perPage = min(perPage, maxHistoryPageSize)

	filter := model.RecordFilter{
		Status:   model.AttendanceStatus(q.Status),
		CourseID: q.CourseID,
		Search:   q.Search,
		Limit:    perPage,
		Offset:   (q.Page - 1) * perPage,
	}
	if q.Month != "" {
		month, err := time.ParseInLocation("2006-01", q.Month, s.loc)
		if err != nil {
			return nil, apperr.Invalid("month %q: %v", q.Month, err)
		}
		filter.From, filter.To = month, month.AddDate(0, 1, 0)
	}

	page := &HistoryPage{Page: q.Page, PerPage: perPage}
	err := s.uow.read(ctx, func(st *repository.Store) error {
		student, err := requireUser(ctx, st, studentID)
		if err != nil {
			return err
		}
		target := policy.Target{Resource: policy.ResourceAttendance, InstitutionID: student.InstitutionID, StudentID: studentID}
		if err := policy.Authorize(actor, policy.ActionRead, target); err != nil {
			return err
		}
		page.Rows, page.Total, err = st.Attendance.ListByStudent(ctx, studentID, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	page.TotalPages = (page.Total + perPage - 1) / perPage
	return page, nil
}

// CompleteEndedClasses closes every scheduled class that has already ended.
func (s *AttendanceService) CompleteEndedClasses(ctx context.Context) (int64, error) {
	var completed int64
	err := s.uow.write(ctx, func(st *repository.Store) error {
		var err error
		completed, err = st.Classes.CompleteEnded(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("complete ended classes: %w", err)
	}
	if completed > 0 {
		s.logger.Info("Classes completed", zap.Int64("count", completed))
	}
	return completed, nil
}

// MaterializeUpcoming creates rosters for classes that are running or start
// within lookahead, acting as the system of each class's institution.
func (s *AttendanceService) MaterializeUpcoming(ctx context.Context, lookahead time.Duration) (int64, error) {
	now := s.now()
	var classes []*model.Class
	err := s.uow.read(ctx, func(st *repository.Store) error {
		var err error
		classes, err = st.Classes.ListActiveBetween(ctx, now, now.Add(lookahead))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("list upcoming classes: %w", err)
	}

	var total int64
	for _, class := range classes {
		n, err := s.MaterializeRoster(ctx, model.SystemActor(class.InstitutionID), class.ID)
		if err != nil {
			s.logger.Error("Failed to materialize roster",
				zap.Int64("class_id", class.ID),
				zap.Error(err),
			)
			continue
		}
		total += n
	}
	return total, nil
}
