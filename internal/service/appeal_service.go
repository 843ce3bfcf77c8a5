package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/policy"
	"github.com/Freeeeeet/attendance_tracker/internal/repository"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

const DefaultAppealWindow = 7 * 24 * time.Hour

// AppealService runs the appeal lifecycle: pending, then approved or
// rejected. A pending appeal may be retracted (deleted) by its student.
type AppealService struct {
	uow    unitOfWork
	window time.Duration
	now    Clock
	logger *zap.Logger
}

func NewAppealService(pool base.Pool, window time.Duration, logger *zap.Logger) *AppealService {
	if window <= 0 {
		window = DefaultAppealWindow
	}
	return &AppealService{
		uow:    unitOfWork{pool: pool},
		window: window,
		now:    systemClock,
		logger: logger,
	}
}

type appealInput struct {
	Reason string `json:"reason" validate:"notblank,max=1000"`
}

// CanAppeal returns nil when studentID may appeal the record. Otherwise the
// error carries one of the reasons not_found, unauthorized,
// ineligible_status, duplicate or window_closed, checked in that order.
func (s *AppealService) CanAppeal(ctx context.Context, actor model.Actor, studentID, attendanceID int64) error {
	return s.uow.read(ctx, func(st *repository.Store) error {
		_, err := s.checkEligible(ctx, st, actor, studentID, attendanceID, s.now())
		return err
	})
}

func (s *AppealService) checkEligible(ctx context.Context, st *repository.Store, actor model.Actor, studentID, attendanceID int64, now time.Time) (*model.StudentAttendanceRow, error) {
	rec, err := st.Attendance.GetByID(ctx, attendanceID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("attendance record %d not found", attendanceID)
	}
	if rec.StudentID != studentID {
		return nil, apperr.Forbidden(apperr.ReasonUnauthorized, "record %d belongs to another student", attendanceID)
	}
	target := policy.Target{Resource: policy.ResourceAttendance, InstitutionID: rec.InstitutionID, StudentID: rec.StudentID}
	if err := policy.Authorize(actor, policy.ActionAppeal, target); err != nil {
		return nil, apperr.WithReason(err, apperr.ReasonUnauthorized)
	}
	if !rec.Status.Appealable() {
		return nil, apperr.Ineligible(apperr.ReasonIneligibleStatus, "only absent or late records can be appealed, record is %s", rec.Status)
	}
	exists, err := st.Appeals.ExistsForRecord(ctx, attendanceID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict(apperr.ReasonDuplicate, "record %d already has an appeal", attendanceID)
	}
	if now.Sub(rec.ClassStart) > s.window {
		return nil, apperr.Ineligible(apperr.ReasonWindowClosed, "appeals close %s after the class starts", s.window)
	}
	return rec, nil
}

// CreateAppeal files a pending appeal. Of two concurrent creators for the same
// record exactly one succeeds; the other gets a duplicate conflict.
func (s *AppealService) CreateAppeal(ctx context.Context, actor model.Actor, studentID, attendanceID int64, reason string) (*model.Appeal, error) {
	in := appealInput{Reason: strings.TrimSpace(reason)}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	now := s.now()
	var appeal *model.Appeal
	err := s.uow.write(ctx, func(st *repository.Store) error {
		rec, err := s.checkEligible(ctx, st, actor, studentID, attendanceID, now)
		if err != nil {
			return err
		}
		appeal = &model.Appeal{
			AttendanceID:  attendanceID,
			StudentID:     studentID,
			Reason:        in.Reason,
			CreatedAt:     now,
			InstitutionID: rec.InstitutionID,
			ClassID:       rec.ClassID,
			ClassStart:    rec.ClassStart,
		}
		if err := st.Appeals.Create(ctx, appeal); err != nil {
			if base.IsUniqueViolation(err) {
				return apperr.Conflict(apperr.ReasonDuplicate, "record %d already has an appeal", attendanceID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appeal created",
		zap.Int64("appeal_id", appeal.ID),
		zap.Int64("attendance_id", attendanceID),
		zap.Int64("student_id", studentID),
	)
	return appeal, nil
}

// RetractAppeal deletes the student's own pending appeal.
func (s *AppealService) RetractAppeal(ctx context.Context, actor model.Actor, studentID, appealID int64) error {
	err := s.uow.write(ctx, func(st *repository.Store) error {
		appeal, err := s.requireAppeal(ctx, st, appealID)
		if err != nil {
			return err
		}
		if appeal.StudentID != studentID {
			return apperr.Forbidden(apperr.ReasonForbidden, "appeal %d belongs to another student", appealID)
		}
		target := policy.Target{Resource: policy.ResourceAppeal, InstitutionID: appeal.InstitutionID, StudentID: appeal.StudentID}
		if err := policy.Authorize(actor, policy.ActionAppeal, target); err != nil {
			return apperr.WithReason(err, apperr.ReasonForbidden)
		}
		if !appeal.IsPending() {
			return apperr.Conflict(apperr.ReasonImmutable, "appeal %d is already %s", appealID, appeal.Status)
		}
		deleted, err := st.Appeals.DeletePending(ctx, appealID)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.Conflict(apperr.ReasonImmutable, "appeal %d was decided meanwhile", appealID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Appeal retracted",
		zap.Int64("appeal_id", appealID),
		zap.Int64("student_id", studentID),
	)
	return nil
}

// Adjudicate records an admin decision. Repeating the same decision is a
// no-op; changing a decided appeal is rejected as immutable. Approval turns
// the underlying record into excused in the same transaction.
func (s *AppealService) Adjudicate(ctx context.Context, actor model.Actor, appealID int64, decision model.AppealStatus) (*model.Appeal, error) {
	if !decision.IsTerminal() {
		return nil, apperr.Invalid("decision must be approved or rejected, got %q", decision)
	}

	now := s.now()
	var (
		appeal  *model.Appeal
		changed bool
	)
	err := s.uow.write(ctx, func(st *repository.Store) error {
		var err error
		appeal, err = s.requireAppeal(ctx, st, appealID)
		if err != nil {
			return err
		}
		if actor.Role != model.RoleAdmin {
			return apperr.Forbidden(apperr.ReasonForbidden, "only institution admins decide appeals")
		}
		target := policy.Target{Resource: policy.ResourceAppeal, InstitutionID: appeal.InstitutionID, StudentID: appeal.StudentID}
		if err := policy.Authorize(actor, policy.ActionWrite, target); err != nil {
			return err
		}

		if appeal.Status.IsTerminal() {
			return sameDecision(appeal, decision)
		}
		ok, err := st.Appeals.Decide(ctx, appealID, decision, actor.UserID, now)
		if err != nil {
			return err
		}
		if !ok {
			// decided by a concurrent admin
			latest, err := s.requireAppeal(ctx, st, appealID)
			if err != nil {
				return err
			}
			appeal = latest
			return sameDecision(appeal, decision)
		}

		adminID := actor.UserID
		appeal.Status, appeal.DecidedBy, appeal.DecidedAt = decision, &adminID, &now
		changed = true

		if decision == model.AppealStatusApproved {
			notes := fmt.Sprintf("appeal #%d approved", appealID)
			rec := &model.AttendanceRecord{
				ClassID:    appeal.ClassID,
				StudentID:  appeal.StudentID,
				Status:     model.AttendanceStatusExcused,
				MarkedBy:   model.MarkedByLecturer,
				LecturerID: &adminID,
				Notes:      &notes,
				RecordedAt: now,
			}
			if err := st.Attendance.Upsert(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("Appeal decided",
			zap.Int64("appeal_id", appealID),
			zap.String("decision", string(decision)),
			zap.Int64("admin_id", actor.UserID),
		)
	}
	return appeal, nil
}

func sameDecision(appeal *model.Appeal, decision model.AppealStatus) error {
	if appeal.Status == decision {
		return nil
	}
	return apperr.Conflict(apperr.ReasonImmutable, "appeal %d is already %s", appeal.ID, appeal.Status)
}

// ListForStudent returns the student's appeals, newest first.
func (s *AppealService) ListForStudent(ctx context.Context, actor model.Actor, studentID int64) ([]*model.Appeal, error) {
	var out []*model.Appeal
	err := s.uow.read(ctx, func(st *repository.Store) error {
		student, err := requireUser(ctx, st, studentID)
		if err != nil {
			return err
		}
		target := policy.Target{Resource: policy.ResourceAppeal, InstitutionID: student.InstitutionID, StudentID: studentID}
		if err := policy.Authorize(actor, policy.ActionRead, target); err != nil {
			return err
		}
		out, err = st.Appeals.ListByStudent(ctx, studentID)
		return err
	})
	return out, err
}

// ListPending is the admin queue of undecided appeals.
func (s *AppealService) ListPending(ctx context.Context, actor model.Actor, institutionID int64) ([]*model.Appeal, error) {
	if actor.Role != model.RoleAdmin && actor.Role != model.RolePlatformManager {
		return nil, apperr.Forbidden(apperr.ReasonForbidden, "only admins see the appeal queue")
	}
	target := policy.Target{Resource: policy.ResourceAppeal, InstitutionID: institutionID}
	if err := policy.Authorize(actor, policy.ActionRead, target); err != nil {
		return nil, err
	}

	var out []*model.Appeal
	err := s.uow.read(ctx, func(st *repository.Store) error {
		var err error
		out, err = st.Appeals.ListPending(ctx, institutionID)
		return err
	})
	return out, err
}

func (s *AppealService) requireAppeal(ctx context.Context, st *repository.Store, id int64) (*model.Appeal, error) {
	appeal, err := st.Appeals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appeal == nil {
		return nil, apperr.NotFound("appeal %d not found", id)
	}
	return appeal, nil
}
