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
	"github.com/Freeeeeet/attendance_tracker/internal/stats"
)

const maxBreakdownMonths = 24

// StatisticsService computes reports from one repeatable-read snapshot per call.
type StatisticsService struct {
	uow    unitOfWork
	loc    *time.Location
	now    Clock
	logger *zap.Logger
}

func NewStatisticsService(pool base.Pool, loc *time.Location, logger *zap.Logger) *StatisticsService {
	return &StatisticsService{
		uow:    unitOfWork{pool: pool},
		loc:    loc,
		now:    systemClock,
		logger: logger,
	}
}

// localDay reads the calendar date of t as a date in the institution's timezone.
func (s *StatisticsService) localDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// PeriodReport summarizes the institution's classes in the day, week or
// month containing anchor.
func (s *StatisticsService) PeriodReport(ctx context.Context, actor model.Actor, institutionID int64, period stats.Period, anchor time.Time) (*stats.PeriodReport, error) {
	if _, err := stats.ParsePeriod(string(period)); err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	target := policy.Target{Resource: policy.ResourceInstitution, InstitutionID: institutionID}
	if err := policy.Authorize(actor, policy.ActionRead, target); err != nil {
		return nil, err
	}
	if anchor.IsZero() {
		anchor = s.now().In(s.loc)
	}
	start, end := stats.Bounds(period, s.localDay(anchor))

	var report stats.PeriodReport
	err := s.uow.read(ctx, func(st *repository.Store) error {
		classes, students, err := st.Stats.PeriodTotals(ctx, institutionID, start, end)
		if err != nil {
			return err
		}
		counts, err := st.Stats.PeriodStatusCounts(ctx, institutionID, start, end)
		if err != nil {
			return err
		}
		absentees, err := st.Stats.PeriodAbsentees(ctx, institutionID, start, end, 3)
		if err != nil {
			return err
		}
		report = stats.BuildPeriodReport(institutionID, period, start, end, classes, students, counts, absentees)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// CourseTrend buckets the course's attendance between the local dates of
// start and end, both inclusive, and adds the band distribution. Empty
// buckets after the last class are not emitted, so the series may end
// before end.
func (s *StatisticsService) CourseTrend(ctx context.Context, actor model.Actor, courseID int64, start, end time.Time) (*stats.CourseTrend, error) {
	from, to := s.localDay(start), s.localDay(end)
	if to.Before(from) {
		return nil, apperr.Invalid("end %s is before start %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	g := stats.GranularityFor(from, to)
	until := to.AddDate(0, 0, 1)

	trend := &stats.CourseTrend{CourseID: courseID, Start: from, End: to, Granularity: g}
	err := s.uow.read(ctx, func(st *repository.Store) error {
		course, err := requireCourse(ctx, st, courseID)
		if err != nil {
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

		samples, err := st.Stats.CourseClassSamples(ctx, courseID, from, until)
		if err != nil {
			return err
		}
		rates, err := st.Stats.CourseStudentRates(ctx, courseID, from, until)
		if err != nil {
			return err
		}

		trend.Points = stats.BuildTrend(g, from, to, s.loc, samples)
		trend.Distribution = stats.Distribute(rates)
		trend.OverallRate = stats.OverallRate(samples)
		trend.TotalClasses = len(samples)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trend, nil
}

// MonthlyBreakdown returns the student's last months calendar months,
// oldest first, ending with the current month.
func (s *StatisticsService) MonthlyBreakdown(ctx context.Context, actor model.Actor, studentID int64, months int) ([]stats.MonthSummary, error) {
	if months < 0 || months > maxBreakdownMonths {
		return nil, apperr.Invalid("months must be between 1 and %d", maxBreakdownMonths)
	}
	if months == 0 {
		months = stats.DefaultBreakdownMonths
	}
	anchor := s.now().In(s.loc)
	start, end := stats.MonthWindow(anchor, months)

	var out []stats.MonthSummary
	err := s.uow.read(ctx, func(st *repository.Store) error {
		student, err := requireUser(ctx, st, studentID)
		if err != nil {
			return err
		}
		target := policy.Target{Resource: policy.ResourceAttendance, InstitutionID: student.InstitutionID, StudentID: studentID}
		if err := policy.Authorize(actor, policy.ActionRead, target); err != nil {
			return err
		}
		samples, err := st.Stats.StudentRecordSamples(ctx, studentID, start, end)
		if err != nil {
			return err
		}
		out = stats.MonthlyBreakdown(anchor, months, samples)
		return nil
	})
	return out, err
}
