package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/policy"
	"github.com/Freeeeeet/attendance_tracker/internal/repository"
)

// Sighting is one face match reported by the recognition pipeline.
type Sighting struct {
	StudentID int64
	SeenAt    time.Time
}

type RecognitionBatch struct {
	ID        uuid.UUID
	ClassID   int64
	Sightings []Sighting
}

// Outcomes of a single sighting.
const (
	SightingApplied  = "applied"
	SightingKept     = "kept_lecturer_mark"
	SightingEarlier  = "kept_earlier_sighting"
	SightingNotFound = apperr.ReasonNotFound
)

type SightingResult struct {
	StudentID int64
	Status    model.AttendanceStatus
	Outcome   string
}

type RecognitionReport struct {
	BatchID uuid.UUID
	ClassID int64
	Results []SightingResult
}

// StatusForSighting is present up to start+grace and late afterwards.
func StatusForSighting(classStart, seenAt time.Time, grace time.Duration) model.AttendanceStatus {
	if seenAt.After(classStart.Add(grace)) {
		return model.AttendanceStatusLate
	}
	return model.AttendanceStatusPresent
}

// dedupeSightings keeps the earliest sighting per student, in first-seen order.
func dedupeSightings(in []Sighting) []Sighting {
	index := make(map[int64]int, len(in))
	out := make([]Sighting, 0, len(in))
	for _, s := range in {
		if i, ok := index[s.StudentID]; ok {
			if s.SeenAt.Before(out[i].SeenAt) {
				out[i].SeenAt = s.SeenAt
			}
			continue
		}
		index[s.StudentID] = len(out)
		out = append(out, s)
	}
	return out
}

// RecordRecognition writes system marks for one class in a single
// transaction. Records already decided by a lecturer or admin are left as
// they are, and an earlier system mark is only ever upgraded from late to
// present. Sightings of students not on the roster are reported, not stored.
func (s *AttendanceService) RecordRecognition(ctx context.Context, actor model.Actor, batch RecognitionBatch) (*RecognitionReport, error) {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	if actor.Role != model.RoleSystem {
		return nil, apperr.Forbidden(apperr.ReasonForbidden, "recognition intake is reserved to the system")
	}

	report := &RecognitionReport{BatchID: batch.ID, ClassID: batch.ClassID}
	sightings := dedupeSightings(batch.Sightings)
	now := s.now()

	err := s.uow.write(ctx, func(st *repository.Store) error {
		report.Results = report.Results[:0]

		class, err := requireClass(ctx, st, batch.ClassID)
		if err != nil {
			return err
		}
		if err := policy.Authorize(actor, policy.ActionWrite, classTarget(class)); err != nil {
			return err
		}
		if class.IsCancelled() {
			return apperr.Invalid("class %d is cancelled", class.ID)
		}

		for _, sg := range sightings {
			res := SightingResult{StudentID: sg.StudentID, Status: StatusForSighting(class.StartTime, sg.SeenAt, s.lateGrace)}

			if err := s.requireOnRoster(ctx, st, class, sg.StudentID); err != nil {
				if !apperr.Is(err, apperr.KindNotFound) {
					return err
				}
				res.Outcome = SightingNotFound
				report.Results = append(report.Results, res)
				continue
			}

			rec := &model.AttendanceRecord{ClassID: class.ID, StudentID: sg.StudentID, Status: res.Status, RecordedAt: now}
			applied, err := st.Attendance.UpsertSystem(ctx, rec)
			if err != nil {
				return err
			}
			res.Outcome = SightingApplied
			if !applied {
				existing, err := st.Attendance.Get(ctx, class.ID, sg.StudentID)
				if err != nil {
					return err
				}
				res.Outcome = SightingKept
				if existing != nil && existing.MarkedBy == model.MarkedBySystem {
					res.Outcome = SightingEarlier
				}
			}
			report.Results = append(report.Results, res)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Recognition batch failed",
			zap.String("batch_id", batch.ID.String()),
			zap.Int64("class_id", batch.ClassID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Recognition batch recorded",
		zap.String("batch_id", batch.ID.String()),
		zap.Int64("class_id", batch.ClassID),
		zap.Int("sightings", len(sightings)),
	)
	return report, nil
}
