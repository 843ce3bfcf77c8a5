package model

import "time"

type ClassStatus string

const (
	ClassStatusScheduled ClassStatus = "scheduled"
	ClassStatusCompleted ClassStatus = "completed"
	ClassStatusCancelled ClassStatus = "cancelled"
)

func (s ClassStatus) Valid() bool {
	switch s {
	case ClassStatusScheduled, ClassStatusCompleted, ClassStatusCancelled:
		return true
	default:
		return false
	}
}

type Class struct {
	ID         int64       `json:"id"`
	CourseID   int64       `json:"course_id"`
	SemesterID int64       `json:"semester_id"`
	VenueID    int64       `json:"venue_id"`
	LecturerID int64       `json:"lecturer_id"`
	StartTime  time.Time   `json:"start_time"` // UTC
	EndTime    time.Time   `json:"end_time"`   // UTC
	Status     ClassStatus `json:"status"`

	// Denormalized from the course row, filled by repository reads.
	InstitutionID int64  `json:"institution_id"`
	CourseCode    string `json:"course_code,omitempty"`
	CourseName    string `json:"course_name,omitempty"`
}

func (c *Class) IsCancelled() bool {
	return c.Status == ClassStatusCancelled
}
