package model

import (
	"fmt"
	"time"
)

type AttendanceStatus string

const (
	AttendanceStatusPresent  AttendanceStatus = "present"
	AttendanceStatusAbsent   AttendanceStatus = "absent"
	AttendanceStatusLate     AttendanceStatus = "late"
	AttendanceStatusExcused  AttendanceStatus = "excused"
	AttendanceStatusUnmarked AttendanceStatus = "unmarked"
)

// AttendanceStatuses lists the closed status set in display order.
var AttendanceStatuses = []AttendanceStatus{
	AttendanceStatusPresent,
	AttendanceStatusAbsent,
	AttendanceStatusLate,
	AttendanceStatusExcused,
	AttendanceStatusUnmarked,
}

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate,
		AttendanceStatusExcused, AttendanceStatusUnmarked:
		return true
	default:
		return false
	}
}

// IsMarked is true for every status except unmarked.
func (s AttendanceStatus) IsMarked() bool {
	return s.Valid() && s != AttendanceStatusUnmarked
}

// Appealable statuses are the ones a student may contest.
func (s AttendanceStatus) Appealable() bool {
	return s == AttendanceStatusAbsent || s == AttendanceStatusLate
}

// ParseAttendanceStatus rejects anything outside the closed status set.
func ParseAttendanceStatus(raw string) (AttendanceStatus, error) {
	s := AttendanceStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown attendance status %q", raw)
	}
	return s, nil
}

type MarkedBy string

const (
	MarkedBySystem   MarkedBy = "system"
	MarkedByLecturer MarkedBy = "lecturer"
)

func (m MarkedBy) Valid() bool {
	return m == MarkedBySystem || m == MarkedByLecturer
}

type AttendanceRecord struct {
	ID         int64            `json:"id"`
	ClassID    int64            `json:"class_id"`
	StudentID  int64            `json:"student_id"`
	Status     AttendanceStatus `json:"status"`
	MarkedBy   MarkedBy         `json:"marked_by"`
	LecturerID *int64           `json:"lecturer_id"`
	Notes      *string          `json:"notes"`
	RecordedAt time.Time        `json:"recorded_at"` // UTC
}

// ClassAttendanceRow is one line of a class roster view.
type ClassAttendanceRow struct {
	RecordID    int64            `json:"record_id"`
	StudentID   int64            `json:"student_id"`
	DisplayName string           `json:"display_name"`
	Status      AttendanceStatus `json:"status"`
	MarkedBy    MarkedBy         `json:"marked_by"`
	LecturerID  *int64           `json:"lecturer_id"`
	RecordedAt  *time.Time       `json:"recorded_at,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
}

// StudentAttendanceRow is one line of a student's history.
type StudentAttendanceRow struct {
	AttendanceRecord
	ClassStart    time.Time `json:"class_start"`
	ClassEnd      time.Time `json:"class_end"`
	CourseID      int64     `json:"course_id"`
	CourseCode    string    `json:"course_code"`
	CourseName    string    `json:"course_name"`
	InstitutionID int64     `json:"institution_id"`
}

// RecordFilter narrows list_by_student; zero values mean "no filter".
type RecordFilter struct {
	From     time.Time
	To       time.Time // exclusive
	Status   AttendanceStatus
	CourseID int64
	Search   string // course code or name, case-insensitive
	Limit    int
	Offset   int
}
