package model

import "time"

type Institution struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Semester dates are calendar dates; EndDate is inclusive.
type Semester struct {
	ID            int64     `json:"id"`
	InstitutionID int64     `json:"institution_id"`
	Name          string    `json:"name" validate:"required,max=100"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
}

// Contains checks if the calendar date of at falls inside the semester.
func (s *Semester) Contains(at time.Time) bool {
	day := DateOf(at)
	return !day.Before(DateOf(s.StartDate)) && !day.After(DateOf(s.EndDate))
}

type Course struct {
	ID            int64  `json:"id"`
	InstitutionID int64  `json:"institution_id"`
	Code          string `json:"code" validate:"required,max=20"`
	Name          string `json:"name" validate:"required,max=200"`
	Credits       int    `json:"credits" validate:"gte=0,lte=60"`
}

type Venue struct {
	ID            int64  `json:"id"`
	InstitutionID int64  `json:"institution_id"`
	Name          string `json:"name" validate:"required,max=100"`
	Capacity      int    `json:"capacity" validate:"gte=0"`
}

// CourseUser is an enrollment for students and an assignment for lecturers.
type CourseUser struct {
	CourseID   int64 `json:"course_id"`
	UserID     int64 `json:"user_id"`
	SemesterID int64 `json:"semester_id"`
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
