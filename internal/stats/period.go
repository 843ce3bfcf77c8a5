// Package stats turns raw attendance counts into reports. Nothing here talks
// to the database; the statistics service feeds it snapshot rows.
package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

const trendingAbsenteeLimit = 3

func ParsePeriod(raw string) (Period, error) {
	switch p := Period(raw); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", raw)
}

// Bounds returns the half-open [start, end) window of the period containing
// anchor. Weeks start on Monday. The anchor's location is preserved.
func Bounds(p Period, anchor time.Time) (time.Time, time.Time) {
	day := model.DateOf(anchor)
	switch p {
	case PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case PeriodMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return start, start.AddDate(0, 1, 0)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}

// StatusCounts tallies records by status.
type StatusCounts struct {
	Present  int `json:"present"`
	Absent   int `json:"absent"`
	Late     int `json:"late"`
	Excused  int `json:"excused"`
	Unmarked int `json:"unmarked"`
}

func (c *StatusCounts) Add(status model.AttendanceStatus, n int) {
	switch status {
	case model.AttendanceStatusPresent:
		c.Present += n
	case model.AttendanceStatusAbsent:
		c.Absent += n
	case model.AttendanceStatusLate:
		c.Late += n
	case model.AttendanceStatusExcused:
		c.Excused += n
	case model.AttendanceStatusUnmarked:
		c.Unmarked += n
	}
}

// Marked counts records with a decision.
func (c StatusCounts) Marked() int {
	return c.Present + c.Absent + c.Late + c.Excused
}

func (c StatusCounts) Total() int {
	return c.Marked() + c.Unmarked
}

// Attended counts the statuses treated as present in reports.
func (c StatusCounts) Attended() int {
	return c.Present + c.Late + c.Excused
}

// Percentages computes present/absent shares over marked records only.
// absent is derived from present so the pair always sums to 100 when any
// record is marked.
func Percentages(c StatusCounts) (present, absent int) {
	marked := c.Marked()
	if marked == 0 {
		return 0, 0
	}
	present = int(math.Round(100 * float64(c.Attended()) / float64(marked)))
	return present, 100 - present
}

type Absentee struct {
	StudentID int64  `json:"student_id"`
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Label     string `json:"label"`
}

// AbsenceLabel renders an absence count in the unit used for period p.
func AbsenceLabel(p Period, n int) string {
	unit, plural := "day", "days"
	switch p {
	case PeriodWeek:
		unit, plural = "class", "classes"
	case PeriodMonth:
		unit, plural = "session", "sessions"
	}
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

// TopAbsentees keeps the students with the most absences, ties broken by
// ascending student id, and labels them for period p.
func TopAbsentees(p Period, candidates []Absentee) []Absentee {
	list := make([]Absentee, 0, len(candidates))
	for _, a := range candidates {
		if a.Count > 0 {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].StudentID < list[j].StudentID
	})
	if len(list) > trendingAbsenteeLimit {
		list = list[:trendingAbsenteeLimit]
	}
	for i := range list {
		list[i].Label = AbsenceLabel(p, list[i].Count)
	}
	return list
}

type PeriodReport struct {
	InstitutionID     int64        `json:"institution_id"`
	Period            Period       `json:"period"`
	Start             time.Time    `json:"start"`
	End               time.Time    `json:"end"`
	TotalClasses      int          `json:"total_classes"`
	TotalStudents     int          `json:"total_students"`
	PresentPct        int          `json:"present_pct"`
	AbsentPct         int          `json:"absent_pct"`
	Counts            StatusCounts `json:"counts"`
	TrendingAbsentees []Absentee   `json:"trending_absentees"`
}

// BuildPeriodReport assembles the report from snapshot aggregates.
func BuildPeriodReport(institutionID int64, p Period, start, end time.Time, totalClasses, totalStudents int, counts StatusCounts, absentees []Absentee) PeriodReport {
	present, absent := Percentages(counts)
	return PeriodReport{
		InstitutionID:     institutionID,
		Period:            p,
		Start:             start,
		End:               end,
		TotalClasses:      totalClasses,
		TotalStudents:     totalStudents,
		PresentPct:        present,
		AbsentPct:         absent,
		Counts:            counts,
		TrendingAbsentees: TopAbsentees(p, absentees),
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
