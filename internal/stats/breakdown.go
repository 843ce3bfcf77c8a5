package stats

import (
	"time"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
)

const (
	DefaultBreakdownMonths = 4
	goodAttendancePercent  = 90
)

// RecordSample is a student's record positioned at its class start.
type RecordSample struct {
	ClassStart time.Time
	Status     model.AttendanceStatus
}

type MonthSummary struct {
	Year           int        `json:"year"`
	Month          time.Month `json:"month"`
	Label          string     `json:"label"`
	Present        int        `json:"present"`
	Absent         int        `json:"absent"`
	Late           int        `json:"late"`
	Excused        int        `json:"excused"`
	TotalClasses   int        `json:"total_classes"`
	PresentPercent float64    `json:"present_percent"`
	IsGood         bool       `json:"is_good"`
}

// MonthWindow returns [start, end) covering the last months calendar months
// up to and including the month of anchor.
func MonthWindow(anchor time.Time, months int) (time.Time, time.Time) {
	if months <= 0 {
		months = DefaultBreakdownMonths
	}
	current := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	return current.AddDate(0, -(months - 1), 0), current.AddDate(0, 1, 0)
}

// MonthlyBreakdown summarizes samples per month, oldest first. Months with
// no classes are still emitted with zero counts.
func MonthlyBreakdown(anchor time.Time, months int, samples []RecordSample) []MonthSummary {
	start, end := MonthWindow(anchor, months)
	loc := anchor.Location()

	var out []MonthSummary
	index := make(map[time.Time]int)
	for m := start; m.Before(end); m = m.AddDate(0, 1, 0) {
		index[m] = len(out)
		out = append(out, MonthSummary{Year: m.Year(), Month: m.Month(), Label: m.Format("Jan 2006")})
	}

	counts := make([]StatusCounts, len(out))
	for _, s := range samples {
		t := s.ClassStart.In(loc)
		i, ok := index[time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)]
		if !ok {
			continue
		}
		counts[i].Add(s.Status, 1)
	}

	for i := range out {
		c := counts[i]
		out[i].Present = c.Present
		out[i].Absent = c.Absent
		out[i].Late = c.Late
		out[i].Excused = c.Excused
		out[i].TotalClasses = c.Total()
		if c.Total() > 0 {
			out[i].PresentPercent = round1(100 * float64(c.Attended()) / float64(c.Total()))
		}
		out[i].IsGood = out[i].PresentPercent >= goodAttendancePercent
	}
	return out
}
