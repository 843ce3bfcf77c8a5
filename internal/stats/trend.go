package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
)

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

const (
	maxDailyPoints = 7
	maxPoints      = 5
)

// GranularityFor picks the bucket size from the calendar length of the window.
func GranularityFor(start, end time.Time) Granularity {
	days := calendarDays(start, end)
	switch {
	case days <= 7:
		return GranularityDay
	case days <= 35:
		return GranularityWeek
	default:
		return GranularityMonth
	}
}

func calendarDays(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	s := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

func bucketStart(g Granularity, t time.Time) time.Time {
	day := model.DateOf(t)
	switch g {
	case GranularityWeek:
		return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	case GranularityMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

func nextBucket(g Granularity, t time.Time) time.Time {
	switch g {
	case GranularityWeek:
		return t.AddDate(0, 0, 7)
	case GranularityMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// BucketLabel formats a bucket start for the x-axis.
func BucketLabel(g Granularity, t time.Time) string {
	switch g {
	case GranularityWeek:
		_, week := t.ISOWeek()
		return fmt.Sprintf("W%02d", week)
	case GranularityMonth:
		return t.Format("Jan")
	default:
		return t.Format("Mon 02")
	}
}

// ClassSample is one non-cancelled class of the course inside the window.
type ClassSample struct {
	ClassID     int64
	Start       time.Time
	Enrolled    int
	PresentLate int
}

type TrendPoint struct {
	Label   string    `json:"label"`
	Start   time.Time `json:"start"`
	Classes int       `json:"classes"`
	Rate    float64   `json:"rate"`
}

// BuildTrend buckets samples over [start, end] in loc. Every bucket between
// the first and last emitted point is present, empty ones with rate 0. The
// series ends at the most recent non-empty bucket and is capped at 7 daily
// or 5 weekly/monthly points.
func BuildTrend(g Granularity, start, end time.Time, loc *time.Location, samples []ClassSample) []TrendPoint {
	first := bucketStart(g, start.In(loc))
	last := bucketStart(g, end.In(loc))

	var points []TrendPoint
	index := make(map[time.Time]int)
	for b := first; !b.After(last); b = nextBucket(g, b) {
		index[b] = len(points)
		points = append(points, TrendPoint{Label: BucketLabel(g, b), Start: b})
	}

	attended := make([]int, len(points))
	capacity := make([]int, len(points))
	for _, s := range samples {
		i, ok := index[bucketStart(g, s.Start.In(loc))]
		if !ok {
			continue
		}
		points[i].Classes++
		attended[i] += s.PresentLate
		capacity[i] += s.Enrolled
	}
	for i := range points {
		if capacity[i] > 0 {
			points[i].Rate = round1(100 * float64(attended[i]) / float64(capacity[i]))
		}
	}

	limit := maxPoints
	if g == GranularityDay {
		limit = maxDailyPoints
	}
	tail := len(points) - 1
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Classes > 0 {
			tail = i
			break
		}
	}
	head := max(0, tail-limit+1)
	return points[head : tail+1]
}

type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandAverage   Band = "average"
	BandBad       Band = "bad"
)

// BandFor places a personal attendance rate (0-100) into a band.
func BandFor(rate float64) Band {
	switch {
	case rate >= 90:
		return BandExcellent
	case rate >= 80:
		return BandGood
	case rate >= 70:
		return BandAverage
	default:
		return BandBad
	}
}

// PersonalRate is (present+late) over the classes held in the window.
func PersonalRate(presentLate, totalClasses int) float64 {
	if totalClasses == 0 {
		return 0
	}
	return 100 * float64(presentLate) / float64(totalClasses)
}

type Distribution struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Average   int `json:"average"`
	Bad       int `json:"bad"`

	Population int `json:"population"`
}

// Distribute reports each band as a share of the population. Rounding
// leftovers go to the most populated band so the shares sum to 100.
func Distribute(rates []float64) Distribution {
	d := Distribution{Population: len(rates)}
	if len(rates) == 0 {
		return d
	}

	var counts [4]int
	for _, r := range rates {
		switch BandFor(r) {
		case BandExcellent:
			counts[0]++
		case BandGood:
			counts[1]++
		case BandAverage:
			counts[2]++
		default:
			counts[3]++
		}
	}

	var shares [4]int
	sum, largest := 0, 0
	for i, c := range counts {
		shares[i] = int(math.Round(100 * float64(c) / float64(len(rates))))
		sum += shares[i]
		if c > counts[largest] {
			largest = i
		}
	}
	shares[largest] += 100 - sum

	d.Excellent, d.Good, d.Average, d.Bad = shares[0], shares[1], shares[2], shares[3]
	return d
}

// OverallRate is attended seats over offered seats, one decimal.
func OverallRate(samples []ClassSample) float64 {
	attended, capacity := 0, 0
	for _, s := range samples {
		attended += s.PresentLate
		capacity += s.Enrolled
	}
	if capacity == 0 {
		return 0
	}
	return round1(100 * float64(attended) / float64(capacity))
}

// CourseTrend is the bucketed series of one course. Points stop at the most
// recent bucket holding a class, which may be before End; only an empty
// window yields points up to End.
type CourseTrend struct {
	CourseID     int64        `json:"course_id"`
	Start        time.Time    `json:"start"`
	End          time.Time    `json:"end"`
	Granularity  Granularity  `json:"granularity"`
	Points       []TrendPoint `json:"points"`
	Distribution Distribution `json:"distribution"`
	OverallRate  float64      `json:"overall_rate"`
	TotalClasses int          `json:"total_classes"`
}
