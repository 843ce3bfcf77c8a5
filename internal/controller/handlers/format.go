package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/service"
	"github.com/Freeeeeet/attendance_tracker/internal/stats"
)

// StatusDisplay is the emoji and label of a status.
type StatusDisplay struct {
	Emoji string
	Text  string
}

func attendanceStatusDisplay(status model.AttendanceStatus) StatusDisplay {
	displays := map[model.AttendanceStatus]StatusDisplay{
		model.AttendanceStatusPresent:  {"✅", "Present"},
		model.AttendanceStatusAbsent:   {"❌", "Absent"},
		model.AttendanceStatusLate:     {"⏰", "Late"},
		model.AttendanceStatusExcused:  {"📝", "Excused"},
		model.AttendanceStatusUnmarked: {"⬜️", "Unmarked"},
	}
	if display, ok := displays[status]; ok {
		return display
	}
	return StatusDisplay{"❓", "Unknown"}
}

func appealStatusDisplay(status model.AppealStatus) StatusDisplay {
	displays := map[model.AppealStatus]StatusDisplay{
		model.AppealStatusPending:  {"⏳", "Pending"},
		model.AppealStatusApproved: {"✅", "Approved"},
		model.AppealStatusRejected: {"🚫", "Rejected"},
	}
	if display, ok := displays[status]; ok {
		return display
	}
	return StatusDisplay{"❓", "Unknown"}
}

func formatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02.01.2006 15:04")
}

func formatTimeRange(start, end time.Time, loc *time.Location) string {
	return fmt.Sprintf("%s-%s", start.In(loc).Format("15:04"), end.In(loc).Format("15:04"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func formatHistory(page *service.HistoryPage, loc *time.Location) string {
	if page.Total == 0 {
		return "📭 No attendance records found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Attendance history (page %d/%d, %s)\n\n",
		page.Page, max(page.TotalPages, 1), plural(page.Total, "record", "records"))
	for _, r := range page.Rows {
		d := attendanceStatusDisplay(r.Status)
		fmt.Fprintf(&sb, "%s #%d %s %s\n   %s %s\n",
			d.Emoji, r.ID, r.CourseCode, r.CourseName,
			formatDateTime(r.ClassStart, loc), d.Text)
	}
	if page.Page < page.TotalPages {
		fmt.Fprintf(&sb, "\nNext page: /history %d", page.Page+1)
	}
	return sb.String()
}

func formatMonths(months []stats.MonthSummary) string {
	var sb strings.Builder
	sb.WriteString("📅 Monthly attendance\n\n")
	for _, m := range months {
		mark := "⚠️"
		if m.IsGood {
			mark = "🟢"
		}
		if m.TotalClasses == 0 {
			fmt.Fprintf(&sb, "▫️ %s: no classes\n", m.Label)
			continue
		}
		fmt.Fprintf(&sb, "%s %s: %.1f%% (P %d, L %d, E %d, A %d of %d)\n",
			mark, m.Label, m.PresentPercent, m.Present, m.Late, m.Excused, m.Absent, m.TotalClasses)
	}
	return sb.String()
}

func formatAppeal(a *model.Appeal, loc *time.Location) string {
	d := appealStatusDisplay(a.Status)
	line := fmt.Sprintf("%s Appeal #%d for record #%d (class %s): %s",
		d.Emoji, a.ID, a.AttendanceID, formatDateTime(a.ClassStart, loc), d.Text)
	if a.Reason != "" {
		line += "\n   " + a.Reason
	}
	return line
}

func formatAppeals(title string, appeals []*model.Appeal, loc *time.Location) string {
	if len(appeals) == 0 {
		return "📭 No appeals."
	}
	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	for _, a := range appeals {
		sb.WriteString(formatAppeal(a, loc))
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatRoster(classID int64, rows []*model.ClassAttendanceRow) string {
	if len(rows) == 0 {
		return fmt.Sprintf("📭 Class %d has no students.", classID)
	}
	var counts stats.StatusCounts
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Class %d roster\n\n", classID)
	for _, r := range rows {
		counts.Add(r.Status, 1)
		d := attendanceStatusDisplay(r.Status)
		fmt.Fprintf(&sb, "%s %s (id %d)", d.Emoji, r.DisplayName, r.StudentID)
		if r.MarkedBy == model.MarkedBySystem && r.Status.IsMarked() {
			sb.WriteString(" 📷")
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nMarked %d of %d", counts.Marked(), counts.Total())
	return sb.String()
}

func formatClasses(classes []*model.Class, loc *time.Location) string {
	if len(classes) == 0 {
		return "📭 No classes on this day."
	}
	var sb strings.Builder
	sb.WriteString("🗓 Classes\n\n")
	for _, c := range classes {
		status := ""
		if c.IsCancelled() {
			status = " (cancelled)"
		}
		fmt.Fprintf(&sb, "#%d %s %s %s%s\n", c.ID, formatTimeRange(c.StartTime, c.EndTime, loc), c.CourseCode, c.CourseName, status)
	}
	sb.WriteString("\nOpen a roster: /roster <class_id>")
	return sb.String()
}

func formatUsers(users []*model.User) string {
	if len(users) == 0 {
		return "📭 No users found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Users (%d)\n\n", len(users))
	for _, u := range users {
		linked := ""
		if u.TelegramID != nil {
			linked = " 💬"
		}
		fmt.Fprintf(&sb, "#%d %s, %s%s\n", u.ID, u.Name, u.Role, linked)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatPeriodReport(r *stats.PeriodReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 %s report %s - %s\n\n",
		strings.ToUpper(string(r.Period[:1]))+string(r.Period[1:]),
		r.Start.Format(time.DateOnly), r.End.AddDate(0, 0, -1).Format(time.DateOnly))
	fmt.Fprintf(&sb, "Classes: %d\nStudents: %d\n", r.TotalClasses, r.TotalStudents)
	fmt.Fprintf(&sb, "Present: %d%%\nAbsent: %d%%\n", r.PresentPct, r.AbsentPct)
	if r.Counts.Unmarked > 0 {
		fmt.Fprintf(&sb, "Unmarked: %d\n", r.Counts.Unmarked)
	}
	if len(r.TrendingAbsentees) > 0 {
		sb.WriteString("\n🔻 Trending absentees\n")
		for i, a := range r.TrendingAbsentees {
			fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, a.Name, a.Label)
		}
	}
	return sb.String()
}

func formatTrend(t *stats.CourseTrend) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📈 Course %d, %s - %s (%s)\n\n",
		t.CourseID, t.Start.Format(time.DateOnly), t.End.Format(time.DateOnly), t.Granularity)
	for _, p := range t.Points {
		fmt.Fprintf(&sb, "%-7s %5.1f%% %s\n", p.Label, p.Rate, bar(p.Rate))
	}
	fmt.Fprintf(&sb, "\nOverall: %.1f%% over %s\n", t.OverallRate, plural(t.TotalClasses, "class", "classes"))
	d := t.Distribution
	fmt.Fprintf(&sb, "Students (%d): excellent %d%%, good %d%%, average %d%%, bad %d%%",
		d.Population, d.Excellent, d.Good, d.Average, d.Bad)
	return sb.String()
}

// bar renders rate (0-100) as ten cells.
func bar(rate float64) string {
	filled := min(max(int(rate+5)/10, 0), 10)
	return strings.Repeat("▓", filled) + strings.Repeat("░", 10-filled)
}
