package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/service"
	"github.com/Freeeeeet/attendance_tracker/internal/stats"
)

// Usage lines shown when a command cannot be parsed.
const (
	usageHistory = "/history [page] [status] [YYYY-MM]"
	usageMonths  = "/months [1-24]"
	usageAppeal  = "/appeal <record_id> <reason>"
	usageRetract = "/retract <appeal_id>"
	usageRoster  = "/roster <class_id>"
	usageMark    = "/mark <class_id> <student_id> <status> [notes]"
	usageClasses = "/classes [YYYY-MM-DD]"
	usageTrend   = "/trend <course_id> [from YYYY-MM-DD] [to YYYY-MM-DD]"
	usageReport  = "/report <day|week|month> [YYYY-MM-DD]"
	usageDecide  = "/approve <appeal_id> or /reject <appeal_id>"
	usageLink    = "/link <user_id> <telegram_id>"
	usageCancel  = "/cancel <class_id>"
	usageEnroll  = "/enroll <course_id> <user_id> <semester_id>"
	usageUsers   = "/users [student|lecturer|admin]"
)

const defaultTrendDays = 28

// splitCommand drops the leading /command (with an optional @botname) and
// returns the remaining text untouched.
func splitCommand(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	_, rest, _ := strings.Cut(text, " ")
	return strings.TrimSpace(rest)
}

func commandArgs(text string) []string {
	return strings.Fields(splitCommand(text))
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a valid id", raw)
	}
	return id, nil
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a YYYY-MM-DD date", raw)
	}
	return d, nil
}

// parseHistoryArgs accepts page, status and month in any order.
func parseHistoryArgs(args []string, perPage int) (service.HistoryQuery, error) {
	q := service.HistoryQuery{Page: 1, PerPage: perPage}
	for _, a := range args {
		if n, err := strconv.Atoi(a); err == nil {
			if n < 1 {
				return q, usage(usageHistory, fmt.Errorf("page must be positive"))
			}
			q.Page = n
			continue
		}
		if _, err := time.Parse("2006-01", a); err == nil {
			q.Month = a
			continue
		}
		status, err := model.ParseAttendanceStatus(strings.ToLower(a))
		if err != nil {
			return q, usage(usageHistory, err)
		}
		q.Status = string(status)
	}
	return q, nil
}

func parseMonthsArg(args []string) (int, error) {
	if len(args) == 0 {
		return stats.DefaultBreakdownMonths, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > 24 {
		return 0, usage(usageMonths, nil)
	}
	return n, nil
}

// parseAppealArgs keeps the reason as typed, spaces included.
func parseAppealArgs(text string) (int64, string, error) {
	rest := splitCommand(text)
	rawID, reason, _ := strings.Cut(rest, " ")
	if rawID == "" {
		return 0, "", usage(usageAppeal, nil)
	}
	id, err := parseID(rawID)
	if err != nil {
		return 0, "", usage(usageAppeal, err)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return 0, "", usage(usageAppeal, fmt.Errorf("reason is required"))
	}
	return id, reason, nil
}

func parseSingleID(args []string, line string) (int64, error) {
	if len(args) != 1 {
		return 0, usage(line, nil)
	}
	id, err := parseID(args[0])
	if err != nil {
		return 0, usage(line, err)
	}
	return id, nil
}

type markArgs struct {
	classID   int64
	studentID int64
	status    model.AttendanceStatus
	notes     *string
}

func parseMarkArgs(text string) (markArgs, error) {
	fields := strings.Fields(splitCommand(text))
	if len(fields) < 3 {
		return markArgs{}, usage(usageMark, nil)
	}
	classID, err := parseID(fields[0])
	if err != nil {
		return markArgs{}, usage(usageMark, err)
	}
	studentID, err := parseID(fields[1])
	if err != nil {
		return markArgs{}, usage(usageMark, err)
	}
	// The status is passed through so the service reports invalid_status.
	m := markArgs{classID: classID, studentID: studentID, status: model.AttendanceStatus(strings.ToLower(fields[2]))}
	if len(fields) > 3 {
		notes := strings.Join(fields[3:], " ")
		m.notes = &notes
	}
	return m, nil
}

func parseReportArgs(args []string, today time.Time) (stats.Period, time.Time, error) {
	if len(args) == 0 || len(args) > 2 {
		return "", time.Time{}, usage(usageReport, nil)
	}
	period, err := stats.ParsePeriod(strings.ToLower(args[0]))
	if err != nil {
		return "", time.Time{}, usage(usageReport, err)
	}
	anchor := today
	if len(args) == 2 {
		if anchor, err = parseDate(args[1], today.Location()); err != nil {
			return "", time.Time{}, usage(usageReport, err)
		}
	}
	return period, anchor, nil
}

// parseTrendArgs defaults to the four weeks ending today.
func parseTrendArgs(args []string, today time.Time) (int64, time.Time, time.Time, error) {
	if len(args) == 0 || len(args) > 3 {
		return 0, time.Time{}, time.Time{}, usage(usageTrend, nil)
	}
	courseID, err := parseID(args[0])
	if err != nil {
		return 0, time.Time{}, time.Time{}, usage(usageTrend, err)
	}
	end := today
	start := today.AddDate(0, 0, -(defaultTrendDays - 1))
	if len(args) >= 2 {
		if start, err = parseDate(args[1], today.Location()); err != nil {
			return 0, time.Time{}, time.Time{}, usage(usageTrend, err)
		}
	}
	if len(args) == 3 {
		if end, err = parseDate(args[2], today.Location()); err != nil {
			return 0, time.Time{}, time.Time{}, usage(usageTrend, err)
		}
	}
	return courseID, start, end, nil
}

func parseClassesArgs(args []string, today time.Time) (time.Time, error) {
	switch len(args) {
	case 0:
		return today, nil
	case 1:
		d, err := parseDate(args[0], today.Location())
		if err != nil {
			return time.Time{}, usage(usageClasses, err)
		}
		return d, nil
	default:
		return time.Time{}, usage(usageClasses, nil)
	}
}

func parseLinkArgs(args []string) (int64, int64, error) {
	if len(args) != 2 {
		return 0, 0, usage(usageLink, nil)
	}
	userID, err := parseID(args[0])
	if err != nil {
		return 0, 0, usage(usageLink, err)
	}
	telegramID, err := parseID(args[1])
	if err != nil {
		return 0, 0, usage(usageLink, err)
	}
	return userID, telegramID, nil
}

func parseEnrollArgs(args []string) (model.CourseUser, error) {
	if len(args) != 3 {
		return model.CourseUser{}, usage(usageEnroll, nil)
	}
	ids := make([]int64, 3)
	for i, a := range args {
		id, err := parseID(a)
		if err != nil {
			return model.CourseUser{}, usage(usageEnroll, err)
		}
		ids[i] = id
	}
	return model.CourseUser{CourseID: ids[0], UserID: ids[1], SemesterID: ids[2]}, nil
}

// parseUsersArgs returns an empty role when no filter is given.
func parseUsersArgs(args []string) (model.Role, error) {
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		role := model.Role(strings.ToLower(args[0]))
		if !role.Valid() {
			return "", usage(usageUsers, fmt.Errorf("unknown role %q", args[0]))
		}
		return role, nil
	default:
		return "", usage(usageUsers, nil)
	}
}
