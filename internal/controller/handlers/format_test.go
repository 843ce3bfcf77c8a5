package handlers

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/service"
	"github.com/Freeeeeet/attendance_tracker/internal/stats"
)

func TestErrorText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"window closed", apperr.Ineligible(apperr.ReasonWindowClosed, "closed"), "⏰ The appeal window for this class has closed."},
		{"wrapped duplicate", fmt.Errorf("create: %w", apperr.Conflict(apperr.ReasonDuplicate, "dup")), "❌ This already exists."},
		{"not found", apperr.NotFound("record %d", 1), "❌ Not found."},
		{"plain forbidden", apperr.Forbidden(apperr.ReasonForbidden, "no"), "❌ You do not have access to this."},
		{"invalid message", apperr.Invalid("end is before start"), "❌ end is before start"},
		{"transient", apperr.Transient(errors.New("conn reset")), "⚠️ Service is busy. Please try again."},
		{"usage", usage(usageRoster, nil), "ℹ️ Usage: /roster <class_id>"},
		{"unknown", errors.New("boom"), "❌ Something went wrong. Please try again later."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorText(tt.err))
		})
	}
}

func TestFormatRoster(t *testing.T) {
	rows := []*model.ClassAttendanceRow{
		{StudentID: 1, DisplayName: "Alice", Status: model.AttendanceStatusPresent, MarkedBy: model.MarkedBySystem},
		{StudentID: 2, DisplayName: "Bob", Status: model.AttendanceStatusUnmarked, MarkedBy: model.MarkedBySystem},
	}
	out := formatRoster(9, rows)

	assert.Contains(t, out, "✅ Alice (id 1) 📷")
	assert.Contains(t, out, "⬜️ Bob (id 2)\n")
	assert.Contains(t, out, "Marked 1 of 2")
	assert.Equal(t, "📭 Class 9 has no students.", formatRoster(9, nil))
}

func TestFormatHistory(t *testing.T) {
	start := time.Date(2026, 10, 14, 6, 0, 0, 0, time.UTC)
	page := &service.HistoryPage{
		Rows: []*model.StudentAttendanceRow{{
			AttendanceRecord: model.AttendanceRecord{ID: 5, Status: model.AttendanceStatusAbsent},
			ClassStart:       start,
			CourseCode:       "CS101",
			CourseName:       "Intro",
		}},
		Page: 1, PerPage: 1, Total: 2, TotalPages: 2,
	}
	out := formatHistory(page, time.FixedZone("EAT", 3*3600))

	assert.Contains(t, out, "page 1/2, 2 records")
	assert.Contains(t, out, "❌ #5 CS101 Intro")
	assert.Contains(t, out, "14.10.2026 09:00 Absent")
	assert.Contains(t, out, "/history 2")
	assert.Equal(t, "📭 No attendance records found.", formatHistory(&service.HistoryPage{}, time.UTC))
}

func TestFormatPeriodReport(t *testing.T) {
	start := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	r := stats.BuildPeriodReport(1, stats.PeriodWeek, start, start.AddDate(0, 0, 7), 2, 4,
		stats.StatusCounts{Present: 3, Late: 1, Absent: 2},
		[]stats.Absentee{{StudentID: 3, Name: "Carol", Count: 2}})
	out := formatPeriodReport(&r)

	assert.Contains(t, out, "Week report 2026-10-12 - 2026-10-18")
	assert.Contains(t, out, "Present: 67%")
	assert.Contains(t, out, "Absent: 33%")
	assert.Contains(t, out, "1. Carol: 2 classes")
}

func TestBar(t *testing.T) {
	assert.Equal(t, "░░░░░░░░░░", bar(0))
	assert.Equal(t, "▓▓▓▓▓▓▓░░░", bar(67))
	assert.Equal(t, "▓▓▓▓▓▓▓▓▓▓", bar(100))
}

func TestFormatUsers(t *testing.T) {
	tg := int64(555)
	users := []*model.User{
		{ID: 3, Name: "Alice", Role: model.RoleStudent, TelegramID: &tg},
		{ID: 2, Name: "Lee", Role: model.RoleLecturer},
	}
	out := formatUsers(users)

	assert.Contains(t, out, "👥 Users (2)")
	assert.Contains(t, out, "#3 Alice, student 💬")
	assert.True(t, strings.HasSuffix(out, "#2 Lee, lecturer"))
	assert.Equal(t, "📭 No users found.", formatUsers(nil))
}
