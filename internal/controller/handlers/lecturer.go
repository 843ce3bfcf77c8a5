package handlers

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleClasses lists the lecturer's classes for a day.
func (h *Handlers) HandleClasses(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleLecturer)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	day, err := parseClassesArgs(commandArgs(update.Message.Text), h.today())
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	classes, err := h.enrollment.LecturerSchedule(ctx, user.Actor(), user.ID, day, day)
	if err != nil {
		h.fail(ctx, b, chatID, "classes", err)
		return
	}
	h.sendMessage(ctx, b, chatID, formatClasses(classes, h.loc))
}

// HandleRoster opens the class for marking. Read-only accounts only see the
// rows that already exist.
func (h *Handlers) HandleRoster(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleLecturer, model.RoleAdmin, model.RolePlatformManager)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	classID, err := parseSingleID(commandArgs(update.Message.Text), usageRoster)
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}

	var rows []*model.ClassAttendanceRow
	if user.Role == model.RolePlatformManager {
		rows, err = h.attendance.ReadClassAttendance(ctx, user.Actor(), classID)
	} else {
		rows, err = h.attendance.OpenClassAttendance(ctx, user.Actor(), classID)
	}
	if err != nil {
		h.fail(ctx, b, chatID, "roster", err)
		return
	}
	h.sendMessage(ctx, b, chatID, formatRoster(classID, rows))
}

func (h *Handlers) HandleMark(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleLecturer, model.RoleAdmin)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args, err := parseMarkArgs(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	rec, err := h.attendance.Mark(ctx, user.Actor(), args.classID, args.studentID, args.status, args.notes)
	if err != nil {
		h.fail(ctx, b, chatID, "mark", err)
		return
	}

	h.logger.Debug("Marked from chat",
		zap.Int64("record_id", rec.ID),
		zap.Int64("user_id", user.ID),
	)
	d := attendanceStatusDisplay(rec.Status)
	h.sendMessage(ctx, b, chatID, fmt.Sprintf("%s Student %d marked %s", d.Emoji, rec.StudentID, d.Text))
}

func (h *Handlers) HandleTrend(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleLecturer, model.RoleAdmin, model.RolePlatformManager)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	courseID, start, end, err := parseTrendArgs(commandArgs(update.Message.Text), h.today())
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	trend, err := h.statistics.CourseTrend(ctx, user.Actor(), courseID, start, end)
	if err != nil {
		h.fail(ctx, b, chatID, "trend", err)
		return
	}
	h.sendMessage(ctx, b, chatID, formatTrend(trend))
}
