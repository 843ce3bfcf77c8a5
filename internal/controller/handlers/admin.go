package handlers

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleReport sends the day/week/month report of the admin's institution.
func (h *Handlers) HandleReport(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleAdmin)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	period, anchor, err := parseReportArgs(commandArgs(update.Message.Text), h.today())
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	report, err := h.statistics.PeriodReport(ctx, user.Actor(), user.InstitutionID, period, anchor)
	if err != nil {
		h.fail(ctx, b, chatID, "report", err)
		return
	}
	h.sendMessage(ctx, b, chatID, formatPeriodReport(report))
}

func (h *Handlers) HandlePending(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleAdmin)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	appeals, err := h.appeals.ListPending(ctx, user.Actor(), user.InstitutionID)
	if err != nil {
		h.fail(ctx, b, chatID, "pending", err)
		return
	}
	h.sendMessage(ctx, b, chatID, formatAppeals("⏳ Pending appeals\n/approve <id> or /reject <id>", appeals, h.loc))
}

func (h *Handlers) HandleApprove(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.decide(ctx, b, update, model.AppealStatusApproved)
}

func (h *Handlers) HandleReject(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.decide(ctx, b, update, model.AppealStatusRejected)
}

func (h *Handlers) decide(ctx context.Context, b *bot.Bot, update *models.Update, decision model.AppealStatus) {
	user, ok := h.requireRole(ctx, b, update, model.RoleAdmin)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	appealID, err := parseSingleID(commandArgs(update.Message.Text), usageDecide)
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	appeal, err := h.appeals.Adjudicate(ctx, user.Actor(), appealID, decision)
	if err != nil {
		h.fail(ctx, b, chatID, "decide", err)
		return
	}

	text := formatAppeal(appeal, h.loc)
	if appeal.Status == model.AppealStatusApproved {
		text += fmt.Sprintf("\n\nRecord #%d is now excused.", appeal.AttendanceID)
	}
	h.sendMessage(ctx, b, chatID, text)
}

// HandleCancel cancels a class. Lecturers may cancel their own classes.
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleAdmin, model.RoleLecturer)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	classID, err := parseSingleID(commandArgs(update.Message.Text), usageCancel)
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	if err := h.catalog.CancelClass(ctx, user.Actor(), classID); err != nil {
		h.fail(ctx, b, chatID, "cancel", err)
		return
	}

	h.logger.Info("Class cancelled", zap.Int64("class_id", classID), zap.Int64("user_id", user.ID))
	h.sendMessage(ctx, b, chatID, fmt.Sprintf("🚫 Class %d cancelled.", classID))
}

func (h *Handlers) HandleEnroll(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleAdmin)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	cu, err := parseEnrollArgs(commandArgs(update.Message.Text))
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	if err := h.catalog.Enroll(ctx, user.Actor(), cu); err != nil {
		h.fail(ctx, b, chatID, "enroll", err)
		return
	}
	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ User %d enrolled in course %d for semester %d", cu.UserID, cu.CourseID, cu.SemesterID))
}

// HandleUsers lists the admin's institution, optionally by role.
func (h *Handlers) HandleUsers(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleAdmin)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	role, err := parseUsersArgs(commandArgs(update.Message.Text))
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	users, err := h.catalog.ListUsers(ctx, user.Actor(), user.InstitutionID, role)
	if err != nil {
		h.fail(ctx, b, chatID, "users", err)
		return
	}
	h.sendMessage(ctx, b, chatID, formatUsers(users))
}
