package handlers

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleHistory shows one page of the student's records.
func (h *Handlers) HandleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleStudent)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	q, err := parseHistoryArgs(commandArgs(update.Message.Text), h.pageSize)
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	page, err := h.attendance.StudentHistory(ctx, user.Actor(), user.ID, q)
	if err != nil {
		h.fail(ctx, b, chatID, "history", err)
		return
	}
	h.sendMessage(ctx, b, chatID, formatHistory(page, h.loc))
}

func (h *Handlers) HandleMonths(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleStudent)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	months, err := parseMonthsArg(commandArgs(update.Message.Text))
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	summary, err := h.statistics.MonthlyBreakdown(ctx, user.Actor(), user.ID, months)
	if err != nil {
		h.fail(ctx, b, chatID, "months", err)
		return
	}
	h.sendMessage(ctx, b, chatID, formatMonths(summary))
}

func (h *Handlers) HandleAppeal(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleStudent)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	recordID, reason, err := parseAppealArgs(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	appeal, err := h.appeals.CreateAppeal(ctx, user.Actor(), user.ID, recordID, reason)
	if err != nil {
		h.fail(ctx, b, chatID, "appeal", err)
		return
	}
	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"📨 Appeal #%d submitted for record #%d.\n\nYou can withdraw it while pending: /retract %d",
		appeal.ID, recordID, appeal.ID,
	))
}

func (h *Handlers) HandleRetract(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleStudent)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	appealID, err := parseSingleID(commandArgs(update.Message.Text), usageRetract)
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	if err := h.appeals.RetractAppeal(ctx, user.Actor(), user.ID, appealID); err != nil {
		h.fail(ctx, b, chatID, "retract", err)
		return
	}
	h.sendMessage(ctx, b, chatID, fmt.Sprintf("🗑 Appeal #%d withdrawn.", appealID))
}

func (h *Handlers) HandleMyAppeals(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleStudent)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	appeals, err := h.appeals.ListForStudent(ctx, user.Actor(), user.ID)
	if err != nil {
		h.fail(ctx, b, chatID, "appeals", err)
		return
	}
	h.sendMessage(ctx, b, chatID, formatAppeals("📨 My appeals", appeals, h.loc))
}
