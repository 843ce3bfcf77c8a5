package handlers

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleStart greets linked users and tells everyone else how to get linked.
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, err := h.directory.GetByTelegramID(ctx, update.Message.From.ID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			h.sendMessage(ctx, b, chatID, notLinkedText(update.Message.From.ID))
			return
		}
		h.fail(ctx, b, chatID, "start", err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("👋 Hello, %s!\n\n%s", user.Name, helpText(user.Role)))
}

func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText(user.Role))
}

func helpText(role model.Role) string {
	switch role {
	case model.RoleStudent:
		return "📚 Commands:\n\n" +
			"/history [page] [status] [YYYY-MM] - Attendance history\n" +
			"/months [n] - Monthly attendance\n" +
			"/appeal <record_id> <reason> - Appeal an absent or late mark\n" +
			"/appeals - My appeals\n" +
			"/retract <appeal_id> - Withdraw a pending appeal"
	case model.RoleLecturer:
		return "📚 Commands:\n\n" +
			"/classes [YYYY-MM-DD] - My classes for a day\n" +
			"/roster <class_id> - Open the class roster\n" +
			"/mark <class_id> <student_id> <status> [notes] - Mark a student\n" +
			"/trend <course_id> [from] [to] - Course attendance trend\n" +
			"/cancel <class_id> - Cancel one of my classes"
	case model.RoleAdmin:
		return "📚 Commands:\n\n" +
			"/report <day|week|month> [YYYY-MM-DD] - Institution report\n" +
			"/pending - Appeals awaiting a decision\n" +
			"/approve <appeal_id> - Approve an appeal\n" +
			"/reject <appeal_id> - Reject an appeal\n" +
			"/roster <class_id> - Open a class roster\n" +
			"/mark <class_id> <student_id> <status> [notes] - Override a mark\n" +
			"/trend <course_id> [from] [to] - Course attendance trend\n" +
			"/link <user_id> <telegram_id> - Link a Telegram account\n" +
			"/users [role] - Users of the institution\n" +
			"/enroll <course_id> <user_id> <semester_id> - Enroll a user\n" +
			"/cancel <class_id> - Cancel a class"
	case model.RolePlatformManager:
		return "📚 Commands:\n\n" +
			"/trend <course_id> [from] [to] - Course attendance trend\n" +
			"/roster <class_id> - View a class roster"
	default:
		return "📚 No commands available."
	}
}

// HandleLink attaches a Telegram account to a user of the admin's institution.
func (h *Handlers) HandleLink(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireRole(ctx, b, update, model.RoleAdmin)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	userID, telegramID, err := parseLinkArgs(commandArgs(update.Message.Text))
	if err != nil {
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	if err := h.directory.LinkTelegram(ctx, user.Actor(), userID, telegramID); err != nil {
		h.fail(ctx, b, chatID, "link", err)
		return
	}

	h.logger.Info("Telegram account linked", zap.Int64("user_id", userID), zap.Int64("admin_id", user.ID))
	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ User %d linked to Telegram ID %d", userID, telegramID))
}
