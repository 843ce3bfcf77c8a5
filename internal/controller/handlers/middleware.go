package handlers

import (
	"context"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireUser resolves the sender's linked account.
// Returns the user and true when OK; the reply is already sent otherwise.
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	if update.Message == nil || update.Message.From == nil {
		return nil, false
	}

	telegramID := update.Message.From.ID
	user, err := h.directory.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			h.sendError(ctx, b, update.Message.Chat.ID, notLinkedText(telegramID))
			return nil, false
		}
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, ErrorText(err))
		return nil, false
	}

	return user, true
}

// requireRole is requireUser plus a coarse role check so the reply can
// point at the right commands. Services still enforce the real policy.
func (h *Handlers) requireRole(ctx context.Context, b *bot.Bot, update *models.Update, roles ...model.Role) (*model.User, bool) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return nil, false
	}
	for _, r := range roles {
		if user.Role == r {
			return user, true
		}
	}
	h.sendError(ctx, b, update.Message.Chat.ID, "❌ This command is not available for your role.\n\nSee /help")
	return nil, false
}

// fail logs unexpected errors and answers with the user-facing text.
func (h *Handlers) fail(ctx context.Context, b *bot.Bot, chatID int64, op string, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound, apperr.KindForbidden, apperr.KindConflict,
		apperr.KindInvalidInput, apperr.KindIneligible:
		h.logger.Debug("Command rejected", zap.String("op", op), zap.Error(err))
	default:
		h.logger.Error("Command failed", zap.String("op", op), zap.Error(err))
	}
	h.sendError(ctx, b, chatID, ErrorText(err))
}

func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
