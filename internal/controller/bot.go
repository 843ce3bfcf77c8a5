package controller

import (
	"context"

	"github.com/Freeeeeet/attendance_tracker/internal/controller/handlers"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func NewBotController(botInstance *bot.Bot, cmdHandlers *handlers.Handlers, logger *zap.Logger) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: cmdHandlers,
		logger:   logger,
	}
}

// RegisterHandlers binds every command and publishes the command menu.
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	exact := map[string]bot.HandlerFunc{
		"/start":   c.handlers.HandleStart,
		"/help":    c.handlers.HandleHelp,
		"/appeals": c.handlers.HandleMyAppeals,
		"/pending": c.handlers.HandlePending,
	}
	for cmd, h := range exact {
		c.bot.RegisterHandler(bot.HandlerTypeMessageText, cmd, bot.MatchTypeExact, h)
	}

	// Commands with arguments. "/appeals" is exact above, so "/appeal" is
	// matched with a trailing space or alone.
	withArgs := map[string]bot.HandlerFunc{
		"/history": c.handlers.HandleHistory,
		"/months":  c.handlers.HandleMonths,
		"/appeal":  c.handlers.HandleAppeal,
		"/retract": c.handlers.HandleRetract,
		"/classes": c.handlers.HandleClasses,
		"/roster":  c.handlers.HandleRoster,
		"/mark":    c.handlers.HandleMark,
		"/trend":   c.handlers.HandleTrend,
		"/report":  c.handlers.HandleReport,
		"/approve": c.handlers.HandleApprove,
		"/reject":  c.handlers.HandleReject,
		"/link":    c.handlers.HandleLink,
		"/cancel":  c.handlers.HandleCancel,
		"/enroll":  c.handlers.HandleEnroll,
		"/users":   c.handlers.HandleUsers,
	}
	for cmd, h := range withArgs {
		c.bot.RegisterHandler(bot.HandlerTypeMessageText, cmd, bot.MatchTypeExact, h)
		c.bot.RegisterHandler(bot.HandlerTypeMessageText, cmd+" ", bot.MatchTypePrefix, h)
	}

	return c.setCommands(ctx)
}

func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Start"},
		{Command: "help", Description: "❓ Commands for your role"},
		{Command: "history", Description: "📋 Attendance history"},
		{Command: "months", Description: "📅 Monthly attendance"},
		{Command: "appeals", Description: "📨 My appeals"},
		{Command: "classes", Description: "🗓 My classes (lecturer)"},
		{Command: "roster", Description: "👥 Class roster"},
		{Command: "trend", Description: "📈 Course trend"},
		{Command: "report", Description: "📊 Institution report (admin)"},
		{Command: "pending", Description: "⏳ Pending appeals (admin)"},
		{Command: "users", Description: "👥 Institution users (admin)"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start blocks until ctx is cancelled.
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}
