package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Freeeeeet/attendance_tracker/internal/app"
	"github.com/Freeeeeet/attendance_tracker/internal/config"
	"github.com/Freeeeeet/attendance_tracker/internal/controller"
	"github.com/Freeeeeet/attendance_tracker/internal/controller/handlers"
	"github.com/Freeeeeet/attendance_tracker/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Attendance service stopped with error", zap.Error(err))
	}
	logger.Info("Attendance service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting attendance service",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", cfg.Timezone.String()),
		zap.Bool("bot_enabled", cfg.BotEnabled()),
	)

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("create db pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	if cfg.MigrationsEnabled {
		migrator, err := app.NewMigrator(pool, logger)
		if err != nil {
			return err
		}
		err = migrator.Run(ctx)
		migrator.Close()
		if err != nil {
			return err
		}
	}

	directorySvc := service.NewDirectoryService(pool, logger.Named("directory"))
	enrollmentSvc := service.NewEnrollmentService(pool, cfg.Timezone, logger.Named("enrollment"))
	attendanceSvc := service.NewAttendanceService(pool, cfg.LateGrace, cfg.Timezone, logger.Named("attendance"))
	statisticsSvc := service.NewStatisticsService(pool, cfg.Timezone, logger.Named("statistics"))
	appealSvc := service.NewAppealService(pool, cfg.AppealWindow, logger.Named("appeals"))
	catalogSvc := service.NewCatalogService(pool, logger.Named("catalog"))

	scheduler := app.NewScheduler(attendanceSvc, app.ScheduleConfig{
		CloseClassesSpec: cfg.CloseClassesCron,
		RosterSpec:       cfg.RosterCron,
		RosterLookahead:  cfg.RosterLookahead,
		Location:         cfg.Timezone,
	}, logger.Named("scheduler"))
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Stop()

	if !cfg.BotEnabled() {
		logger.Warn("TELEGRAM_TOKEN is empty, running scheduler only")
		<-ctx.Done()
		return nil
	}

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}
	cmdHandlers := handlers.NewHandlers(
		directorySvc,
		enrollmentSvc,
		attendanceSvc,
		statisticsSvc,
		appealSvc,
		catalogSvc,
		cfg.HistoryPageSize,
		cfg.Timezone,
		logger.Named("bot"),
	)
	botController := controller.NewBotController(b, cmdHandlers, logger.Named("bot"))
	if err := botController.RegisterHandlers(ctx); err != nil {
		return err
	}

	botController.Start(ctx)
	return nil
}
