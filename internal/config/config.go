package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type Config struct {
	Environment   string `mapstructure:"ENV"`
	DBDSN         string `mapstructure:"DB_DSN"`
	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`

	Timezone     *time.Location `mapstructure:"-"`
	AppealWindow time.Duration  `mapstructure:"APPEAL_WINDOW"`
	LateGrace    time.Duration  `mapstructure:"LATE_GRACE"`

	MigrationsEnabled bool `mapstructure:"MIGRATIONS_ENABLED"`

	CloseClassesCron string        `mapstructure:"CLOSE_CLASSES_CRON"`
	RosterCron       string        `mapstructure:"ROSTER_CRON"`
	RosterLookahead  time.Duration `mapstructure:"ROSTER_LOOKAHEAD"`

	HistoryPageSize int `mapstructure:"HISTORY_PAGE_SIZE"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("TELEGRAM_TOKEN", "")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("APPEAL_WINDOW", 7*24*time.Hour)
	v.SetDefault("LATE_GRACE", 10*time.Minute)
	v.SetDefault("MIGRATIONS_ENABLED", true)
	v.SetDefault("CLOSE_CLASSES_CRON", "*/15 * * * *")
	v.SetDefault("ROSTER_CRON", "*/5 * * * *")
	v.SetDefault("ROSTER_LOOKAHEAD", 30*time.Minute)
	v.SetDefault("HISTORY_PAGE_SIZE", 10)
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and validates a Config from v, filling defaults. Every
// key has a default, so AutomaticEnv values reach Unmarshal.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Timezone = loc

	if cfg.AppealWindow <= 0 {
		return nil, fmt.Errorf("APPEAL_WINDOW must be positive, got %s", cfg.AppealWindow)
	}
	if cfg.LateGrace < 0 {
		return nil, fmt.Errorf("LATE_GRACE must not be negative, got %s", cfg.LateGrace)
	}
	if cfg.RosterLookahead < 0 {
		return nil, fmt.Errorf("ROSTER_LOOKAHEAD must not be negative, got %s", cfg.RosterLookahead)
	}
	if cfg.HistoryPageSize < 1 || cfg.HistoryPageSize > 100 {
		return nil, fmt.Errorf("HISTORY_PAGE_SIZE must be between 1 and 100, got %d", cfg.HistoryPageSize)
	}
	for key, spec := range map[string]string{"CLOSE_CLASSES_CRON": cfg.CloseClassesCron, "ROSTER_CRON": cfg.RosterCron} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// BotEnabled is false when no Telegram token is configured.
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}
