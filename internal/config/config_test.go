package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	v.Set("DB_DSN", "postgres://localhost/attendance")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.BotEnabled())
	assert.Equal(t, time.UTC, cfg.Timezone)
	assert.Equal(t, 168*time.Hour, cfg.AppealWindow)
	assert.Equal(t, 10*time.Minute, cfg.LateGrace)
	assert.True(t, cfg.MigrationsEnabled)
	assert.Equal(t, "*/15 * * * *", cfg.CloseClassesCron)
	assert.Equal(t, 30*time.Minute, cfg.RosterLookahead)
	assert.Equal(t, 10, cfg.HistoryPageSize)
}

func TestFromViperEnvironment(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://db/attendance")
	t.Setenv("ENV", "production")
	t.Setenv("TIMEZONE", "Europe/Berlin")
	t.Setenv("APPEAL_WINDOW", "72h")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("MIGRATIONS_ENABLED", "false")
	t.Setenv("LATE_GRACE", "90s")
	t.Setenv("HISTORY_PAGE_SIZE", "25")
	t.Setenv("ROSTER_CRON", "0 * * * *")

	v := viper.New()
	v.AutomaticEnv()
	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.BotEnabled())
	assert.Equal(t, "Europe/Berlin", cfg.Timezone.String())
	assert.Equal(t, 72*time.Hour, cfg.AppealWindow)
	assert.False(t, cfg.MigrationsEnabled)
	assert.Equal(t, 90*time.Second, cfg.LateGrace)
	assert.Equal(t, 25, cfg.HistoryPageSize)
	assert.Equal(t, "0 * * * *", cfg.RosterCron)
	assert.Equal(t, "*/15 * * * *", cfg.CloseClassesCron)
}

func TestFromViperRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"missing dsn", "DB_DSN", ""},
		{"unknown timezone", "TIMEZONE", "Mars/Olympus"},
		{"zero window", "APPEAL_WINDOW", "0s"},
		{"bad cron", "ROSTER_CRON", "every five minutes"},
		{"page size", "HISTORY_PAGE_SIZE", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set("DB_DSN", "postgres://localhost/attendance")
			v.Set(tt.key, tt.val)

			_, err := FromViper(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
