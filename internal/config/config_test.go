// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.ReminderHour)
	assert.Equal(t, 6, cfg.ReportWeekday)
	assert.Equal(t, 17, cfg.ReportHour)
	assert.Equal(t, 5, cfg.ReportMinute)
	assert.Equal(t, 14, cfg.CheckoutPeriodDays)
	assert.Equal(t, "weekly_report.txt", cfg.ReportFile)
	assert.Equal(t, 5*time.Minute, cfg.JobRunTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OVERDUE_REMINDER_HOUR", "9")
	t.Setenv("REPORT_WEEKDAY", "1")
	t.Setenv("CHECKOUT_PERIOD_DAYS", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.ReminderHour)
	assert.Equal(t, 1, cfg.ReportWeekday)
	assert.Equal(t, 7, cfg.CheckoutPeriodDays)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("OVERDUE_REMINDER_HOUR", "24")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonPositivePeriod(t *testing.T) {
	t.Setenv("CHECKOUT_PERIOD_DAYS", "0")
	_, err := Load()
	assert.Error(t, err)
}
