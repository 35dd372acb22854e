package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/derivbot/config"
	"github.com/alejandrodnm/derivbot/internal/adapters/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://dbot.deriv.com/#bot_builder", cfg.Bot.URL)
	assert.Equal(t, 20, cfg.Bot.MaxIterations)
	assert.Equal(t, 3.0, cfg.Bot.TakeProfit)
	assert.Equal(t, -5.0, cfg.Bot.StopLoss)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 2*time.Second, cfg.SettleDelay())
	assert.Equal(t, 60*time.Second, cfg.WaitTimeout())
	assert.Equal(t, time.Duration(0), cfg.MaxRunDuration())
	assert.Equal(t, 3, cfg.RetryCount())
	assert.Equal(t, 2*time.Second, cfg.RetryDelay())
	assert.Empty(t, cfg.Bot.Selectors.Run, "empty selectors are filled by the runner")
	assert.Equal(t, browser.DriverChromedp, cfg.Browser.Driver)
	assert.Equal(t, 1920, cfg.Browser.Width)
	assert.Equal(t, "deriv_bot_results.csv", cfg.Output.CSVPath)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLValues(t *testing.T) {
	path := writeYAML(t, `
bot:
  max_iterations: 5
  take_profit: 1.5
  stop_loss: -2
browser:
  driver: playwright
  headless: true
output:
  csv_path: out.csv
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Bot.MaxIterations)
	assert.Equal(t, 1.5, cfg.Bot.TakeProfit)
	assert.Equal(t, -2.0, cfg.Bot.StopLoss)
	assert.Equal(t, browser.DriverPlaywright, cfg.Browser.Driver)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "out.csv", cfg.Output.CSVPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DERIVBOT_CSV", "/tmp/results.csv")
	t.Setenv("DERIVBOT_PROFILE", "Profile 5")

	cfg, err := config.Load(writeYAML(t, "log:\n  level: warn\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/results.csv", cfg.Output.CSVPath)
	assert.Equal(t, "Profile 5", cfg.Browser.ProfileDirectory)
}

func TestLoad_InvalidThresholds(t *testing.T) {
	_, err := config.Load(writeYAML(t, "bot:\n  take_profit: -1\n  stop_loss: 2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop_loss")
}

func TestLoad_UnknownDriver(t *testing.T) {
	_, err := config.Load(writeYAML(t, "browser:\n  driver: selenium\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selenium")
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := config.Load(writeYAML(t, "bot: [unclosed"))
	require.Error(t, err)
}

func TestLoad_RetriesZeroDisablesRetries(t *testing.T) {
	cfg, err := config.Load(writeYAML(t, "bot:\n  retries: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RetryCount())

	cfg, err = config.Load(writeYAML(t, "bot:\n  retries: -2\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.RetryCount())

	cfg, err = config.Load(writeYAML(t, "bot:\n  retries: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.RetryCount())
}
