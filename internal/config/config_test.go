package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notifier.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "MAJOR", cfg.Alert.SeverityMap["critical"])
	require.Equal(t, "MINOR", cfg.Alert.SeverityMap["warning"])
	require.Equal(t, "kapacitor", cfg.Alert.KapacitorOrigin)
	require.Equal(t, 2*time.Second, cfg.Slack.Timeout)
	require.True(t, cfg.Slack.Attachments)
	require.Equal(t, ":repeat:", cfg.Slack.FlappingIcon)
	require.True(t, cfg.Flapping.Enabled)
	require.Equal(t, time.Hour, cfg.Flapping.Window)
	require.Equal(t, 5, cfg.Flapping.Count)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfigFile(t, `
[grafana]
url = "https://grafana.example.org"

[alert.severity_map]
critical = "CRITICAL"

[slack]
webhook_url = "https://hooks.slack.test/file"
channel = "#from-file"

[slack.icons]
MAJOR = ":fire:"

[flapping]
window = "30m"
count = 3
`)

	t.Setenv("SLACK_CHANNEL", "#from-env")
	t.Setenv("ASKAP_ALERT_SEVERITY_MAP", "fatal:MAJOR")
	t.Setenv("FLAPPING_COUNT", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	// 파일 값
	require.Equal(t, "https://grafana.example.org", cfg.Grafana.URL)
	require.Equal(t, "https://hooks.slack.test/file", cfg.Slack.WebhookURL)
	require.Equal(t, 30*time.Minute, cfg.Flapping.Window)
	require.Equal(t, ":fire:", cfg.Slack.Icons["MAJOR"])
	require.Equal(t, ":ok_hand:", cfg.Slack.Icons["OK"])

	// 환경변수가 파일보다 우선
	require.Equal(t, "#from-env", cfg.Slack.Channel)
	require.Equal(t, 7, cfg.Flapping.Count)

	// map 은 항목 단위 병합
	require.Equal(t, "CRITICAL", cfg.Alert.SeverityMap["critical"])
	require.Equal(t, "MAJOR", cfg.Alert.SeverityMap["fatal"])
	require.Equal(t, "MINOR", cfg.Alert.SeverityMap["warning"])
}

func TestLoadFromConfigFileEnv(t *testing.T) {
	path := writeConfigFile(t, `
[server]
port = "9090"
`)
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
}

func TestLoadInvalidFile(t *testing.T) {
	path := writeConfigFile(t, `[slack`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Slack.WebhookURL = "https://hooks.slack.test/services/T/B/X"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing webhook", func(c *Config) { c.Slack.WebhookURL = "" }},
		{"relative webhook", func(c *Config) { c.Slack.WebhookURL = "/services/x" }},
		{"bad grafana url", func(c *Config) { c.Grafana.URL = "grafana" }},
		{"negative window", func(c *Config) { c.Flapping.Window = -time.Minute }},
		{"negative count", func(c *Config) { c.Flapping.Count = -1 }},
		{"zero timeout", func(c *Config) { c.Slack.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Slack.Token = "xoxb-secret"
	cfg.Postgres.Password = "hunter2"
	cfg.Postgres.DatabaseURL = "postgres://notifier:hunter2@db:5432/alerts"

	redacted := cfg.Redacted()
	require.Empty(t, redacted.Slack.Token)
	require.Empty(t, redacted.Postgres.Password)
	require.NotContains(t, redacted.Postgres.DatabaseURL, "hunter2")

	// 원본은 그대로
	require.Equal(t, "xoxb-secret", cfg.Slack.Token)
}

func TestPostgresEnabled(t *testing.T) {
	require.False(t, PostgresConfig{}.Enabled())
	require.False(t, PostgresConfig{User: "notifier"}.Enabled())
	require.True(t, PostgresConfig{User: "notifier", Database: "alerts"}.Enabled())
	require.True(t, PostgresConfig{DatabaseURL: "postgres://db/alerts"}.Enabled())
}
