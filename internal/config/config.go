// 프로세스 시작 시 한 번 구성되는 설정 정의
//
// 설정 소스 (뒤에 오는 것이 우선):
//  1. 코드 기본값 (Default)
//  2. CONFIG_FILE 로 지정한 TOML 파일
//  3. .env 파일 (이미 설정된 환경변수는 덮어쓰지 않음)
//  4. 프로세스 환경변수
//
// map 형식 환경변수는 "key:value,key2:value2" 로 지정합니다.
//   - ASKAP_ALERT_SEVERITY_MAP=critical:MAJOR,warning:MINOR
//   - SLACK_CHANNEL_ENV_MAP=Production:#askap-prod,Development:#askap-dev

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Alert    AlertConfig    `toml:"alert"`
	Grafana  GrafanaConfig  `toml:"grafana"`
	Slack    SlackConfig    `toml:"slack"`
	Flapping FlappingConfig `toml:"flapping"`
	Postgres PostgresConfig `toml:"postgres"`
	Memory   MemoryConfig   `toml:"memory"`
}

type ServerConfig struct {
	Port string `toml:"port" envconfig:"PORT"`
}

type LogConfig struct {
	Level  string `toml:"level" envconfig:"LOG_LEVEL"`
	Format string `toml:"format" envconfig:"LOG_FORMAT"`
}

// AlertConfig - producer 별 origin 이름과 severity 매핑
type AlertConfig struct {
	SeverityMap     map[string]string `toml:"severity_map" envconfig:"ASKAP_ALERT_SEVERITY_MAP"`
	KapacitorOrigin string            `toml:"kapacitor_origin" envconfig:"KAPACITOR_ORIGIN"`
	GrafanaOrigin   string            `toml:"grafana_origin" envconfig:"GRAFANA_ORIGIN"`
}

type GrafanaConfig struct {
	URL string `toml:"url" envconfig:"GRAFANA_URL"`
}

type SlackConfig struct {
	WebhookURL      string            `toml:"webhook_url" envconfig:"SLACK_WEBHOOK_URL"`
	Token           string            `toml:"token" envconfig:"SLACK_TOKEN"`
	Timeout         time.Duration     `toml:"timeout" envconfig:"SLACK_TIMEOUT"`
	Attachments     bool              `toml:"attachments" envconfig:"SLACK_ATTACHMENTS"`
	Channel         string            `toml:"channel" envconfig:"SLACK_CHANNEL"`
	ChannelEnvMap   map[string]string `toml:"channel_env_map" envconfig:"SLACK_CHANNEL_ENV_MAP"`
	ServiceChannels bool              `toml:"service_channels" envconfig:"SLACK_SERVICE_CHANNELS"`
	Username        string            `toml:"username" envconfig:"ALERTA_USERNAME"`
	SendOnAck       bool              `toml:"send_on_ack" envconfig:"SLACK_SEND_ON_ACK"`
	SeverityColors  map[string]string `toml:"severity_colors" envconfig:"SLACK_SEVERITY_MAP"`
	Icons           map[string]string `toml:"icons" ignored:"true"` // emoji 값에 ':' 가 들어가므로 TOML 로만 설정
	FlappingIcon    string            `toml:"flapping_icon" envconfig:"SLACK_FLAPPING_ICON"`
	SummaryFormat   string            `toml:"summary_fmt" envconfig:"SLACK_SUMMARY_FMT"`
	PayloadTemplate string            `toml:"payload" envconfig:"SLACK_PAYLOAD"`
	IconEmoji       string            `toml:"icon_emoji" envconfig:"ICON_EMOJI"`
	DashboardURL    string            `toml:"dashboard_url" envconfig:"DASHBOARD_URL"`
}

// FlappingConfig - flapping 판정 기준
// Window 동안 상태가 Count 번 이상 바뀌면 flapping 으로 판정
type FlappingConfig struct {
	Enabled        bool          `toml:"enabled" envconfig:"FLAPPING_ENABLED"`
	Window         time.Duration `toml:"window" envconfig:"FLAPPING_WINDOW"`
	Count          int           `toml:"count" envconfig:"FLAPPING_COUNT"`
	NormalSeverity string        `toml:"normal_severity" envconfig:"FLAPPING_NORMAL_SEVERITY"`
}

type PostgresConfig struct {
	DatabaseURL string `toml:"database_url" envconfig:"DATABASE_URL"`
	Host        string `toml:"host" envconfig:"PGHOST"`
	Port        string `toml:"port" envconfig:"PGPORT"`
	User        string `toml:"user" envconfig:"PGUSER"`
	Password    string `toml:"password" envconfig:"PGPASSWORD"`
	Database    string `toml:"database" envconfig:"PGDATABASE"`
	SSLMode     string `toml:"sslmode" envconfig:"PGSSLMODE"`
}

// Enabled - DATABASE_URL 또는 PGUSER/PGDATABASE 가 설정된 경우에만 Postgres 사용
func (c PostgresConfig) Enabled() bool {
	return c.DatabaseURL != "" || (c.User != "" && c.Database != "")
}

type MemoryConfig struct {
	Retention time.Duration `toml:"retention" envconfig:"MEMORY_RETENTION"`
}

// Default - 설정 파일/환경변수가 없을 때의 기본값
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Alert: AlertConfig{
			SeverityMap: map[string]string{
				"critical":      "MAJOR",
				"warning":       "MINOR",
				"indeterminate": "INVALID",
				"ok":            "OK",
				"unknown":       "INVALID",
				"major":         "MAJOR",
			},
			KapacitorOrigin: "kapacitor",
			GrafanaOrigin:   "Grafana",
		},
		Grafana: GrafanaConfig{URL: "http://localhost"},
		Slack: SlackConfig{
			Timeout:     2 * time.Second,
			Attachments: true,
			Username:    "alerta",
			SeverityColors: map[string]string{
				"security":      "#000000", // black
				"critical":      "#FF0000", // red
				"major":         "#FFA500", // orange
				"minor":         "#FFFF00", // yellow
				"warning":       "#1E90FF", // blue
				"informational": "#808080", // gray
				"debug":         "#808080",
				"trace":         "#808080",
				"ok":            "#00CC00", // green
			},
			Icons: map[string]string{
				"OK":    ":ok_hand:",
				"MINOR": ":bomb:",
				"MAJOR": ":boom:",
			},
			FlappingIcon: ":repeat:",
			IconEmoji:    ":rocket:",
		},
		Flapping: FlappingConfig{
			Enabled:        true,
			Window:         time.Hour,
			Count:          5,
			NormalSeverity: "OK",
		},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    "5432",
			SSLMode: "disable",
		},
		Memory: MemoryConfig{Retention: 24 * time.Hour},
	}
}

// Load - 기본값 -> TOML 파일 -> .env -> 환경변수 순서로 설정 구성
//
// configFile 이 빈 문자열이면 CONFIG_FILE 환경변수를 사용합니다.
// 검증은 하지 않으므로 서버 기동 전에 Validate 를 호출해야 합니다.
func Load(configFile string) (Config, error) {
	// .env 가 없으면 무시 (운영 환경에서는 환경변수를 직접 주입)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		if err := cfg.mergeFile(configFile); err != nil {
			return Config{}, err
		}
	}

	// envconfig 는 설정되지 않은 환경변수의 필드를 건드리지 않으므로 기본값/파일 값이 유지됨
	base := cfg
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process env: %w", err)
	}
	cfg.mergeTables(base)

	return cfg, nil
}

// mergeFile - TOML 파일 값을 덮어씀
// map 값은 기존 테이블에 항목 단위로 병합 (통째로 교체하지 않음)
func (c *Config) mergeFile(path string) error {
	base := *c
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	c.mergeTables(base)
	return nil
}

func (c *Config) mergeTables(base Config) {
	c.Alert.SeverityMap = mergeMap(base.Alert.SeverityMap, c.Alert.SeverityMap)
	c.Slack.SeverityColors = mergeMap(base.Slack.SeverityColors, c.Slack.SeverityColors)
	c.Slack.Icons = mergeMap(base.Slack.Icons, c.Slack.Icons)
}

func mergeMap(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// Validate - 시작 시점에 잘못된 설정을 거부
func (c Config) Validate() error {
	if c.Slack.WebhookURL == "" {
		return errors.New("SLACK_WEBHOOK_URL is required")
	}
	for name, raw := range map[string]string{
		"SLACK_WEBHOOK_URL": c.Slack.WebhookURL,
		"GRAFANA_URL":       c.Grafana.URL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
	}
	if c.Flapping.Window < 0 || c.Flapping.Count < 0 {
		return fmt.Errorf("invalid flapping thresholds: window=%s count=%d", c.Flapping.Window, c.Flapping.Count)
	}
	if c.Slack.Timeout <= 0 {
		return fmt.Errorf("invalid SLACK_TIMEOUT: %s", c.Slack.Timeout)
	}
	return nil
}

// Redacted - 템플릿 등 외부로 노출할 때 사용하는 비밀값 제거 사본
func (c Config) Redacted() Config {
	c.Slack.Token = ""
	c.Postgres.Password = ""
	if c.Postgres.DatabaseURL != "" {
		if u, err := url.Parse(c.Postgres.DatabaseURL); err == nil {
			c.Postgres.DatabaseURL = u.Redacted()
		} else {
			c.Postgres.DatabaseURL = ""
		}
	}
	return c
}
