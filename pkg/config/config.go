package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Feed transports
const (
	TransportSSE  = "sse"
	TransportMQTT = "mqtt"
)

type Config struct {
	// Detection API
	APIBaseURL  string        `env:"API_BASE_URL" envDefault:"http://localhost:5000"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Live feed
	FeedTransport  string        `env:"FEED_TRANSPORT" envDefault:"sse"`
	FeedPath       string        `env:"FEED_PATH" envDefault:"/events"`
	ReconnectDelay time.Duration `env:"FEED_RECONNECT_DELAY" envDefault:"5s"`

	// MQTT feed transport
	MQTTBroker            string `env:"MQTT_BROKER" envDefault:"tcp://localhost:1883"`
	MQTTClientID          string `env:"MQTT_CLIENT_ID" envDefault:"ppe-dashboard"`
	MQTTUsername          string `env:"MQTT_USERNAME"`
	MQTTPassword          string `env:"MQTT_PASSWORD"`
	MQTTTopicDetection    string `env:"MQTT_TOPIC_DETECTION" envDefault:"ppe/+/detection"`
	MQTTTopicSourceUpdate string `env:"MQTT_TOPIC_SOURCE_UPDATE" envDefault:"ppe/+/source_update"`
	MQTTTopicStats        string `env:"MQTT_TOPIC_STATS" envDefault:"ppe/stats"`

	// Timeline
	TimelineWindow  time.Duration `env:"TIMELINE_WINDOW" envDefault:"5m"`
	TimelineTick    time.Duration `env:"TIMELINE_TICK" envDefault:"1s"`
	TrackWidth      int           `env:"TRACK_WIDTH" envDefault:"0"` // 0 uses the terminal width
	AlertConfidence float64       `env:"ALERT_CONFIDENCE" envDefault:"0.8"`

	// Kiosk
	CameraDir         string        `env:"CAMERA_DIR"`
	CameraSnapshotURL string        `env:"CAMERA_SNAPSHOT_URL"`
	DetectInterval    time.Duration `env:"DETECT_INTERVAL" envDefault:"500ms"`
	PositionInterval  time.Duration `env:"POSITION_INTERVAL" envDefault:"2s"`
	AutoCompleteDelay time.Duration `env:"AUTO_COMPLETE_DELAY" envDefault:"2s"`
	KioskDefaultsFile string        `env:"KIOSK_DEFAULTS_FILE"`

	// ClickHouse archive (disabled when address is empty)
	ClickHouseAddr string `env:"CLICKHOUSE_ADDR"`
	ClickHouseDB   string `env:"CLICKHOUSE_DB" envDefault:"ppe"`
	ClickHouseUser string `env:"CLICKHOUSE_USER" envDefault:"default"`
	ClickHousePass string `env:"CLICKHOUSE_PASS"`

	// Redis catalog cache (disabled when address is empty)
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// NATS notification fan-out (disabled when URL is empty)
	NatsURL     string `env:"NATS_URL"`
	NatsSubject string `env:"NATS_SUBJECT" envDefault:"ppe.notifications"`
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err == nil {
		log.Println("Config: loaded .env")
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse reads the environment into a Config without validating it
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}

	switch c.FeedTransport {
	case TransportSSE, TransportMQTT:
	default:
		return fmt.Errorf("FEED_TRANSPORT must be %q or %q, got %q", TransportSSE, TransportMQTT, c.FeedTransport)
	}

	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("FEED_RECONNECT_DELAY must be positive")
	}

	if c.TimelineWindow < time.Second {
		return fmt.Errorf("TIMELINE_WINDOW must be at least 1 second")
	}

	if c.TimelineTick <= 0 {
		return fmt.Errorf("TIMELINE_TICK must be positive")
	}

	if c.TrackWidth < 0 {
		return fmt.Errorf("TRACK_WIDTH must not be negative")
	}

	if c.AlertConfidence <= 0 || c.AlertConfidence > 1 {
		return fmt.Errorf("ALERT_CONFIDENCE must be above 0 and at most 1")
	}

	if c.DetectInterval <= 0 || c.PositionInterval <= 0 {
		return fmt.Errorf("DETECT_INTERVAL and POSITION_INTERVAL must be positive")
	}

	if c.AutoCompleteDelay <= 0 {
		return fmt.Errorf("AUTO_COMPLETE_DELAY must be positive")
	}

	return nil
}

// FeedURL joins the API base with the push channel path
func (c *Config) FeedURL() string {
	return joinURL(c.APIBaseURL, c.FeedPath)
}

func joinURL(base, path string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	if path == "" {
		return base
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return base + path
}
