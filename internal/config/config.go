package config

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultCenterLat    = 41.613889
	defaultCenterLon    = -72.7725
	defaultMaxMiles     = 67
	defaultChannelHash  = "e0"
	defaultChannelKey   = "4076c315c1ef385fa93f066027320fe5"
	defaultMQTTHost     = "analyzer.letsmesh.net"
	defaultMQTTPort     = 443
	defaultMQTTTopic    = "meshcore/BDL/+/packets"
	defaultMQTTClientID = "wardrive_bot"
	defaultServiceHost  = "https://ct-mesh-map.pages.dev"
)

// ValidationConfig bounds which reported locations are plausible.
type ValidationConfig struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	MaxMiles  float64 `json:"max_miles"`
}

// ChannelConfig identifies the single group channel this process decrypts.
type ChannelConfig struct {
	Hash      string `json:"hash"`
	SecretHex string `json:"secret_hex"`
}

// MQTTConfig holds broker connection parameters. The broker is reached over
// TLS websockets, matching the deployed meshcore analyzer.
type MQTTConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Topic    string `json:"topic"`
	ClientID string `json:"client_id"`
}

// SinkConfig points at the map service that stores repeater and sample data.
type SinkConfig struct {
	BaseURL string `json:"base_url"`
}

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Config is the immutable process configuration, read once at startup and
// passed explicitly into each component.
type Config struct {
	Validation     ValidationConfig `json:"validation"`
	Channel        ChannelConfig    `json:"channel"`
	MQTT           MQTTConfig       `json:"mqtt"`
	Sink           SinkConfig       `json:"sink"`
	Logging        LoggingConfig    `json:"logging"`
	WatchedOrigins []string         `json:"watched_origins"`
}

func Default() Config {
	return Config{
		Validation: ValidationConfig{
			CenterLat: defaultCenterLat,
			CenterLon: defaultCenterLon,
			MaxMiles:  defaultMaxMiles,
		},
		Channel: ChannelConfig{
			Hash:      defaultChannelHash,
			SecretHex: defaultChannelKey,
		},
		MQTT: MQTTConfig{
			Host:     defaultMQTTHost,
			Port:     defaultMQTTPort,
			Topic:    defaultMQTTTopic,
			ClientID: defaultMQTTClientID,
		},
		Sink: SinkConfig{
			BaseURL: defaultServiceHost,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		WatchedOrigins: []string{"K1HFZ Base 2", "KO4TSM MQTT Upload", "🐌 base"},
	}
}

// FromEnv builds the configuration from environment variables, falling back
// to deployment defaults for anything unset.
func FromEnv() (Config, error) {
	cfg := Default()

	if raw, ok := lookupAny("CENTER_POSITION"); ok {
		lat, lon, err := parseCenter(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse CENTER_POSITION: %w", err)
		}
		cfg.Validation.CenterLat = lat
		cfg.Validation.CenterLon = lon
	}
	if raw, ok := lookupAny("VALID_DIST", "MAX_DISTANCE_MILES"); ok {
		miles, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse max distance: %w", err)
		}
		cfg.Validation.MaxMiles = miles
	}

	setString(&cfg.Channel.Hash, "CHANNEL_HASH")
	setString(&cfg.Channel.SecretHex, "CHANNEL_SECRET")

	setString(&cfg.MQTT.Host, "MQTT_HOST", "MQTT_BROKER")
	if raw, ok := lookupAny("MQTT_PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse MQTT_PORT: %w", err)
		}
		cfg.MQTT.Port = port
	}
	setString(&cfg.MQTT.Username, "MQTT_USERNAME")
	setString(&cfg.MQTT.Password, "MQTT_PASSWORD")
	setString(&cfg.MQTT.Topic, "MQTT_TOPIC")
	setString(&cfg.MQTT.ClientID, "MQTT_CLIENT_ID")

	setString(&cfg.Sink.BaseURL, "SERVICE_HOST")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.File, "LOG_FILE")

	if raw, ok := lookupAny("WATCHED_OBSERVERS"); ok {
		cfg.WatchedOrigins = parseList(raw)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.WatchedOrigins) == 0 {
		return errors.New("at least one watched origin is required")
	}
	if c.Validation.MaxMiles <= 0 {
		return errors.New("max distance must be positive")
	}
	hash := strings.ToLower(strings.TrimSpace(c.Channel.Hash))
	if len(hash) != 2 {
		return fmt.Errorf("channel hash must be one hex byte: %q", c.Channel.Hash)
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return fmt.Errorf("channel hash must be one hex byte: %q", c.Channel.Hash)
	}
	if _, err := c.ChannelSecret(); err != nil {
		return err
	}
	if strings.TrimSpace(c.MQTT.Host) == "" {
		return errors.New("mqtt host is required")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		return fmt.Errorf("mqtt port out of range: %d", c.MQTT.Port)
	}
	if strings.TrimSpace(c.Sink.BaseURL) == "" {
		return errors.New("sink base url is required")
	}

	return nil
}

// ChannelHash returns the watched channel hash normalized to lower case.
func (c Config) ChannelHash() string {
	return strings.ToLower(strings.TrimSpace(c.Channel.Hash))
}

// ChannelSecret decodes the channel key and checks it is a valid AES key.
func (c Config) ChannelSecret() ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(c.Channel.SecretHex))
	if err != nil {
		return nil, fmt.Errorf("decode channel secret: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, fmt.Errorf("channel secret must be 16, 24 or 32 bytes, got %d", len(key))
	}
}

func lookupAny(names ...string) (string, bool) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v, true
		}
	}

	return "", false
}

func setString(dst *string, names ...string) {
	if v, ok := lookupAny(names...); ok {
		*dst = strings.TrimSpace(v)
	}
}

// parseCenter accepts either a JSON pair like "[41.6, -72.7]" or a plain
// comma-separated "41.6,-72.7".
func parseCenter(raw string) (float64, float64, error) {
	var pair []float64
	if err := json.Unmarshal([]byte(raw), &pair); err == nil {
		if len(pair) != 2 {
			return 0, 0, fmt.Errorf("expected two coordinates, got %d", len(pair))
		}

		return pair[0], pair[1], nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected \"lat,lon\", got %q", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}

	return lat, lon, nil
}

// parseList accepts either a JSON string array or a comma-separated list.
func parseList(raw string) []string {
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err == nil {
		return items
	}

	items = items[:0]
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}

	return items
}
