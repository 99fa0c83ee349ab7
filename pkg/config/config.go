// Package config loads the bridge settings from a TOML file, the environment
// and command line flags, in that order of precedence.
package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
)

// Serving modes reported by Config.Mode.
const (
	ModeSynchronous = "synchronous"
	ModeBuffered    = "most_recent"
)

// Config is the full bridge configuration.
type Config struct {
	Brokers     []string `toml:"brokers" env:"BRIDGE_KAFKA_BROKERS" envSeparator:","`
	Topics      []string `toml:"topics" env:"BRIDGE_TOPICS" envSeparator:","`
	GroupID     string   `toml:"group_id" env:"BRIDGE_GROUP_ID"`
	ClientID    string   `toml:"client_id" env:"BRIDGE_CLIENT_ID"`
	OffsetReset string   `toml:"offset_reset" env:"BRIDGE_OFFSET_RESET"`

	// 0 serves synchronously; N > 0 keeps the last N messages per topic.
	MostRecentCount int `toml:"most_recent_count" env:"BRIDGE_MOST_RECENT_COUNT"`

	ForwardURL       string `toml:"forward_url" env:"BRIDGE_FORWARD_URL"`
	ForwardTimeoutMS int    `toml:"forward_timeout_ms" env:"BRIDGE_FORWARD_TIMEOUT_MS"`

	ListenIP   string `toml:"listen_ip" env:"BRIDGE_LISTEN_IP"`
	ListenPort int    `toml:"listen_port" env:"BRIDGE_LISTEN_PORT"`
	TLSCert    string `toml:"tls_cert" env:"SSL_SERVER_CERTIFICATE"`
	TLSKey     string `toml:"tls_key" env:"SSL_SERVER_KEY"`

	LogDir   string `toml:"log_dir" env:"BRIDGE_LOG_DIR"`
	LogLevel string `toml:"log_level" env:"BRIDGE_LOG_LEVEL"`
}

// Defaults returns the built-in settings. Brokers and topics have none.
func Defaults() Config {
	return Config{
		GroupID:          "kafka-bridge",
		ClientID:         "kafka-bridge",
		OffsetReset:      "latest",
		ForwardTimeoutMS: 5000,
		ListenIP:         "0.0.0.0",
		ListenPort:       9099,
		LogDir:           "log",
		LogLevel:         "info",
	}
}

// Load layers defaults, the TOML file at path (skipped when path is empty),
// the environment and any flag in fs that was set explicitly, then validates
// the result. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if fs != nil {
		if err := cfg.ApplyFlags(fs); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Mode names the serving mode the configuration selects.
func (c Config) Mode() string {
	if c.MostRecentCount > 0 {
		return ModeBuffered
	}
	return ModeSynchronous
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.ListenIP, strconv.Itoa(c.ListenPort))
}

// ForwardTimeout bounds each forwarding request.
func (c Config) ForwardTimeout() time.Duration {
	return time.Duration(c.ForwardTimeoutMS) * time.Millisecond
}

// TLS reports whether both a certificate and a key were configured.
func (c Config) TLS() bool { return c.TLSCert != "" && c.TLSKey != "" }
