// Package config provides configuration for the broker.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const configFilePath = "config.json"

// Config holds the broker configuration.
type Config struct {
	Address      string `json:"address" mapstructure:"address"`
	DatabasePath string `json:"database-path" mapstructure:"database-path"`
	LogLevel     string `json:"log-level" mapstructure:"log-level"`

	// WebSocket tuning
	PingIntervalMs int `json:"ws-ping-interval-ms" mapstructure:"ws-ping-interval-ms"`
	WriteTimeoutMs int `json:"ws-write-timeout-ms" mapstructure:"ws-write-timeout-ms"`
	ReadTimeoutMs  int `json:"ws-read-timeout-ms" mapstructure:"ws-read-timeout-ms"`
	MaxMessageSize int `json:"ws-max-message-size" mapstructure:"ws-max-message-size"`
	SendBufferSize int `json:"ws-send-buffer-size" mapstructure:"ws-send-buffer-size"`
	TokenTTLHours  int `json:"token-ttl-hours" mapstructure:"token-ttl-hours"`
}

// field: default value
var optionalFields = map[string]interface{}{
	"address":             ":8080",
	"database-path":       "groove.db",
	"log-level":           "INFO",
	"ws-ping-interval-ms": 30000,
	"ws-write-timeout-ms": 10000,
	"ws-read-timeout-ms":  60000,
	"ws-max-message-size": 65536,
	"ws-send-buffer-size": 256,
	"token-ttl-hours":     24 * 30,
}

// InitConfig reads configuration from a JSON file and environment variables.
// Environment variables take precedence over the config file, and every
// field has a default so the file itself is optional.
func InitConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configFilePath)
	v.SetConfigType("json")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	for field, defaultValue := range optionalFields {
		v.SetDefault(field, defaultValue)
		v.BindEnv(field)
	}

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("could not read config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	return &config, nil
}

// PingInterval returns the WebSocket ping period.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalMs) * time.Millisecond
}

// WriteTimeout returns the per-message socket write deadline.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}

// ReadTimeout returns the socket read deadline, refreshed on every pong.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// TokenTTL returns the lifetime of a login token.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}
