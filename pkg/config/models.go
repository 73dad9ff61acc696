package config

import "time"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Reconnect ReconnectConfig `mapstructure:"reconnect"`
	Transport TransportConfig `mapstructure:"transport"`
	Typing    TypingConfig    `mapstructure:"typing"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token"`
	UserID      string `mapstructure:"userID"`
	DisplayName string `mapstructure:"displayName"`
}

// ReconnectConfig is the backoff policy applied after an unexpected close.
// Delay is the fixed (or initial, when Exponential) interval between attempts.
type ReconnectConfig struct {
	Delay       time.Duration `mapstructure:"delay"`
	MaxDelay    time.Duration `mapstructure:"maxDelay"`
	MaxAttempts int           `mapstructure:"maxAttempts"`
	Exponential bool          `mapstructure:"exponential"`
}

type TransportConfig struct {
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

type TypingConfig struct {
	IdleTimeout time.Duration `mapstructure:"idleTimeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}
