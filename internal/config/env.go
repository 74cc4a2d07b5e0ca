package config

import (
	"os"
	"strconv"
)

// ApplyEnv applies environment variable overrides to the configuration.
// Environment variables take precedence over TOML config but are overridden
// by command-line flags.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("MAILRECV_LISTEN_IP"); v != "" {
		cfg.ListenIP = v
	}
	if v := os.Getenv("MAILRECV_LISTEN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.ListenPort = port
		}
	}
	if v := os.Getenv("MAILRECV_HOSTNAME"); v != "" {
		cfg.HostName = v
	}
	if v := os.Getenv("MAILRECV_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MAILRECV_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("MAILRECV_LOG_PATH"); v != "" {
		cfg.LogPath = v
	}
	return cfg
}
