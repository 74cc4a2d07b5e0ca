// Package config provides configuration management for the mail receiver.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds the complete receiver configuration. It is loaded once at
// startup and treated as an immutable snapshot afterwards; every session
// reads from the same value without locking.
type Config struct {
	ListenIP   string `toml:"listen_ip"`
	ListenPort int    `toml:"listen_port"`

	// ReceiveTimeoutMS is the per-read socket deadline in milliseconds.
	// Zero means reads block forever.
	ReceiveTimeoutMS int `toml:"receive_timeout_ms"`

	// HostName appears in the banner and is rejected as a HELO spoof value.
	HostName string `toml:"host_name"`

	// MaxSessions caps concurrent sessions; excess connections get a 421.
	MaxSessions int `toml:"max_sessions"`

	// MaxMessages is the per-session message ceiling.
	MaxMessages int `toml:"max_messages"`

	// Per-session hard command ceilings. The session closes once one trips.
	MaxSmtpErr  int `toml:"max_smtp_err"`
	MaxSmtpNoop int `toml:"max_smtp_noop"`
	MaxSmtpVrfy int `toml:"max_smtp_vrfy"`
	MaxSmtpRcpt int `toml:"max_smtp_rcpt"`

	// Tarpit pauses, milliseconds.
	BannerDelayMS int `toml:"banner_delay_ms"`
	ErrorDelayMS  int `toml:"error_delay_ms"`

	// MaxDataSize is the number of body bytes kept per message; a body that
	// exceeds it is drained but rejected with 422.
	MaxDataSize int `toml:"max_data_size"`

	// StoreData enables persisting envelope+body to a file under StorePath.
	StoreData bool   `toml:"store_data"`
	StorePath string `toml:"store_path"`

	// LogPath is the pipe-delimited session log. LogVerbose additionally
	// records every SMTP line exchanged, tagged SND/RCV.
	LogPath    string `toml:"log_path"`
	LogVerbose bool   `toml:"log_verbose"`

	// DoTempFail makes the receiver answer DATA (or the end of a stored
	// body) with a 421 and close, nolisting-style.
	DoTempFail bool `toml:"do_tempfail"`

	// CheckHeloFormat enables lexical validation of HELO/EHLO arguments.
	CheckHeloFormat bool `toml:"check_helo_format"`

	// EarlyTalkers enables detection of clients that send before reading.
	EarlyTalkers bool `toml:"early_talkers"`

	// Ordered DNSxL zones. Whitelist hits short-circuit blacklist checks.
	Whitelists []string `toml:"whitelists"`
	Blacklists []string `toml:"blacklists"`

	// Allow-lists for RCPT TO. Empty means accept any.
	LocalDomains   []string `toml:"local_domains"`
	LocalMailboxes []string `toml:"local_mailboxes"`

	LogLevel string        `toml:"log_level"`
	Metrics  MetricsConfig `toml:"metrics"`
}

// MetricsConfig holds configuration for the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Path    string `toml:"path"`
}

// Default returns a Config with the documented default values.
func Default() Config {
	return Config{
		ListenIP:         "127.0.0.1",
		ListenPort:       25,
		ReceiveTimeoutMS: 30000,
		HostName:         "localhost",
		MaxSessions:      16,
		MaxMessages:      10,
		MaxSmtpErr:       4,
		MaxSmtpNoop:      7,
		MaxSmtpVrfy:      10,
		MaxSmtpRcpt:      100,
		BannerDelayMS:    0,
		ErrorDelayMS:     800,
		MaxDataSize:      2097152,
		StoreData:        true,
		StorePath:        "./messages",
		LogPath:          "./mailrecv.log",
		CheckHeloFormat:  true,
		EarlyTalkers:     true,
		LogLevel:         "info",
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9100",
			Path:    "/metrics",
		},
	}
}

// ListenAddr returns the bind address in host:port form.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.ListenIP, strconv.Itoa(c.ListenPort))
}

// ReceiveTimeout returns the per-read deadline. Zero disables it.
func (c *Config) ReceiveTimeout() time.Duration {
	return time.Duration(c.ReceiveTimeoutMS) * time.Millisecond
}

// BannerDelay returns the pre-banner tarpit pause.
func (c *Config) BannerDelay() time.Duration {
	return time.Duration(c.BannerDelayMS) * time.Millisecond
}

// ErrorDelay returns the per-error tarpit unit.
func (c *Config) ErrorDelay() time.Duration {
	return time.Duration(c.ErrorDelayMS) * time.Millisecond
}

// Validate checks that the configuration is usable and returns an error if not.
func (c *Config) Validate() error {
	if c.HostName == "" {
		return errors.New("host_name is required")
	}

	if c.ListenIP == "" {
		return errors.New("listen_ip is required")
	}
	if net.ParseIP(c.ListenIP) == nil {
		return fmt.Errorf("listen_ip %q is not an IP address", c.ListenIP)
	}

	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port %d out of range", c.ListenPort)
	}

	if c.ReceiveTimeoutMS < 0 {
		return errors.New("receive_timeout_ms must not be negative")
	}

	if c.MaxSessions <= 0 {
		return errors.New("max_sessions must be positive")
	}

	for _, lim := range []struct {
		name  string
		value int
	}{
		{"max_messages", c.MaxMessages},
		{"max_smtp_err", c.MaxSmtpErr},
		{"max_smtp_noop", c.MaxSmtpNoop},
		{"max_smtp_vrfy", c.MaxSmtpVrfy},
		{"max_smtp_rcpt", c.MaxSmtpRcpt},
		{"banner_delay_ms", c.BannerDelayMS},
		{"error_delay_ms", c.ErrorDelayMS},
		{"max_data_size", c.MaxDataSize},
	} {
		if lim.value < 0 {
			return fmt.Errorf("%s must not be negative", lim.name)
		}
	}

	if c.StoreData && c.StorePath == "" {
		return errors.New("store_path is required when store_data is enabled")
	}

	if c.LogPath == "" {
		return errors.New("log_path is required")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			return errors.New("metrics address is required when metrics are enabled")
		}
		if c.Metrics.Path == "" {
			return errors.New("metrics path is required when metrics are enabled")
		}
	}

	return nil
}
