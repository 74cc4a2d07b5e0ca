package config

import (
	"flag"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Flags holds command-line flag values.
type Flags struct {
	ConfigPath string
	ListenIP   string
	ListenPort int
	HostName   string
	LogLevel   string
	StorePath  string
	LogPath    string
}

// ParseFlags parses command-line flags from args and returns a Flags struct.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}

	fs := flag.NewFlagSet("mailrecv", flag.ContinueOnError)
	fs.StringVar(&f.ConfigPath, "config", "./mailrecv.toml", "Path to configuration file")
	fs.StringVar(&f.ListenIP, "listen-ip", "", "Listen IP address")
	fs.IntVar(&f.ListenPort, "listen-port", 0, "Listen TCP port")
	fs.StringVar(&f.HostName, "hostname", "", "Server hostname for the banner")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.StorePath, "store-path", "", "Directory for stored messages")
	fs.StringVar(&f.LogPath, "log-path", "", "Path to the session log file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// Load parses a TOML configuration file and returns the Config.
// If the file does not exist, returns the default configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// ApplyFlags merges command-line flag values into the config.
// Non-zero/non-empty flag values override config file values.
func ApplyFlags(cfg Config, f *Flags) Config {
	if f.ListenIP != "" {
		cfg.ListenIP = f.ListenIP
	}

	if f.ListenPort > 0 {
		cfg.ListenPort = f.ListenPort
	}

	if f.HostName != "" {
		cfg.HostName = f.HostName
	}

	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}

	if f.StorePath != "" {
		cfg.StorePath = f.StorePath
	}

	if f.LogPath != "" {
		cfg.LogPath = f.LogPath
	}

	return cfg
}

// LoadWithFlags loads configuration from the path specified in flags,
// then applies environment variable overrides and flag overrides.
// Precedence (highest to lowest): flags > environment variables > TOML config > defaults.
func LoadWithFlags(f *Flags) (Config, error) {
	cfg, err := Load(f.ConfigPath)
	if err != nil {
		return cfg, err
	}
	cfg = ApplyEnv(cfg)
	return ApplyFlags(cfg, f), nil
}
