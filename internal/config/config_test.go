package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.ListenIP != "127.0.0.1" {
		t.Errorf("ListenIP = %q, want 127.0.0.1", cfg.ListenIP)
	}
	if cfg.ListenPort != 25 {
		t.Errorf("ListenPort = %d, want 25", cfg.ListenPort)
	}
	if !cfg.StoreData {
		t.Error("StoreData should default to true")
	}
	if !cfg.CheckHeloFormat {
		t.Error("CheckHeloFormat should default to true")
	}
	if !cfg.EarlyTalkers {
		t.Error("EarlyTalkers should default to true")
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics should default to disabled")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestListenAddr(t *testing.T) {
	cfg := Default()
	cfg.ListenIP = "0.0.0.0"
	cfg.ListenPort = 2525

	if got := cfg.ListenAddr(); got != "0.0.0.0:2525" {
		t.Errorf("ListenAddr() = %q, want 0.0.0.0:2525", got)
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()
	cfg.ReceiveTimeoutMS = 1500
	cfg.BannerDelayMS = 250
	cfg.ErrorDelayMS = 100

	if got := cfg.ReceiveTimeout(); got != 1500*time.Millisecond {
		t.Errorf("ReceiveTimeout() = %v, want 1.5s", got)
	}
	if got := cfg.BannerDelay(); got != 250*time.Millisecond {
		t.Errorf("BannerDelay() = %v, want 250ms", got)
	}
	if got := cfg.ErrorDelay(); got != 100*time.Millisecond {
		t.Errorf("ErrorDelay() = %v, want 100ms", got)
	}

	cfg.ReceiveTimeoutMS = 0
	if got := cfg.ReceiveTimeout(); got != 0 {
		t.Errorf("ReceiveTimeout() with 0 = %v, want 0", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing hostname",
			mutate:  func(c *Config) { c.HostName = "" },
			wantErr: "host_name",
		},
		{
			name:    "missing listen ip",
			mutate:  func(c *Config) { c.ListenIP = "" },
			wantErr: "listen_ip",
		},
		{
			name:    "bad listen ip",
			mutate:  func(c *Config) { c.ListenIP = "not-an-ip" },
			wantErr: "listen_ip",
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.ListenPort = 0 },
			wantErr: "listen_port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.ListenPort = 70000 },
			wantErr: "listen_port",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.ReceiveTimeoutMS = -1 },
			wantErr: "receive_timeout_ms",
		},
		{
			name:    "zero max sessions",
			mutate:  func(c *Config) { c.MaxSessions = 0 },
			wantErr: "max_sessions",
		},
		{
			name:    "negative error delay",
			mutate:  func(c *Config) { c.ErrorDelayMS = -5 },
			wantErr: "error_delay_ms",
		},
		{
			name: "store enabled without path",
			mutate: func(c *Config) {
				c.StoreData = true
				c.StorePath = ""
			},
			wantErr: "store_path",
		},
		{
			name:    "missing log path",
			mutate:  func(c *Config) { c.LogPath = "" },
			wantErr: "log_path",
		},
		{
			name: "metrics enabled without address",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Address = ""
			},
			wantErr: "metrics address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
