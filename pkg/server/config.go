package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/cloutmarket/settlement/pkg/rewards"
)

// VersionInfo contains build-time version information.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

type Config struct {
	Logger            *slog.Logger
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	VersionInfo       VersionInfo
	AllowedOrigins    []string

	// BuildRatePerMinute caps transaction-building POSTs per client IP.
	// Zero disables rate limiting.
	BuildRatePerMinute int
	BuildBurst         int

	Composer *rewards.Composer
	Registry *rewards.Registry
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if cfg.Composer == nil {
		return errors.New("composer is required")
	}
	if cfg.Registry == nil {
		return errors.New("registry is required")
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.BuildBurst == 0 {
		cfg.BuildBurst = 10
	}
	return nil
}
