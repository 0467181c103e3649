package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr              string
	DatabaseURL       string
	SessionGatewayURL string
	SessionGatewayKey string
	BalanceFile       string
	// LevelBracketMax caps mission level deltas; 0 disables the bracket.
	LevelBracketMax   int32
	MissionsPerMinute float64
	MissionBurst      int
}

type WorkerConfig struct {
	DatabaseURL string
	BalanceFile string
	SweepEvery  time.Duration
	RunOnce     bool
}

type CLIConfig struct {
	APIBaseURL  string
	DatabaseURL string
	BalanceFile string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("STELLAR_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:              addr,
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SessionGatewayURL: strings.TrimRight(strings.TrimSpace(os.Getenv("SESSION_GATEWAY_URL")), "/"),
		SessionGatewayKey: strings.TrimSpace(os.Getenv("SESSION_GATEWAY_KEY")),
		BalanceFile:       strings.TrimSpace(os.Getenv("STELLAR_BALANCE_FILE")),
		LevelBracketMax:   int32(envIntDefault("STELLAR_LEVEL_BRACKET", 0)),
		MissionsPerMinute: envFloatDefault("STELLAR_MISSIONS_PER_MINUTE", 12),
		MissionBurst:      envIntDefault("STELLAR_MISSION_BURST", 4),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SessionGatewayURL == "" {
		return cfg, fmt.Errorf("SESSION_GATEWAY_URL is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		BalanceFile: strings.TrimSpace(os.Getenv("STELLAR_BALANCE_FILE")),
		SweepEvery:  envDurationDefault("STELLAR_TURN_SWEEP_EVERY", 10*time.Minute),
		RunOnce:     envBoolDefault("STELLAR_WORKER_RUN_ONCE", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL:  strings.TrimRight(envDefault("STELLAR_API_BASE_URL", "http://localhost:8080"), "/"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		BalanceFile: strings.TrimSpace(os.Getenv("STELLAR_BALANCE_FILE")),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
