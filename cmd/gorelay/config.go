package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goRelay "github.com/MrEthical07/goRelay"
)

// envConfig is everything the binary reads from the environment.
type envConfig struct {
	Relay     goRelay.Config
	Addr      string
	Secret    string
	RedisAddr string
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getenvBool(key string, fallback bool) (bool, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getenvInt(key string, fallback int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvConfig maps environment variables onto goRelay.DefaultConfig. Only
// variables that are set override defaults.
func loadEnvConfig() (envConfig, error) {
	cfg := goRelay.DefaultConfig()
	var err error

	cfg.GitHub.BaseURL = getenv("GITHUB_API_URL", cfg.GitHub.BaseURL)
	cfg.GitHub.Repo = getenv("GITHUB_REPO", cfg.GitHub.Repo)
	cfg.GitHub.Token = getenv("GITHUB_TOKEN", cfg.GitHub.Token)
	cfg.GitHub.APIVersion = getenv("GITHUB_API_VERSION", cfg.GitHub.APIVersion)
	if cfg.GitHub.Timeout, err = getenvDuration("GITHUB_TIMEOUT", cfg.GitHub.Timeout); err != nil {
		return envConfig{}, err
	}

	cfg.App.ID = getenv("GITHUB_APP_ID", cfg.App.ID)
	cfg.App.PrivateKeyPEM = getenv("GITHUB_APP_PRIVATE_KEY_PEM", cfg.App.PrivateKeyPEM)
	if path := getenv("GITHUB_APP_PRIVATE_KEY_FILE", ""); path != "" && cfg.App.PrivateKeyPEM == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return envConfig{}, fmt.Errorf("GITHUB_APP_PRIVATE_KEY_FILE: %w", err)
		}
		cfg.App.PrivateKeyPEM = string(data)
	}
	if signers := splitList(getenv("APP_SIGNERS", "")); len(signers) > 0 {
		cfg.App.Signers = signers
	}

	if tag := getenv("DISPATCH_TAG", ""); tag != "" {
		cfg.Rules[0].Tag = tag
	}
	if ev := getenv("DISPATCH_EVENT_TYPE", ""); ev != "" {
		cfg.Rules[0].EventType = ev
	}
	if tag := getenv("PROBE_TAG", ""); tag != "" {
		cfg.Rules[1].Tag = tag
	}
	// Drop rules whose credentials are absent so a PAT-only or app-only
	// deployment validates.
	rules := cfg.Rules[:0]
	for _, r := range cfg.Rules {
		switch {
		case r.Action == goRelay.ActionDispatch && cfg.GitHub.Token == "":
		case r.Action != goRelay.ActionDispatch && cfg.App.ID == "":
		default:
			rules = append(rules, r)
		}
	}
	cfg.Rules = rules

	if cfg.Throttle.Enabled, err = getenvBool("THROTTLE_ENABLED", cfg.Throttle.Enabled); err != nil {
		return envConfig{}, err
	}
	if cfg.Throttle.MaxDispatches, err = getenvInt("THROTTLE_MAX_DISPATCHES", cfg.Throttle.MaxDispatches); err != nil {
		return envConfig{}, err
	}
	if cfg.Throttle.Window, err = getenvDuration("THROTTLE_WINDOW", cfg.Throttle.Window); err != nil {
		return envConfig{}, err
	}

	if cfg.Audit.Enabled, err = getenvBool("AUDIT_ENABLED", cfg.Audit.Enabled); err != nil {
		return envConfig{}, err
	}

	return envConfig{
		Relay:     cfg,
		Addr:      getenv("RELAY_ADDR", ":8080"),
		Secret:    getenv("RELAY_SECRET", ""),
		RedisAddr: getenv("REDIS_ADDR", ""),
	}, nil
}
