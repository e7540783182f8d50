package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const defaultPort = 8000

// config is fixed once the server starts. Port is the only setting that
// changes what gets served; the rest are operational.
type config struct {
	port        int
	root        string
	logLevel    slog.Level
	metricsAddr string
}

// loadConfig reads the environment on top of the defaults. The caller is
// expected to have loaded any .env file already.
func loadConfig() (config, error) {
	root, err := os.Getwd()
	if err != nil {
		return config{}, fmt.Errorf("finding the working directory: %w", err)
	}

	port, err := envInt("PORT", defaultPort)
	if err != nil {
		return config{}, err
	}
	if port < 1 || port > 65535 {
		return config{}, fmt.Errorf("PORT must be in 1..65535, got %d", port)
	}

	level, err := parseLevel(envString("LOG_LEVEL", "info"))
	if err != nil {
		return config{}, err
	}

	return config{
		port:        port,
		root:        root,
		logLevel:    level,
		metricsAddr: envString("METRICS_ADDR", ""),
	}, nil
}

func envString(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s is not an integer (%q): %w", key, v, err)
	}
	return n, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	// slog knows "warn" but not the longer spelling.
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}
