package main

import (
	"log/slog"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		port        string
		logLevel    string
		metrics     string
		wantPort    int
		wantLevel   slog.Level
		wantMetrics string
		wantErr     bool
	}{
		{
			name:      "Defaults",
			wantPort:  8000,
			wantLevel: slog.LevelInfo,
		},
		{
			name:        "Everything set",
			port:        "8001",
			logLevel:    "DEBUG",
			metrics:     "localhost:2112",
			wantPort:    8001,
			wantLevel:   slog.LevelDebug,
			wantMetrics: "localhost:2112",
		},
		{
			name:      "Long warning spelling",
			logLevel:  "warning",
			wantPort:  8000,
			wantLevel: slog.LevelWarn,
		},
		{
			name:    "Port is not a number",
			port:    "eighty",
			wantErr: true,
		},
		{
			name:    "Port out of range",
			port:    "70000",
			wantErr: true,
		},
		{
			name:    "Port zero",
			port:    "0",
			wantErr: true,
		},
		{
			name:     "Unknown log level",
			logLevel: "loud",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// An empty value falls back to the default, like an unset one.
			t.Setenv("PORT", tt.port)
			t.Setenv("METRICS_ADDR", tt.metrics)
			if tt.logLevel == "" {
				tt.logLevel = "info"
			}
			t.Setenv("LOG_LEVEL", tt.logLevel)

			cfg, err := loadConfig()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("loadConfig() = %+v, want an error", cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadConfig(): %v", err)
			}
			if cfg.port != tt.wantPort {
				t.Errorf("port = %d, want %d", cfg.port, tt.wantPort)
			}
			if cfg.logLevel != tt.wantLevel {
				t.Errorf("logLevel = %v, want %v", cfg.logLevel, tt.wantLevel)
			}
			if cfg.metricsAddr != tt.wantMetrics {
				t.Errorf("metricsAddr = %q, want %q", cfg.metricsAddr, tt.wantMetrics)
			}
			if cfg.root == "" {
				t.Error("root is empty, want the working directory")
			}
		})
	}
}
