package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; PORT may come from it or from the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Ignoring the .env file", slog.Any("err", err))
	}

	cfg, err := loadConfig()
	assert(err == nil, "reading the configuration: %v", err)

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel}))
	slog.SetDefault(log)

	err = run(context.Background(), cfg, os.Stdout, log)
	assert(err == nil, "the server produced an error: %v", err)
}

func assert(b bool, msg string, args ...any) {
	if !b {
		panic("assertion failed: " + fmt.Sprintf(msg, args...))
	}
}
