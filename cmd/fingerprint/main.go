package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/YusufHosny/r-d/cmd/fingerprint/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	configPath, err := parseFlags(os.Args[1:])
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	level, _ := config.Settings.Level()
	logLevel.Set(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}

// parseFlags returns the configuration path given with -c.
func parseFlags(args []string) (string, error) {
	fs := flag.NewFlagSet("fingerprint", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "c", "", "Path to the fingerprint evaluation configuration file")
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	if configPath == "" {
		return "", errors.New("no configuration file provided")
	}
	return configPath, nil
}
