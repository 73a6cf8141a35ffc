package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds the command-line configuration for the demo process.
type CLIConfig struct {
	TopologyPath        string
	NATSURL             string
	LogLevel            string
	LogFormat           string
	MetricsAddr         string
	MetricsPath         string
	ShutdownTimeout     time.Duration
	TickFreqSecs        int
	MetricsIntervalSecs int
	MaxSpoutPending     int
	MessageTimeout      time.Duration
	ShowVersion         bool
	ShowHelp            bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.TopologyPath, "topology",
		getEnv("EXECUTOR_TOPOLOGY", ""),
		"Path to a topology options YAML file, empty to run with defaults (env: EXECUTOR_TOPOLOGY)")

	flag.StringVar(&cfg.NATSURL, "nats-url",
		getEnv("EXECUTOR_NATS_URL", "nats://127.0.0.1:4222"),
		"NATS server URL the demo's two workers transfer tuples over (env: EXECUTOR_NATS_URL)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("EXECUTOR_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: EXECUTOR_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("EXECUTOR_LOG_FORMAT", "text"),
		"Log format: json, text (env: EXECUTOR_LOG_FORMAT)")

	flag.StringVar(&cfg.MetricsAddr, "metrics-addr",
		getEnv("EXECUTOR_METRICS_ADDR", ":9090"),
		"Address the Prometheus metrics server listens on (env: EXECUTOR_METRICS_ADDR)")

	flag.StringVar(&cfg.MetricsPath, "metrics-path",
		getEnv("EXECUTOR_METRICS_PATH", "/metrics"),
		"HTTP path the Prometheus metrics server serves (env: EXECUTOR_METRICS_PATH)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("EXECUTOR_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: EXECUTOR_SHUTDOWN_TIMEOUT)")

	flag.IntVar(&cfg.TickFreqSecs, "tick-freq-secs",
		getEnvInt("EXECUTOR_TICK_FREQ_SECS", 5),
		"topology.tick.tuple.freq.secs for both demo executors (env: EXECUTOR_TICK_FREQ_SECS)")

	flag.IntVar(&cfg.MetricsIntervalSecs, "metrics-interval-secs",
		getEnvInt("EXECUTOR_METRICS_INTERVAL_SECS", 10),
		"Reporting interval for the bolt's registered word-count metric (env: EXECUTOR_METRICS_INTERVAL_SECS)")

	flag.IntVar(&cfg.MaxSpoutPending, "max-spout-pending",
		getEnvInt("EXECUTOR_MAX_SPOUT_PENDING", 1000),
		"topology.max.spout.pending, 0 for unbounded (env: EXECUTOR_MAX_SPOUT_PENDING)")

	flag.DurationVar(&cfg.MessageTimeout, "message-timeout",
		getEnvDuration("EXECUTOR_MESSAGE_TIMEOUT", 30*time.Second),
		"topology.message.timeout.secs, 0 disables timeout scanning (env: EXECUTOR_MESSAGE_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")

	flag.Usage = printDetailedHelp

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.TopologyPath != "" {
		if _, err := os.Stat(cfg.TopologyPath); err != nil {
			return fmt.Errorf("topology file not found: %s", cfg.TopologyPath)
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.TickFreqSecs <= 0 {
		return fmt.Errorf("tick-freq-secs must be positive: %d", cfg.TickFreqSecs)
	}
	if cfg.MetricsIntervalSecs <= 0 {
		return fmt.Errorf("metrics-interval-secs must be positive: %d", cfg.MetricsIntervalSecs)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - word-count executor demo

Usage: %s [options]

Runs a sentence spout and a word-count bolt as two independent
executors that exchange tuples over a real NATS connection, the way
two tasks on different workers would.

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run against a local NATS server with a custom topology file
  %s --nats-url=nats://127.0.0.1:4222 --topology=topology.yaml

  # Run with verbose logging
  %s --log-level=debug --log-format=json

Version: %s
Build: %s
`, os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
