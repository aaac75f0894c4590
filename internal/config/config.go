package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Auth strategies accepted in AUTH_STRATEGY.
const (
	AuthStrategyHMAC = "hmac"
	AuthStrategyJWT  = "jwt"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress       string
	DatabaseURI      string
	AMQPURL          string
	AMQPExchange     string
	AuthStrategy     string
	TokenSecret      string
	UrgencyThreshold time.Duration
	RelayWorkers     int
	ShutdownTimeout  time.Duration
	WSSendBuffer     int
}

const (
	defaultRunAddress       = ":8080"
	defaultAMQPExchange     = "pulperia.events"
	defaultAuthStrategy     = AuthStrategyHMAC
	defaultTokenSecret      = "change-me-in-production"
	defaultUrgencyThreshold = 5 * time.Minute
	defaultRelayWorkers     = 4
	defaultShutdownTimeout  = 10 * time.Second
	defaultWSSendBuffer     = 32
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:       getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:      getString(lookup, "DATABASE_URI", ""),
		AMQPURL:          getString(lookup, "AMQP_URL", ""),
		AMQPExchange:     getString(lookup, "AMQP_EXCHANGE", defaultAMQPExchange),
		AuthStrategy:     getString(lookup, "AUTH_STRATEGY", defaultAuthStrategy),
		TokenSecret:      getString(lookup, "TOKEN_SECRET", defaultTokenSecret),
		UrgencyThreshold: getDuration(lookup, "URGENCY_THRESHOLD", defaultUrgencyThreshold),
		RelayWorkers:     getInt(lookup, "RELAY_WORKERS", defaultRelayWorkers),
		ShutdownTimeout:  getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		WSSendBuffer:     getInt(lookup, "WS_SEND_BUFFER", defaultWSSendBuffer),
	}

	fs := flag.NewFlagSet("pulperia", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		urgencyStr         = cfg.UrgencyThreshold.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.AMQPURL, "amqp", cfg.AMQPURL, "RabbitMQ URL for cross-instance fan-out")
	fs.StringVar(&cfg.AMQPExchange, "amqp-exchange", cfg.AMQPExchange, "Fanout exchange name")
	fs.StringVar(&cfg.AuthStrategy, "auth", cfg.AuthStrategy, "Token strategy: hmac or jwt")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "Secret for verifying auth tokens")
	fs.StringVar(&urgencyStr, "urgency-threshold", urgencyStr, "Age after which a pending order is urgent")
	fs.IntVar(&cfg.RelayWorkers, "relay-workers", cfg.RelayWorkers, "Number of relay workers")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.WSSendBuffer, "ws-send-buffer", cfg.WSSendBuffer, "Per-socket outbound frame buffer")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.UrgencyThreshold, err = time.ParseDuration(urgencyStr); err != nil {
		return nil, fmt.Errorf("invalid urgency threshold: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("TOKEN_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read token secret file: %w", err)
		}
		cfg.TokenSecret = strings.TrimSpace(string(content))
	}

	if cfg.RelayWorkers <= 0 {
		cfg.RelayWorkers = defaultRelayWorkers
	}

	if cfg.WSSendBuffer <= 0 {
		cfg.WSSendBuffer = defaultWSSendBuffer
	}

	if cfg.UrgencyThreshold <= 0 {
		cfg.UrgencyThreshold = defaultUrgencyThreshold
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	cfg.AuthStrategy = strings.ToLower(cfg.AuthStrategy)
	if cfg.AuthStrategy != AuthStrategyHMAC && cfg.AuthStrategy != AuthStrategyJWT {
		return nil, fmt.Errorf("unknown auth strategy %q", cfg.AuthStrategy)
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
