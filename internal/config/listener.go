package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/polkiloo/pulperia/internal/domain/model"
)

// ListenerConfig configures the headless live-updates client.
type ListenerConfig struct {
	ServerURL         string
	UserID            string
	Role              model.Role
	Token             string
	UrgencyThreshold  time.Duration
	ReconnectAttempts int
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
}

const (
	defaultListenerRole      = model.RoleVendor
	defaultReconnectAttempts = 5
	defaultReconnectMinDelay = time.Second
	defaultReconnectMaxDelay = 5 * time.Second
)

// LoadListener parses listener configuration from flags and environment variables.
func LoadListener() (*ListenerConfig, error) {
	return loadListener(os.Args[1:], os.LookupEnv)
}

func loadListener(args []string, lookup envLookup) (*ListenerConfig, error) {
	cfg := &ListenerConfig{
		ServerURL:         getString(lookup, "SERVER_URL", ""),
		UserID:            getString(lookup, "USER_ID", ""),
		Token:             getString(lookup, "TOKEN", ""),
		UrgencyThreshold:  getDuration(lookup, "URGENCY_THRESHOLD", defaultUrgencyThreshold),
		ReconnectAttempts: getInt(lookup, "RECONNECT_ATTEMPTS", defaultReconnectAttempts),
		ReconnectMinDelay: getDuration(lookup, "RECONNECT_MIN_DELAY", defaultReconnectMinDelay),
		ReconnectMaxDelay: getDuration(lookup, "RECONNECT_MAX_DELAY", defaultReconnectMaxDelay),
	}
	role := getString(lookup, "ROLE", string(defaultListenerRole))

	fs := flag.NewFlagSet("pulperia-listen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "Server base URL")
	fs.StringVar(&cfg.UserID, "u", cfg.UserID, "User ID whose room to join")
	fs.StringVar(&role, "role", role, "Side to render: vendor or customer")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "Bearer token")
	fs.IntVar(&cfg.ReconnectAttempts, "reconnect-attempts", cfg.ReconnectAttempts, "Reconnection attempts before giving up")
	fs.DurationVar(&cfg.ReconnectMinDelay, "reconnect-min-delay", cfg.ReconnectMinDelay, "First reconnection delay")
	fs.DurationVar(&cfg.ReconnectMaxDelay, "reconnect-max-delay", cfg.ReconnectMaxDelay, "Reconnection delay ceiling")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	parsed, ok := model.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	cfg.Role = parsed

	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = defaultReconnectAttempts
	}

	if cfg.ReconnectMinDelay <= 0 {
		cfg.ReconnectMinDelay = defaultReconnectMinDelay
	}

	if cfg.ReconnectMaxDelay < cfg.ReconnectMinDelay {
		cfg.ReconnectMaxDelay = cfg.ReconnectMinDelay
	}

	if cfg.UrgencyThreshold <= 0 {
		cfg.UrgencyThreshold = defaultUrgencyThreshold
	}

	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server URL must be provided")
	}

	if cfg.UserID == "" {
		return nil, fmt.Errorf("user ID must be provided")
	}

	return cfg, nil
}
