package config

import (
	"agenthelper/cmd/internal/monitor"
	"agenthelper/cmd/internal/utils/validators"
	"errors"
	"fmt"
	"time"
)

type Server struct {
	Port         int    `validate:"gte=1,lte=65535"`
	DatabasePath string `validate:"required"`
	MachineID    int64  `validate:"gte=0,lte=1023"`

	// Authentication is disabled when JWTSecret is empty.
	JWTSecret    string
	AuthRequired bool

	RedisURL        string `validate:"omitempty,url"`
	GatewayEndpoint string `validate:"omitempty,url"`
	AWSRegion       string
	SweepInterval   time.Duration `validate:"gt=0"`
}

func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

func LoadServer() (*Server, error) {
	cfg := &Server{
		DatabasePath:    String("DATABASE_PATH", "database.db"),
		JWTSecret:       String("JWT_SECRET", ""),
		RedisURL:        String("REDIS_URL", ""),
		GatewayEndpoint: String("WS_GATEWAY_ENDPOINT", ""),
		AWSRegion:       String("AWS_REGION", defaultRegion),
	}

	var err, perr error
	cfg.Port, perr = Int("PORT", 7070)
	err = errors.Join(err, perr)
	cfg.MachineID, perr = Int64("MACHINE_ID", 1)
	err = errors.Join(err, perr)
	cfg.AuthRequired, perr = Bool("AUTH_REQUIRED", false)
	err = errors.Join(err, perr)
	cfg.SweepInterval, perr = Duration("CONNECTION_SWEEP_INTERVAL", 5*time.Minute)
	err = errors.Join(err, perr)
	if err != nil {
		return nil, err
	}

	if err = validators.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	return cfg, nil
}

type Agent struct {
	ServerURL string `validate:"required,url"`
	UserID    int64
	Token     string
	Monitor   monitor.Config
}

// LoadAgent reads the agent settings. A missing user id is not an error,
// the monitor just refuses to start.
func LoadAgent() (*Agent, error) {
	cfg := &Agent{
		ServerURL: String("PRESENCE_SERVER_URL", "http://localhost:7070"),
		Token:     String("PRESENCE_TOKEN", ""),
		Monitor:   monitor.DefaultConfig(),
	}

	var err, perr error
	cfg.UserID, perr = Int64("PRESENCE_USER_ID", 0)
	err = errors.Join(err, perr)
	cfg.Monitor.HeartbeatInterval, perr = Millis("HEARTBEAT_INTERVAL_MS", monitor.DefaultHeartbeatInterval)
	err = errors.Join(err, perr)
	cfg.Monitor.ActivityTimeout, perr = Millis("ACTIVITY_TIMEOUT_MS", monitor.DefaultActivityTimeout)
	err = errors.Join(err, perr)
	cfg.Monitor.MaxRetries, perr = Int("HEARTBEAT_MAX_RETRIES", monitor.DefaultMaxRetries)
	err = errors.Join(err, perr)
	cfg.Monitor.RetryDelay, perr = Millis("HEARTBEAT_RETRY_DELAY_MS", monitor.DefaultRetryDelay)
	err = errors.Join(err, perr)
	cfg.Monitor.Enabled, perr = Bool("PRESENCE_ENABLED", true)
	err = errors.Join(err, perr)
	if err != nil {
		return nil, err
	}

	if err = validators.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}
	if err = cfg.Monitor.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
