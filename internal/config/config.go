// Package config centralizes every tunable environment variable into one
// struct, loaded through viper with flag overrides available to callers.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"replog/internal/health"
	"replog/internal/ordering"
	"replog/internal/retry"
)

// Config holds every tunable this system recognizes, plus the process's
// own bind addresses.
type Config struct {
	RPCPort       int    // RPC_PORT: inter-node HTTP port
	ServerPort    int    // SERVER_PORT: client-facing HTTP port
	ServerWorkers int    // SERVER_WORKER_NUM
	WriteQuorum   int    // WRITE_QUORUM: minimum healthy active nodes required to admit a write
	SecondaryHosts []string // SECONDARY_HOSTS: optional bootstrap list

	RequestTimeout            time.Duration // REQUEST_TIMEOUT_MS
	RPCServerReconnectDelay   time.Duration // RPC_SERVER_RECONNECT_DELAY_MS
	RequestBlockTimeOnSync    time.Duration // how long a fan-out task blocks on an in-flight sync, default 30s

	MaxRetries   int           // MAX_RETRIES
	InitBackoff  time.Duration // INIT_BACKOFF_MS
	MaxBackoff   time.Duration // MAX_BACKOFF_MS
	BackoffFactor float64      // BACKOFF_FACTOR

	HBInterval        time.Duration // HB_INTERVAL_MS
	HBRequestTimeout  time.Duration // HB_REQUEST_TIMEOUT_MS
	HBFailBudget      int           // HB_FAIL_BUDGET
	PostFailInterval  time.Duration // POST_FAIL_INTERVAL_MS
	StallNodeLifetime time.Duration // STALL_NODE_LIFETIME_MS
	AbortCmdTimeout   time.Duration // ABORT_CMD_TIMEOUT_MS

	OrderDiffMultiplier        float64       // ORDER_DIFF_MULTIPLIER
	OrderCorrectionTimeLimit   time.Duration // ORDER_CORRECTION_TIME_LIMIT_MS
	ReplicationDelay           time.Duration // REPLICATION_DELAY_MS

	NodeName string // this process's hostname / node identity
}

// Default returns the baseline configuration every tunable falls back to.
func Default() Config {
	return Config{
		RPCPort:       50051,
		ServerPort:    10000,
		ServerWorkers: 2,
		WriteQuorum:   1,

		RequestTimeout:          120 * time.Second,
		RPCServerReconnectDelay: 4 * time.Second,
		RequestBlockTimeOnSync:  30 * time.Second,

		MaxRetries:    5,
		InitBackoff:   1000 * time.Millisecond,
		MaxBackoff:    3_600_000 * time.Millisecond,
		BackoffFactor: 2,

		HBInterval:        5 * time.Second,
		HBRequestTimeout:  3 * time.Second,
		HBFailBudget:      5,
		PostFailInterval:  60 * time.Second,
		StallNodeLifetime: time.Hour,
		AbortCmdTimeout:   10 * time.Second,

		OrderDiffMultiplier:      0.2,
		OrderCorrectionTimeLimit: 60 * time.Second,
		ReplicationDelay:         5 * time.Second,
	}
}

// Load reads environment variables on top of Default() via
// viper.AutomaticEnv, so a bare name like WRITE_QUORUM overrides its
// matching field when set.
func Load() Config {
	cfg := Default()
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if s := v.GetInt("RPC_PORT"); s != 0 {
		cfg.RPCPort = s
	}
	if s := v.GetInt("SERVER_PORT"); s != 0 {
		cfg.ServerPort = s
	}
	if s := v.GetInt("SERVER_WORKER_NUM"); s != 0 {
		cfg.ServerWorkers = s
	}
	if s := v.GetInt("WRITE_QUORUM"); s != 0 {
		cfg.WriteQuorum = s
	}
	if s := v.GetString("SECONDARY_HOSTS"); s != "" {
		cfg.SecondaryHosts = splitCSV(s)
	}
	if s := v.GetInt("REQUEST_TIMEOUT_MS"); s != 0 {
		cfg.RequestTimeout = time.Duration(s) * time.Millisecond
	}
	if s := v.GetInt("RPC_SERVER_RECONNECT_DELAY_MS"); s != 0 {
		cfg.RPCServerReconnectDelay = time.Duration(s) * time.Millisecond
	}
	if s := v.GetInt("MAX_RETRIES"); s != 0 {
		cfg.MaxRetries = s
	}
	if s := v.GetInt("INIT_BACKOFF_MS"); s != 0 {
		cfg.InitBackoff = time.Duration(s) * time.Millisecond
	}
	if s := v.GetInt("MAX_BACKOFF_MS"); s != 0 {
		cfg.MaxBackoff = time.Duration(s) * time.Millisecond
	}
	if s := v.GetFloat64("BACKOFF_FACTOR"); s != 0 {
		cfg.BackoffFactor = s
	}
	if s := v.GetInt("HB_INTERVAL_MS"); s != 0 {
		cfg.HBInterval = time.Duration(s) * time.Millisecond
	}
	if s := v.GetInt("HB_REQUEST_TIMEOUT_MS"); s != 0 {
		cfg.HBRequestTimeout = time.Duration(s) * time.Millisecond
	}
	if s := v.GetInt("HB_FAIL_BUDGET"); s != 0 {
		cfg.HBFailBudget = s
	}
	if s := v.GetInt("POST_FAIL_INTERVAL_MS"); s != 0 {
		cfg.PostFailInterval = time.Duration(s) * time.Millisecond
	}
	if s := v.GetInt("STALL_NODE_LIFETIME_MS"); s != 0 {
		cfg.StallNodeLifetime = time.Duration(s) * time.Millisecond
	}
	if s := v.GetInt("ABORT_CMD_TIMEOUT_MS"); s != 0 {
		cfg.AbortCmdTimeout = time.Duration(s) * time.Millisecond
	}
	if s := v.GetFloat64("ORDER_DIFF_MULTIPLIER"); s != 0 {
		cfg.OrderDiffMultiplier = s
	}
	if s := v.GetInt("ORDER_CORRECTION_TIME_LIMIT_MS"); s != 0 {
		cfg.OrderCorrectionTimeLimit = time.Duration(s) * time.Millisecond
	}
	if s := v.GetInt("REPLICATION_DELAY_MS"); s != 0 {
		cfg.ReplicationDelay = time.Duration(s) * time.Millisecond
	}
	if s := v.GetString("NODE_NAME"); s != "" {
		cfg.NodeName = s
	}
	return cfg
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ToRetryConfig adapts Config into internal/retry's Config shape.
func (c Config) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxRetries:  c.MaxRetries,
		InitBackoff: c.InitBackoff,
		Factor:      c.BackoffFactor,
		MaxBackoff:  c.MaxBackoff,
	}
}

// ToHealthConfig adapts Config into internal/health's Config shape.
func (c Config) ToHealthConfig() health.Config {
	return health.Config{
		FailBudget:       c.HBFailBudget,
		Interval:         c.HBInterval,
		RequestTimeout:   c.HBRequestTimeout,
		PostFailInterval: c.PostFailInterval,
		EmitSendTimeout:  10 * time.Second,
	}
}

// ToOrderingConfig adapts Config into internal/ordering's Config shape.
func (c Config) ToOrderingConfig() ordering.Config {
	return ordering.Config{
		OrderDiffMultiplier:      c.OrderDiffMultiplier,
		OrderCorrectionTimeLimit: c.OrderCorrectionTimeLimit,
		RequestTimeout:           c.RequestTimeout,
	}
}
