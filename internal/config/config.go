package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the fully-resolved server configuration: defaults, overlaid
// by an optional config file, overlaid by LOCALTASKD_-prefixed
// environment variables.
type Config struct {
	RPC      RPCConfig
	Admin    AdminConfig
	Events   EventsConfig
	Executor ExecutorConfig
	Auth     AuthConfig
	LogLevel string
}

// RPCConfig governs the TCP listener clients submit/cancel/poll tasks
// through.
type RPCConfig struct {
	Host string
	Port int
}

// AdminConfig governs the read-only observability HTTP surface:
// /admin/health, /admin/tasks, /metrics, /ws. It never accepts
// scheduling mutations.
type AdminConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// EventsConfig points at the Redis instance used as the status-change
// event bus feeding the admin websocket, not at scheduler state storage.
type EventsConfig struct {
	Enabled      bool
	Addr         string
	Password     string
	DB           int
	Channel      string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ExecutorConfig governs scheduler admission and subprocess supervision.
type ExecutorConfig struct {
	MaxCores    int
	KillTimeout time.Duration
}

// AuthConfig guards the admin HTTP surface only; the RPC protocol itself
// is never authenticated (local, trusted callers by design).
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

// Load resolves Config from (in ascending priority) built-in defaults, an
// optional config.yaml found on the search path, and environment
// variables prefixed LOCALTASKD_.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/localtaskd")

	setDefaults()

	viper.SetEnvPrefix("LOCALTASKD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("rpc.host", "127.0.0.1")
	viper.SetDefault("rpc.port", 12345)

	viper.SetDefault("admin.enabled", true)
	viper.SetDefault("admin.host", "127.0.0.1")
	viper.SetDefault("admin.port", 12346)

	viper.SetDefault("events.enabled", false)
	viper.SetDefault("events.addr", "localhost:6379")
	viper.SetDefault("events.password", "")
	viper.SetDefault("events.db", 0)
	viper.SetDefault("events.channel", "localtaskd:task-status")
	viper.SetDefault("events.dialtimeout", 5*time.Second)
	viper.SetDefault("events.readtimeout", 3*time.Second)
	viper.SetDefault("events.writetimeout", 3*time.Second)

	viper.SetDefault("executor.maxcores", 0) // 0 resolves to runtime.NumCPU() at startup
	viper.SetDefault("executor.killtimeout", 10*time.Second)

	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwtsecret", "")

	viper.SetDefault("loglevel", "info")
}
