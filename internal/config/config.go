package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	Backend string // "sqlite" | "memory" | "redis"
	DBPath  string // e.g. "./data/dashboard.db"
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RealtimeConfig struct {
	RetryDelay       time.Duration
	FallbackInterval time.Duration
}

type ResourceConfig struct {
	AccessLogRetain int
	DeviceRefresh   time.Duration // 0 = never
	DefaultDoorID   string
}

type DevServerConfig struct {
	Addr              string
	Storage           string // "memory" | "sqlite" (devices and access log)
	DBPath            string
	JWTSecret         string
	TokenTTL          time.Duration
	HeartbeatInterval time.Duration
	OfflineAfter      time.Duration
	AllowAll          bool
	KnownDevices      []string
	AdminEmail        string
	AdminPassword     string
}

type Config struct {
	Environment string // "development" | "production"

	API       APIConfig
	Session   SessionConfig
	Redis     RedisConfig
	Realtime  RealtimeConfig
	Resource  ResourceConfig
	DevServer DevServerConfig
}

// Load reads portunus.yaml (optional) and PORTUNUS_* environment variables,
// e.g. PORTUNUS_API_BASEURL or PORTUNUS_SESSION_BACKEND.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("portunus")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("PORTUNUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.Environment != "production" {
		// fail-soft: anything unknown is development
		cfg.Environment = "development"
	}

	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	switch cfg.Session.Backend {
	case "sqlite", "memory", "redis":
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}

	cfg.DevServer.Storage = strings.ToLower(strings.TrimSpace(cfg.DevServer.Storage))
	switch cfg.DevServer.Storage {
	case "memory", "sqlite":
	default:
		return nil, fmt.Errorf("unknown devserver storage %q", cfg.DevServer.Storage)
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	cfg.DevServer.KnownDevices = trimAll(cfg.DevServer.KnownDevices)

	if cfg.Resource.AccessLogRetain <= 0 {
		cfg.Resource.AccessLogRetain = 50
	}
	if cfg.Realtime.RetryDelay <= 0 {
		cfg.Realtime.RetryDelay = 5 * time.Second
	}
	if cfg.Realtime.FallbackInterval <= 0 {
		cfg.Realtime.FallbackInterval = 5 * time.Second
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("api.baseurl", "http://localhost:3001/api")
	v.SetDefault("api.timeout", "0s")

	v.SetDefault("session.backend", "sqlite")
	v.SetDefault("session.dbpath", "./data/dashboard.db")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("realtime.retrydelay", "5s")
	v.SetDefault("realtime.fallbackinterval", "5s")

	v.SetDefault("resource.accesslogretain", 50)
	v.SetDefault("resource.devicerefresh", "30s")
	v.SetDefault("resource.defaultdoorid", "door_main")

	v.SetDefault("devserver.addr", ":3001")
	v.SetDefault("devserver.storage", "memory")
	v.SetDefault("devserver.dbpath", "./data/devserver.db")
	v.SetDefault("devserver.jwtsecret", "portunus-dev-secret")
	v.SetDefault("devserver.tokenttl", "12h")
	v.SetDefault("devserver.heartbeatinterval", "15s")
	v.SetDefault("devserver.offlineafter", "90s")
	v.SetDefault("devserver.allowall", false)
	v.SetDefault("devserver.knowndevices", "door-001")
	v.SetDefault("devserver.adminemail", "admin@portunus.local")
	v.SetDefault("devserver.adminpassword", "portunus")
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
