package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServiceName string
	ServerPort  string

	NWSAPIURL    string
	NWSUserAgent string
	NWSTimeout   time.Duration

	RequestTimeout time.Duration

	ZoneFilePath        string
	ZoneCacheTTL        time.Duration
	WarmZoneCache       bool
	ZoneRefreshInterval time.Duration

	CacheBackend string // "in_memory", "redis" or "memcached"

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	// PostgresDSN enables zone mirroring into Postgres when non-empty.
	PostgresDSN string

	RateLimitRPS   int
	RateLimitBurst int

	// ForecastFailEvery injects a failure on every Nth forecast request.
	// Zero disables injection.
	ForecastFailEvery int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Service struct {
		Name string `yaml:"name"`
	} `yaml:"service"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	NWSAPI struct {
		URL       string `yaml:"url"`
		UserAgent string `yaml:"user_agent"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"nws_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Zones struct {
		File            string `yaml:"file"`
		CacheTTL        string `yaml:"cache_ttl"`
		WarmCache       *bool  `yaml:"warm_cache"`
		RefreshInterval string `yaml:"refresh_interval"`
	} `yaml:"zones"`

	Cache struct {
		Backend string `yaml:"backend"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Demo struct {
		ForecastFailEvery *int `yaml:"forecast_fail_every"`
	} `yaml:"demo"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev), then
// applies env overrides. A .env file is loaded first if present. Call from
// project root.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServiceName = fc.Service.Name
	if cfg.ServiceName == "" {
		cfg.ServiceName = "zone-weather-api"
	}

	cfg.ServerPort = os.Getenv("PORT")
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.NWSAPIURL = fc.NWSAPI.URL
	if cfg.NWSAPIURL == "" {
		cfg.NWSAPIURL = "https://api.weather.gov"
	}
	cfg.NWSUserAgent = os.Getenv("NWS_USER_AGENT")
	if cfg.NWSUserAgent == "" {
		cfg.NWSUserAgent = fc.NWSAPI.UserAgent
	}
	if cfg.NWSUserAgent == "" {
		cfg.NWSUserAgent = "zone-weather-service (dev)"
	}
	cfg.NWSTimeout = parseDuration(fc.NWSAPI.Timeout, 5*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)

	cfg.ZoneFilePath = os.Getenv("ZONE_FILE")
	if cfg.ZoneFilePath == "" {
		cfg.ZoneFilePath = fc.Zones.File
	}
	if cfg.ZoneFilePath == "" {
		cfg.ZoneFilePath = filepath.Join("data", "zones.json")
	}
	cfg.ZoneCacheTTL = parseDuration(fc.Zones.CacheTTL, time.Hour)
	cfg.WarmZoneCache = true
	if fc.Zones.WarmCache != nil {
		cfg.WarmZoneCache = *fc.Zones.WarmCache
	}
	cfg.ZoneRefreshInterval = parseDurationOrZero(fc.Zones.RefreshInterval, 0)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = strings.TrimSpace(fc.Cache.Redis.Addr)
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = fc.Cache.Redis.Password
	}
	cfg.RedisDB = fc.Cache.Redis.DB
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = n
		}
	}

	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = fc.Database.DSN
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.ForecastFailEvery = 5
	if fc.Demo.ForecastFailEvery != nil {
		cfg.ForecastFailEvery = *fc.Demo.ForecastFailEvery
	}
	if cfg.ForecastFailEvery < 0 {
		cfg.ForecastFailEvery = 0
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty
// string or parse error. Zero and negative values pass through as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values. Ensures the
// request timeout covers the upstream timeout and the cache backend is known.
func validate(cfg *Config) error {
	if cfg.NWSTimeout <= 0 {
		return fmt.Errorf("nws_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.NWSTimeout {
		cfg.RequestTimeout = cfg.NWSTimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "redis", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory, redis or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.ZoneCacheTTL <= 0 {
		return fmt.Errorf("zones.cache_ttl must be positive")
	}
	return nil
}
