package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration. It is assembled from
// defaults, an optional YAML/JSON file, LECTERN_* environment variables and
// finally command-line flags, in that order of increasing precedence.
type Config struct {
	Fetch   FetchConfig   `yaml:"fetch" json:"fetch"`
	Images  ImageConfig   `yaml:"images" json:"images"`
	Extract ExtractConfig `yaml:"extract" json:"extract"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Session SessionConfig `yaml:"session" json:"session"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

type FetchConfig struct {
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent        string        `yaml:"userAgent" json:"userAgent"`
	Proxy            string        `yaml:"proxy" json:"proxy"`
	MaxResponseBytes int64         `yaml:"maxResponseBytes" json:"maxResponseBytes"`
	AllowPrivate     bool          `yaml:"allowPrivate" json:"allowPrivate"`
}

type ImageConfig struct {
	Concurrency int     `yaml:"concurrency" json:"concurrency"`
	PerHostRPS  float64 `yaml:"perHostRPS" json:"perHostRPS"`
	Optimize    bool    `yaml:"optimize" json:"optimize"`
	MaxWidth    int     `yaml:"maxWidth" json:"maxWidth"`
	Quality     int     `yaml:"quality" json:"quality"`
	Grayscale   bool    `yaml:"grayscale" json:"grayscale"`
}

type ExtractConfig struct {
	Engine        string `yaml:"engine" json:"engine"`
	CharThreshold int    `yaml:"charThreshold" json:"charThreshold"`
}

type StoreConfig struct {
	Driver        string `yaml:"driver" json:"driver"`
	Path          string `yaml:"path" json:"path"`
	RedisAddr     string `yaml:"redisAddr" json:"redisAddr"`
	RedisPassword string `yaml:"redisPassword" json:"redisPassword"`
	RedisDB       int    `yaml:"redisDB" json:"redisDB"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr" json:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins" json:"allowedOrigins"`
}

const (
	engineReadability = "readability"
	engineTrafilatura = "trafilatura"

	driverSQLite = "sqlite"
	driverRedis  = "redis"
	driverMemory = "memory"
)

func defaultConfig() Config {
	return Config{
		Fetch: FetchConfig{
			Timeout:          30 * time.Second,
			UserAgent:        defaultUA,
			MaxResponseBytes: 128 * 1024 * 1024,
		},
		Images: ImageConfig{
			Concurrency: 8,
			PerHostRPS:  4,
			MaxWidth:    1200,
			Quality:     80,
		},
		Extract: ExtractConfig{
			Engine:        engineReadability,
			CharThreshold: defaultCharThreshold,
		},
		Store: StoreConfig{
			Driver: driverSQLite,
			Path:   defaultStorePath(),
		},
		Session: SessionConfig{TTL: 2 * time.Hour},
		Server: ServerConfig{
			Addr: "127.0.0.1:8723",
		},
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "lectern.db"
	}
	return filepath.Join(dir, "lectern", "lectern.db")
}

// loadConfigFile overlays the file at path onto cfg. The format is chosen by
// extension; anything other than .json is parsed as YAML.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays LECTERN_* environment variables onto cfg. Malformed
// numeric values are ignored.
func applyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("LECTERN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Fetch.Timeout = d
		}
	}
	if v := getenv("LECTERN_USER_AGENT"); v != "" {
		cfg.Fetch.UserAgent = v
	}
	if v := getenv("LECTERN_PROXY"); v != "" {
		cfg.Fetch.Proxy = v
	}
	if v := getenv("LECTERN_ALLOW_PRIVATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Fetch.AllowPrivate = b
		}
	}
	if v := getenv("LECTERN_IMAGE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Images.Concurrency = n
		}
	}
	if v := getenv("LECTERN_ENGINE"); v != "" {
		cfg.Extract.Engine = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("LECTERN_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("LECTERN_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := getenv("LECTERN_REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := getenv("LECTERN_REDIS_PASSWORD"); v != "" {
		cfg.Store.RedisPassword = v
	}
	if v := getenv("LECTERN_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.TTL = d
		}
	}
	if v := getenv("LECTERN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := getenv("LECTERN_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}
}

// Validate rejects configurations that cannot be used.
func (c Config) Validate() error {
	if c.Fetch.Timeout <= 0 {
		return invalidf("fetch.timeout", "must be positive")
	}
	if c.Fetch.MaxResponseBytes < 0 {
		return invalidf("fetch.maxResponseBytes", "must not be negative")
	}
	if c.Images.Concurrency < 1 {
		return invalidf("images.concurrency", "must be at least 1")
	}
	if c.Images.PerHostRPS < 0 {
		return invalidf("images.perHostRPS", "must not be negative")
	}
	if c.Images.Quality < 1 || c.Images.Quality > 100 {
		return invalidf("images.quality", "must be between 1 and 100")
	}
	if c.Images.MaxWidth < 0 {
		return invalidf("images.maxWidth", "must not be negative")
	}
	switch c.Extract.Engine {
	case engineReadability, engineTrafilatura:
	default:
		return invalidf("extract.engine", "unknown engine %q", c.Extract.Engine)
	}
	if c.Extract.CharThreshold < 0 {
		return invalidf("extract.charThreshold", "must not be negative")
	}
	switch c.Store.Driver {
	case driverSQLite:
		if c.Store.Path == "" {
			return invalidf("store.path", "required for the sqlite driver")
		}
	case driverRedis:
		if c.Store.RedisAddr == "" {
			return invalidf("store.redisAddr", "required for the redis driver")
		}
	case driverMemory:
	default:
		return invalidf("store.driver", "unknown driver %q", c.Store.Driver)
	}
	if c.Session.TTL <= 0 {
		return invalidf("session.ttl", "must be positive")
	}
	return nil
}
