package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"interviewhub/internal/errors"
	"interviewhub/internal/job"
)

const FileName = "interviewhub.yml"

// Config models interviewhub.yml.
type Config struct {
	Storage struct {
		Workspace   string `yaml:"workspace"`
		Hot         string `yaml:"hot"`
		Cold        string `yaml:"cold"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		LockTTL  time.Duration `yaml:"lock_ttl"`
	} `yaml:"redis"`
	Server struct {
		Addr             string `yaml:"addr"`
		BasePath         string `yaml:"base_path"`
		JWTSecret        string `yaml:"jwt_secret"`
		AllowActorHeader bool   `yaml:"allow_actor_header"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	PolicyDefaults job.Policy `yaml:"policy_defaults"`
}

const (
	HotSQLite    = "sqlite"
	HotMemory    = "memory"
	HotRedis     = "redis"
	ColdSQLite   = "sqlite"
	ColdPostgres = "postgres"
)

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithHint(errors.Newf("config %s not found", path), "run imh config init")
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Storage.Hot {
	case HotSQLite, HotMemory:
	case HotRedis:
		if c.Redis.Addr == "" {
			return errors.New("config.redis.addr is required when storage.hot is redis")
		}
	default:
		return errors.Newf("config.storage.hot must be one of sqlite, memory, redis (got %q)", c.Storage.Hot)
	}
	switch c.Storage.Cold {
	case ColdSQLite:
	case ColdPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("config.storage.postgres_dsn is required when storage.cold is postgres")
		}
	default:
		return errors.Newf("config.storage.cold must be one of sqlite, postgres (got %q)", c.Storage.Cold)
	}
	if c.Redis.LockTTL < 0 {
		return errors.New("config.redis.lock_ttl must not be negative")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return errors.New("config.server.base_path must start with /")
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return errors.Newf("config.log.format must be json or console (got %q)", c.Log.Format)
	}
	if err := c.PolicyDefaults.Validate(); err != nil {
		return errors.Wrap(err, "config.policy_defaults")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses config over the defaults and validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `storage:
  workspace: .
  hot: sqlite
  cold: sqlite

redis:
  addr: ""
  db: 0
  prefix: "imh:"
  lock_ttl: 30s

server:
  addr: 127.0.0.1:8080
  base_path: ""
  jwt_secret: ""
  allow_actor_header: true

log:
  level: info
  format: console

policy_defaults:
  mode: ACTUAL
  total_question_limit: 15
  min_question_count: 10
  question_timeout_sec: 180
  silence_timeout_sec: 20
  early_exit_enabled: true
  result_exposure: SCORE_ONLY
  evaluation_weights:
    technical: 0.5
    communication: 0.3
    attitude: 0.2
`
