package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	SessionStoreBolt  = "bolt"
	SessionStoreRedis = "redis"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit    string        `yaml:"git_commit" envconfig:"BUCH_GIT_COMMIT"`
	GitTag       string        `yaml:"git_tag" envconfig:"BUCH_GIT_TAG"`
	BuildTime    string        `yaml:"build_time" envconfig:"BUCH_BUILD_TIME"`
	IsProduction bool          `yaml:"is_production" envconfig:"BUCH_IS_PRODUCTION"`
	LogLevel     zapcore.Level `yaml:"log_level" envconfig:"BUCH_LOG_LEVEL"`
	LogFolder    string        `yaml:"log_folder" envconfig:"BUCH_LOG_FOLDER"`
	LogMaxSize   int           `yaml:"log_max_size" envconfig:"BUCH_LOG_MAX_SIZE"`
	Catalog      CatalogConfig `yaml:"catalog"`
	Session      SessionConfig `yaml:"session"`
	Redis        RedisConfig   `yaml:"redis"`
	BoltDB       BoltDBConfig  `yaml:"boltdb"`
}

// CatalogConfig locates the catalog service. BaseURL is the book resource
// endpoint, e.g. https://localhost:3000/rest. AuthURL is the token endpoint,
// configured on its own and never derived from BaseURL. Timeout bounds each
// request and RateLimit is in requests per second, 0 disables either.
type CatalogConfig struct {
	BaseURL            string        `yaml:"base_url" envconfig:"BUCH_CATALOG_BASE_URL"`
	AuthURL            string        `yaml:"auth_url" envconfig:"BUCH_CATALOG_AUTH_URL"`
	UserAgent          string        `yaml:"user_agent" envconfig:"BUCH_CATALOG_USER_AGENT"`
	Timeout            time.Duration `yaml:"timeout" envconfig:"BUCH_CATALOG_TIMEOUT"`
	RateLimit          float64       `yaml:"rate_limit" envconfig:"BUCH_CATALOG_RATE_LIMIT"`
	MaxParallel        int           `yaml:"max_parallel" envconfig:"BUCH_CATALOG_MAX_PARALLEL"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify" envconfig:"BUCH_CATALOG_INSECURE_SKIP_VERIFY"`
}

type SessionConfig struct {
	Store string        `yaml:"store" envconfig:"BUCH_SESSION_STORE"`
	TTL   time.Duration `yaml:"ttl" envconfig:"BUCH_SESSION_TTL"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BUCH_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"BUCH_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BUCH_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BUCH_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BUCH_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BUCH_REDIS_POOL_SIZE"`
	Username      string        `yaml:"username" envconfig:"BUCH_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"BUCH_REDIS_PASSWORD"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BUCH_REDIS_DATABASE_INDEX"`
	Key           string        `yaml:"key" envconfig:"BUCH_REDIS_KEY"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BUCH_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BUCH_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"BUCH_BOLTDB_BUCKET_NAME"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if err := checkAbsoluteURL(config.Catalog.BaseURL); err != nil {
		return fmt.Errorf("make sure to set a valid catalog base url in configuration file: %w", err)
	}

	if err := checkAbsoluteURL(config.Catalog.AuthURL); err != nil {
		return fmt.Errorf("make sure to set a valid catalog auth url in configuration file: %w", err)
	}

	if config.Catalog.RateLimit < 0 || config.Catalog.Timeout < 0 {
		return errors.New("catalog rate limit and timeout must not be negative")
	}

	if config.Catalog.UserAgent == "" {
		config.Catalog.UserAgent = "buch-client"
	}

	if config.Catalog.MaxParallel <= 0 {
		config.Catalog.MaxParallel = 4
	}

	if config.LogFolder == "" {
		config.LogFolder = "./logs"
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}

	if config.Session.TTL <= 0 {
		config.Session.TTL = 24 * time.Hour
	}

	switch config.Session.Store {
	case "":
		config.Session.Store = SessionStoreBolt
	case SessionStoreBolt, SessionStoreRedis:
	default:
		return fmt.Errorf("unsupported session store %q", config.Session.Store)
	}

	if config.Session.Store == SessionStoreRedis && (len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0) {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}

	if config.Redis.Key == "" {
		config.Redis.Key = "buch-client:session"
	}

	if config.BoltDB.FilePath == "" {
		config.BoltDB.FilePath = "./buch-client.db"
	}

	if config.BoltDB.BucketName == "" {
		config.BoltDB.BucketName = "session"
	}

	if config.BoltDB.Timeout <= 0 {
		config.BoltDB.Timeout = time.Second
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. Missing files are skipped so that the
// environment alone can configure the client.
func LoadAndInitConfigs(configFile, envFile, gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile(configFile)
	if errors.Is(err, fs.ErrNotExist) {
		config, err = &Config{}, nil
	}
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration.
	err = godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `BUCH`.
	err = LoadConfigEnvs("BUCH", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}

func checkAbsoluteURL(raw string) error {
	if raw == "" {
		return missingFieldError("url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute url", raw)
	}
	return nil
}
