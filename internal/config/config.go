// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables overriding the YAML file,
// e.g. CONTROLPLANE_AUTH_OPERATOR_SECRET.
const EnvPrefix = "CONTROLPLANE"

type Config struct {
	Server struct {
		Addr string `yaml:"addr" envconfig:"ADDR"`
	} `yaml:"server" envconfig:"SERVER"`

	RabbitMQ struct {
		URL string `yaml:"url" envconfig:"URL"`
	} `yaml:"rabbitmq" envconfig:"RABBITMQ"`

	Database struct {
		URL string `yaml:"url" envconfig:"URL"`
	} `yaml:"database" envconfig:"DATABASE"`

	Workers int `yaml:"workers" envconfig:"WORKERS"`

	Auth struct {
		OperatorSecret   string        `yaml:"operator_secret" envconfig:"OPERATOR_SECRET"`
		InstanceSecret   string        `yaml:"instance_secret" envconfig:"INSTANCE_SECRET"`
		OperatorTokenTTL time.Duration `yaml:"operator_token_ttl" envconfig:"OPERATOR_TOKEN_TTL"`
	} `yaml:"auth" envconfig:"AUTH"`

	TenantClient struct {
		Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	} `yaml:"tenant_client" envconfig:"TENANT_CLIENT"`

	Log struct {
		Level  string `yaml:"level" envconfig:"LEVEL"`
		Format string `yaml:"format" envconfig:"FORMAT"`
	} `yaml:"log" envconfig:"LOG"`
}

// LoadConfig reads the YAML file at path, applies environment overrides and defaults.
// A missing file is not an error when the environment carries the whole config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Auth.OperatorTokenTTL <= 0 {
		c.Auth.OperatorTokenTTL = 7 * 24 * time.Hour
	}
	if c.TenantClient.Timeout <= 0 {
		c.TenantClient.Timeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate reports configuration that must stop the process at startup.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Auth.OperatorSecret == "" || c.Auth.InstanceSecret == "" {
		return fmt.Errorf("auth.operator_secret and auth.instance_secret are required")
	}
	if c.Auth.OperatorSecret == c.Auth.InstanceSecret {
		return fmt.Errorf("auth.operator_secret and auth.instance_secret must differ")
	}
	return nil
}
