package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Auth     AuthConfig     `yaml:"auth"`
	Locality LocalityConfig `yaml:"locality"`
	Socket   SocketConfig   `yaml:"socket"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"dbname"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Exchange string `yaml:"exchange"`
	Enabled  bool   `yaml:"enabled"`
}

type AuthConfig struct {
	Secret string `yaml:"secret"`
}

type LocalityConfig struct {
	VisitTTLHours      int  `yaml:"visit_ttl_hours"`
	ApprovalTTLSeconds int  `yaml:"approval_ttl_seconds"`
	RequireApproval    bool `yaml:"require_approval"`
}

type SocketConfig struct {
	PingIntervalSeconds int `yaml:"ping_interval_seconds"`
}

// Load reads the yaml file at path, after loading a .env file if one is
// present. Secrets can be kept out of the yaml and supplied through the
// environment instead.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth secret is required (auth.secret or AUTH_SECRET)")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 3000
	}
	if c.Locality.VisitTTLHours == 0 {
		c.Locality.VisitTTLHours = 4
	}
	if c.Locality.ApprovalTTLSeconds == 0 {
		c.Locality.ApprovalTTLSeconds = 30
	}
	if c.Socket.PingIntervalSeconds == 0 {
		c.Socket.PingIntervalSeconds = 30
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "store_events"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("RABBITMQ_PASSWORD"); v != "" {
		c.RabbitMQ.Password = v
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		c.Auth.Secret = v
	}
}

func (c *Config) VisitTTL() time.Duration {
	return time.Duration(c.Locality.VisitTTLHours) * time.Hour
}

func (c *Config) ApprovalTTL() time.Duration {
	return time.Duration(c.Locality.ApprovalTTLSeconds) * time.Second
}

func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.Socket.PingIntervalSeconds) * time.Second
}
