package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// LoadYAMLConfig load config from filename in YAML format
func LoadYAMLConfig(filename string, cfg interface{}) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("ReadFile: %v", err)
	}
	err = yaml.Unmarshal(data, cfg)
	return err
}

func InitConfig(configPath string) (*Config, error) {
	conf := DefaultConfig()

	err := LoadYAMLConfig(configPath, conf)
	if err != nil {
		return nil, err
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func (c *Config) Validate() error {
	if c.MaxDatasetHistory <= 0 {
		return fmt.Errorf("maxDatasetHistory must be positive, got %d", c.MaxDatasetHistory)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("maxUploadSize must be positive, got %d", c.MaxUploadSize)
	}
	switch c.DB.Driver {
	case DriverSqlite, DriverMysql, DriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver: %q", c.DB.Driver)
	}
	if c.Redis.Enabled && c.Redis.TTL <= 0 {
		return fmt.Errorf("redis.ttl must be positive, got %d", c.Redis.TTL)
	}
	if len(c.CORS.AllowOrigins) == 0 {
		return fmt.Errorf("cors.allowOrigins must not be empty")
	}
	if c.JwtSecret == "" {
		return fmt.Errorf("jwtSecret is required")
	}
	return nil
}
