package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"market-gateway/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	DBTypePostgres = "postgres"
	DBTypeSQLite   = "sqlite"
	DBTypeRedis    = "redis"
	DBTypeMemory   = "memory"
)

// Providers
const (
	ProviderYahoo        = "yahoo"
	ProviderAlphaVantage = "alpha_vantage"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig

	// storage backends selected by environment variables
	envStores []string
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file, .env and environment overrides
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	modelConfig := Defaults()
	if err := yaml.Unmarshal(data, modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: modelConfig}

	// 3. Environment (.env is optional)
	_ = godotenv.Load()
	config.ApplyEnv()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Defaults returns the configuration used for any key the YAML file omits.
func Defaults() *models.MConfig {
	return &models.MConfig{
		Name:      "market-gateway",
		Host:      "0.0.0.0",
		Port:      8090,
		LogLevel:  "INFO",
		LogFormat: "pretty",
		LogFile: models.MLogFileConfig{
			Path:       "logs",
			MaxSizeMB:  50,
			MaxAgeDays: 14,
		},
		Storage: models.MStorageConfig{
			DBType:    DBTypeMemory,
			DBPath:    "gateway.db",
			Schema:    "public",
			RedisAddr: "localhost:6379",
		},
		Network: models.MNetworkConfig{
			RequestTimeout: 10,
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36",
		},
		DataSource: models.MDataSourceConfig{
			Provider:               ProviderYahoo,
			ProviderTimeoutSeconds: 15,
			AlphaVantage: models.MAlphaVantageConfig{
				BaseURL: "https://www.alphavantage.co/query",
			},
			Yahoo: models.MYahooConfig{
				BaseURL:      "https://query2.finance.yahoo.com",
				QuoteBaseURL: "https://query1.finance.yahoo.com",
				SessionURL:   "https://fc.yahoo.com",
			},
		},
	}
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides file values with environment variables when they are set.
// DOCDB_DATABASE_URL and REDIS_ADDR each select a storage backend; Validate rejects both at once.
func (c *Config) ApplyEnv() {
	c.envStores = nil
	if dsn := os.Getenv("DOCDB_DATABASE_URL"); dsn != "" {
		c.Storage.DBType = DBTypePostgres
		c.Storage.DBConnectionString = dsn
		c.envStores = append(c.envStores, "DOCDB_DATABASE_URL")
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Storage.DBType = DBTypeRedis
		c.Storage.RedisAddr = addr
		c.envStores = append(c.envStores, "REDIS_ADDR")
	}
	if p := os.Getenv("MARKET_PROVIDER"); p != "" {
		c.DataSource.Provider = strings.ToLower(p)
	}
	if key := os.Getenv("ALPHA_VANTAGE_API_KEY"); key != "" {
		c.DataSource.AlphaVantage.APIKey = key
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			c.Port = n
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if len(c.envStores) > 1 {
		return fmt.Errorf("conflicting storage selection: %s are both set", strings.Join(c.envStores, " and "))
	}
	switch c.Storage.DBType {
	case DBTypePostgres, DBTypeMemory, DBTypeRedis:
	case DBTypeSQLite:
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	default:
		return fmt.Errorf("unknown database type: %q", c.Storage.DBType)
	}
	if c.Storage.DBType == DBTypeRedis && c.Storage.RedisAddr == "" {
		return fmt.Errorf("redis address cannot be empty for redis")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}

	// Validate DataSource configuration
	switch c.DataSource.Provider {
	case ProviderYahoo, ProviderAlphaVantage:
	default:
		return fmt.Errorf("unknown provider: %q", c.DataSource.Provider)
	}
	if c.DataSource.ProviderTimeoutSeconds <= 0 {
		return fmt.Errorf("provider timeout must be greater than 0")
	}

	for i, key := range c.Auth.BootstrapKeys {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("bootstrap key %d cannot be empty", i)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
