package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	LogFormat  string            `yaml:"log_format"`
	LogFile    MLogFileConfig    `yaml:"log_file"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	DataSource MDataSourceConfig `yaml:"data_source"`
	Gateway    MGatewayConfig    `yaml:"gateway"`
	Auth       MAuthConfig       `yaml:"auth"`
}

type MLogFileConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // postgres, sqlite, redis, memory
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	Schema             string `yaml:"schema"`
	RedisAddr          string `yaml:"redis_addr"`
	RedisPassword      string `yaml:"redis_password"`
	RedisDB            int    `yaml:"redis_db"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	UserAgent      string `yaml:"user_agent"`
	Proxy          string `yaml:"proxy"` // Optional
}

type MDataSourceConfig struct {
	Provider               string              `yaml:"provider"` // yahoo, alpha_vantage
	ProviderTimeoutSeconds int                 `yaml:"provider_timeout_seconds"`
	AlphaVantage           MAlphaVantageConfig `yaml:"alpha_vantage"`
	Yahoo                  MYahooConfig        `yaml:"yahoo"`
}

type MAlphaVantageConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"` // Optional, used when the caller supplies none
}

type MYahooConfig struct {
	BaseURL      string `yaml:"base_url"`       // chart + options
	QuoteBaseURL string `yaml:"quote_base_url"` // quote + crumb
	SessionURL   string `yaml:"session_url"`    // cookie bootstrap
}

type MGatewayConfig struct {
	DedupeInflight bool `yaml:"dedupe_inflight"`
}

type MAuthConfig struct {
	BootstrapKeys []string `yaml:"bootstrap_keys"`
}
