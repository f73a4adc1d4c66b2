package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tessera-studio/provenance-api/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// EthereumConfig holds Ethereum-specific configuration
type EthereumConfig struct {
	RPCURL           string       `mapstructure:"rpc_url"`
	ChainID          domain.Chain `mapstructure:"chain_id"`
	ContractAddress  string       `mapstructure:"contract_address"`
	HistoricalOwners bool         `mapstructure:"historical_owners"`
}

// GatewayConfig holds decentralized storage gateway configuration
type GatewayConfig struct {
	IPFSGateways    []string `mapstructure:"ipfs_gateways"`
	ArweaveGateways []string `mapstructure:"arweave_gateways"`
	AllowedHosts    []string `mapstructure:"allowed_hosts"`
}

// FetcherConfig holds metadata fetcher configuration
type FetcherConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// CacheConfig holds response cache configuration. RedisAddr empty means the
// in-process memory store is used instead.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	ProvenanceTTL time.Duration `mapstructure:"provenance_ttl"`
	MetadataTTL   time.Duration `mapstructure:"metadata_ttl"`
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond   int  `mapstructure:"requests_per_second"`
	Burst               int  `mapstructure:"burst"`
	EnableLocalFallback bool `mapstructure:"enable_local_fallback"`
}

// ProvenanceConfig holds inference pipeline configuration
type ProvenanceConfig struct {
	OwnerLookupConcurrency int `mapstructure:"owner_lookup_concurrency"`
}

// APIConfig holds configuration for API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig     `mapstructure:"server"`
	Ethereum   EthereumConfig   `mapstructure:"ethereum"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Fetcher    FetcherConfig    `mapstructure:"fetcher"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Provenance ProvenanceConfig `mapstructure:"provenance"`
}

// LoadAPIConfig loads configuration for API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("ethereum.chain_id", "eip155:1")
	v.SetDefault("ethereum.historical_owners", false)
	v.SetDefault("gateway.ipfs_gateways", []string{"https://ipfs.io", "https://cloudflare-ipfs.com"})
	v.SetDefault("gateway.arweave_gateways", []string{"https://arweave.net"})
	v.SetDefault("fetcher.timeout", "8s")
	v.SetDefault("fetcher.max_body_bytes", 1024*1024) // 1MB
	v.SetDefault("cache.provenance_ttl", "5m")
	v.SetDefault("cache.metadata_ttl", "10m")
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("rate_limit.enable_local_fallback", true)
	v.SetDefault("provenance.owner_lookup_concurrency", 8)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if config.Ethereum.RPCURL == "" {
		return nil, errors.New("ethereum.rpc_url is required")
	}
	if config.Ethereum.ContractAddress == "" {
		return nil, errors.New("ethereum.contract_address is required")
	}

	return &config, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/api/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("PROVENANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Ethereum
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.contract_address",
		"ethereum.historical_owners",
		// Gateway
		"gateway.ipfs_gateways",
		"gateway.arweave_gateways",
		"gateway.allowed_hosts",
		// Fetcher
		"fetcher.timeout",
		"fetcher.max_body_bytes",
		// Cache
		"cache.redis_addr",
		"cache.redis_password",
		"cache.redis_db",
		"cache.provenance_ttl",
		"cache.metadata_ttl",
		// Rate limiting
		"rate_limit.requests_per_second",
		"rate_limit.burst",
		"rate_limit.enable_local_fallback",
		// Provenance
		"provenance.owner_lookup_concurrency",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}
