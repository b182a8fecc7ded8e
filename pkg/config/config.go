package config

// Package config provides a reusable loader for WalGit configuration
// files and environment variables, versioned so applications can depend
// on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"walgit/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Network is the ledger network a repository's operations target
// (spec.md §2's ambient configuration surface).
type Network string

const (
	NetworkMainnet  Network = "mainnet"
	NetworkTestnet  Network = "testnet"
	NetworkDevnet   Network = "devnet"
	NetworkLocalnet Network = "localnet"
)

// Config is the unified configuration for a WalGit client. It mirrors
// the structure of the YAML files under cmd/config.
type Config struct {
	Network struct {
		Name           Network `mapstructure:"name" json:"name"`
		PackageID      string  `mapstructure:"package_id" json:"package_id"`
		LedgerEndpoint string  `mapstructure:"ledger_endpoint" json:"ledger_endpoint"`
		UseBlockchain  bool    `mapstructure:"use_blockchain" json:"use_blockchain"`
	} `mapstructure:"network" json:"network"`

	Transport struct {
		GatewayURL         string `mapstructure:"gateway_url" json:"gateway_url"`
		MaxConcurrentChunks int   `mapstructure:"max_concurrent_chunks" json:"max_concurrent_chunks"`
		RequestTimeoutMS   int    `mapstructure:"request_timeout_ms" json:"request_timeout_ms"`
	} `mapstructure:"transport" json:"transport"`

	Cache struct {
		L1Entries int    `mapstructure:"l1_entries" json:"l1_entries"`
		L2Bytes   int64  `mapstructure:"l2_bytes" json:"l2_bytes"`
		L3TTLSecs int    `mapstructure:"l3_ttl_seconds" json:"l3_ttl_seconds"`
		Dir       string `mapstructure:"dir" json:"dir"`
	} `mapstructure:"cache" json:"cache"`

	Gas struct {
		DefaultBudget uint64 `mapstructure:"default_budget" json:"default_budget"`
		MaxBatchOps   int    `mapstructure:"max_batch_ops" json:"max_batch_ops"`
	} `mapstructure:"gas" json:"gas"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment-specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is
// loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("WALGIT")
	viper.AutomaticEnv() // picks up WALGIT_* overrides, plus .env via godotenv at the CLI entrypoint

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the WALGIT_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("WALGIT_ENV", ""))
}
