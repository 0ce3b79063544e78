package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type APIConfig struct {
	Port int    `yaml:"port"`
	Bind string `yaml:"bind"`
}

type SessionConfig struct {
	Duration     time.Duration `yaml:"duration"`      // full session length
	MaxReward    float64       `yaml:"max_reward"`    // tokens accrued by a full session
	TickInterval time.Duration `yaml:"tick_interval"` // progress recompute cadence
	LogInterval  time.Duration `yaml:"log_interval"`  // decorative event cadence
	Wallet       string        `yaml:"wallet"`        // claiming wallet address
}

type FeedConfig struct {
	BaseURL            string `yaml:"base_url"`
	APIKey             string `yaml:"api_key"`
	DistributorAddress string `yaml:"distributor_address"`
	TokenAddress       string `yaml:"token_address"`
	TokenSymbol        string `yaml:"token_symbol"`
	TokenDecimals      int    `yaml:"token_decimals"`
	ClaimAmount        int64  `yaml:"claim_amount"` // whole tokens paid per claim
	PageSize           int    `yaml:"page_size"`    // recent-claims feed page
	AggregatePageSize  int    `yaml:"aggregate_page_size"`
}

type ContractConfig struct {
	Endpoint            string        `yaml:"endpoint"` // distributor service URL, empty = noop
	BalancePollInterval time.Duration `yaml:"balance_poll_interval"`
}

type Config struct {
	DataDir  string         `yaml:"data_dir"`
	API      APIConfig      `yaml:"api"`
	Session  SessionConfig  `yaml:"session"`
	Feed     FeedConfig     `yaml:"feed"`
	Contract ContractConfig `yaml:"contract"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(home, ".faucetminer"),
		API: APIConfig{
			Port: 8430,
			Bind: "127.0.0.1",
		},
		Session: SessionConfig{
			Duration:     10 * time.Minute,
			MaxReward:    200,
			TickInterval: 100 * time.Millisecond,
			LogInterval:  800 * time.Millisecond,
		},
		Feed: FeedConfig{
			BaseURL:           "https://api.basescan.org/api",
			TokenSymbol:       "FCT",
			TokenDecimals:     6,
			ClaimAmount:       200,
			PageSize:          25,
			AggregatePageSize: 1000,
		},
		Contract: ContractConfig{
			BalancePollInterval: 10 * time.Second,
		},
	}
}

// Load reads a YAML config file and merges it with defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file — use defaults + env overlay
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand ~ in data_dir
	if len(cfg.DataDir) > 0 && cfg.DataDir[0] == '~' {
		home, _ := os.UserHomeDir()
		cfg.DataDir = filepath.Join(home, cfg.DataDir[1:])
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables on top of config values.
func (c *Config) applyEnv() {
	if v := os.Getenv("FAUCETMINER_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("FAUCETMINER_WALLET"); v != "" {
		c.Session.Wallet = v
	}
	if v := os.Getenv("FAUCETMINER_FEED_URL"); v != "" {
		c.Feed.BaseURL = v
	}
	if v := os.Getenv("FAUCETMINER_FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("FAUCETMINER_DISTRIBUTOR"); v != "" {
		c.Feed.DistributorAddress = v
	}
	if v := os.Getenv("FAUCETMINER_TOKEN"); v != "" {
		c.Feed.TokenAddress = v
	}
	if v := os.Getenv("FAUCETMINER_CONTRACT_ENDPOINT"); v != "" {
		c.Contract.Endpoint = v
	}
}

// LoadFromBytes parses YAML config from bytes and merges with defaults.
// Used by the mobile package where there's no config file on disk.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// DBPath returns the full path to the SQLite database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "faucetminer.db")
}
