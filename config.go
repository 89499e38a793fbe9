package gmxsdk

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Chain names accepted in configuration.
const (
	ChainArbitrum  = "arbitrum"
	ChainAvalanche = "avalanche"
)

// ChainIDs maps chain name to its EVM chain id.
var ChainIDs = map[string]int64{
	ChainArbitrum:  42161,
	ChainAvalanche: 43114,
}

// APIBaseURLs maps chain name to the venue's info API host, which serves the
// token registry, market registry and oracle price feed.
var APIBaseURLs = map[string]string{
	ChainArbitrum:  "https://arbitrum-api.gmxinfra.io",
	ChainAvalanche: "https://avalanche-api.gmxinfra.io",
}

// ContractAddresses holds the venue contracts one chain's pipeline talks to.
type ContractAddresses struct {
	// ExchangeRouter receives the multicall that creates orders.
	ExchangeRouter string
	// SyntheticsRouter is the spender that moves collateral, so it is the
	// target of token approvals.
	SyntheticsRouter string
	// DataStore is the on-chain configuration store the gas-limit table is
	// read from.
	DataStore string
	// OrderVault receives execution fees and collateral for pending orders.
	OrderVault string
	// WrappedNative is the chain's wrapped gas token. Balance checks for
	// this address read the native balance instead of an ERC-20 balance.
	WrappedNative string
}

// DefaultContractAddresses maps chain name to its deployed contract set.
var DefaultContractAddresses = map[string]ContractAddresses{
	ChainArbitrum: {
		ExchangeRouter:   "0x7C68C7866A64FA2160F78EEaE12217FFbf871fa8",
		SyntheticsRouter: "0x7452c558d45f8afC8c83dAe62C3f8A5BE19c71f6",
		DataStore:        "0xFD70de6b91282D8017aA4E741e9Ae325CAb992d8",
		OrderVault:       "0x31eF83a530Fde1B38EE9A18093A333D8Bbbc40D5",
		WrappedNative:    "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
	},
}

// Config is the explicit configuration value threaded through the client.
// It is loaded once by the caller and passed by reference; there is no
// process-wide mutable configuration state.
type Config struct {
	Chain         string `yaml:"chain" env:"GMX_CHAIN" env-default:"arbitrum"`
	RPCURL        string `yaml:"rpc_url" env:"GMX_RPC_URL"`
	WalletAddress string `yaml:"user_wallet_address" env:"GMX_WALLET_ADDRESS"`
	// PrivateKey is the hex signing credential. Prefer supplying it via the
	// environment rather than the YAML file.
	PrivateKey string `yaml:"private_key" env:"GMX_PRIVATE_KEY"`

	// MaxLeverage is the venue's leverage ceiling used by the resolver.
	MaxLeverage int64 `yaml:"max_leverage" env-default:"100"`
	// ExecutionBuffer pads the execution fee above the estimated cost.
	ExecutionBuffer float64 `yaml:"execution_buffer" env-default:"1.3"`
	// AutoApprove lets the allowance manager raise an insufficient token
	// allowance itself instead of failing.
	AutoApprove bool `yaml:"auto_approve" env-default:"false"`
}

// ChainID returns the EVM chain id for the configured chain.
func (c *Config) ChainID() (int64, error) {
	id, ok := ChainIDs[c.Chain]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedChain, c.Chain)
	}
	return id, nil
}

// Contracts returns the contract address set for the configured chain.
func (c *Config) Contracts() (ContractAddresses, error) {
	contracts, ok := DefaultContractAddresses[c.Chain]
	if !ok {
		return ContractAddresses{}, fmt.Errorf("%w: %q", ErrUnsupportedChain, c.Chain)
	}
	return contracts, nil
}

// LoadConfig reads a YAML config file, with environment variables taking
// precedence over file values.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if _, ok := ChainIDs[cfg.Chain]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedChain, cfg.Chain)
	}

	return &cfg, nil
}

// MustLoadConfig is LoadConfig with the CONFIG_PATH fallback, panicking on
// failure. Intended for main functions.
func MustLoadConfig(path string) *Config {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		panic("config path is empty")
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
