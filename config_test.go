package gmxsdk

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
chain: arbitrum
rpc_url: https://arb1.example.org/rpc
max_leverage: 50
execution_buffer: 1.5
auto_approve: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Chain != ChainArbitrum {
		t.Errorf("Chain = %q, want arbitrum", cfg.Chain)
	}
	if cfg.RPCURL != "https://arb1.example.org/rpc" {
		t.Errorf("RPCURL = %q", cfg.RPCURL)
	}
	if cfg.MaxLeverage != 50 {
		t.Errorf("MaxLeverage = %d, want 50", cfg.MaxLeverage)
	}
	if cfg.ExecutionBuffer != 1.5 {
		t.Errorf("ExecutionBuffer = %v, want 1.5", cfg.ExecutionBuffer)
	}
	if !cfg.AutoApprove {
		t.Error("AutoApprove = false, want true")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, "rpc_url: https://arb1.example.org/rpc\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Chain != ChainArbitrum {
		t.Errorf("Chain = %q, want the arbitrum default", cfg.Chain)
	}
	if cfg.MaxLeverage != 100 {
		t.Errorf("MaxLeverage = %d, want the 100 default", cfg.MaxLeverage)
	}
	if cfg.ExecutionBuffer != 1.3 {
		t.Errorf("ExecutionBuffer = %v, want the 1.3 default", cfg.ExecutionBuffer)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfigFile(t, "chain: arbitrum\n")
	t.Setenv("GMX_PRIVATE_KEY", "deadbeef")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.PrivateKey != "deadbeef" {
		t.Errorf("PrivateKey = %q, want the environment value", cfg.PrivateKey)
	}
}

func TestLoadConfigUnsupportedChain(t *testing.T) {
	path := writeConfigFile(t, "chain: fantom\n")

	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() accepted an unsupported chain")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfig() succeeded on a missing file")
	}
}

func TestConfigChainID(t *testing.T) {
	cfg := &Config{Chain: ChainAvalanche}
	id, err := cfg.ChainID()
	if err != nil {
		t.Fatalf("ChainID() error = %v", err)
	}
	if id != 43114 {
		t.Errorf("ChainID() = %d, want 43114", id)
	}
}

func TestConfigContractsUnknownChain(t *testing.T) {
	cfg := &Config{Chain: ChainAvalanche}
	if _, err := cfg.Contracts(); err == nil {
		t.Error("Contracts() returned a set for a chain without deployments configured")
	}
}
