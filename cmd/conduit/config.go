package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration. Values come from the TOML config
// file when one is given; command-line flags override file values.
type Config struct {
	// DataDir holds the ledger, trap store and outbox databases.
	DataDir string `toml:"data_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// Listen is the gRPC listen address for inbound deliveries.
	Listen string `toml:"listen"`

	Network   NetworkConfig   `toml:"network"`
	Uplink    UplinkConfig    `toml:"uplink"`
	Fees      FeesConfig      `toml:"fees"`
	Execution ExecutionConfig `toml:"execution"`
}

// NetworkConfig places this system in the wider consensus universe.
type NetworkConfig struct {
	// ParaID is this chain's index under the X1 global consensus.
	ParaID uint32 `toml:"para_id"`

	// UnpaidParas may execute without buying weight, provided their
	// messages say so explicitly.
	UnpaidParas []uint32 `toml:"unpaid_paras"`

	// ReserveParas are trusted as reserves for their own assets.
	ReserveParas []uint32 `toml:"reserve_paras"`

	// TeleportParas are trusted to teleport the relay's native asset.
	TeleportParas []uint32 `toml:"teleport_paras"`
}

// UplinkConfig names the relay endpoint outbound messages are forwarded
// to. An empty endpoint leaves messages queued in the outbox.
type UplinkConfig struct {
	Endpoint string `toml:"endpoint"`
	UseTLS   bool   `toml:"use_tls"`
}

// FeesConfig prices outbound deliveries in the native asset.
type FeesConfig struct {
	Base    uint64 `toml:"base"`
	PerByte uint64 `toml:"per_byte"`
}

// ExecutionConfig sets the weigher and fee-market parameters.
type ExecutionConfig struct {
	// UnitRefTime and UnitProofSize weigh one undeclared instruction.
	UnitRefTime   uint64 `toml:"unit_ref_time"`
	UnitProofSize uint64 `toml:"unit_proof_size"`

	// MaxInstructions bounds one message, nested programs included.
	MaxInstructions int `toml:"max_instructions"`

	// RefTimePerToken and ProofSizePerToken set how much weight one
	// native token buys.
	RefTimePerToken   uint64 `toml:"ref_time_per_token"`
	ProofSizePerToken uint64 `toml:"proof_size_per_token"`
}

// DefaultDaemonConfig returns the built-in defaults.
func DefaultDaemonConfig() Config {
	return Config{
		DataDir:  "/var/lib/x1-conduit",
		LogLevel: "info",
		Listen:   ":9944",
		Fees: FeesConfig{
			Base:    1_000,
			PerByte: 10,
		},
		Execution: ExecutionConfig{
			UnitRefTime:       200_000,
			UnitProofSize:     1_024,
			MaxInstructions:   100,
			RefTimePerToken:   1_000,
			ProofSizePerToken: 10,
		},
	}
}

// LoadConfig reads the TOML file at path over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultDaemonConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return cfg, fmt.Errorf("config file: %w", err)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir required")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address required")
	}
	if c.Execution.MaxInstructions <= 0 {
		return fmt.Errorf("execution.max_instructions must be positive")
	}
	if c.Execution.UnitRefTime == 0 {
		return fmt.Errorf("execution.unit_ref_time must be positive")
	}
	return nil
}
