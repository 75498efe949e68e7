// Package config loads the TOML configuration described in spec.md §6.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/glugsim/gluon/internal/common"
	"github.com/glugsim/gluon/internal/constants"
)

// GLULConfig is one entry of glug.gluls[].
type GLULConfig struct {
	ID          uint32 `toml:"id"`
	NumCores    uint32 `toml:"num_cores"`
	NumWarps    uint32 `toml:"num_warps"`
	NumLanes    uint32 `toml:"num_lanes"`
	RegsPerCore uint32 `toml:"regs_per_core"`
	Shmem       uint32 `toml:"shmem"`
}

// ToCommon converts a decoded GLULConfig to the runtime type internal/glul
// and internal/glug build against.
func (g GLULConfig) ToCommon() common.GLULConfig {
	return common.GLULConfig{
		ID:          g.ID,
		NumCores:    g.NumCores,
		NumWarps:    g.NumWarps,
		NumLanes:    g.NumLanes,
		RegsPerCore: g.RegsPerCore,
		Shmem:       g.Shmem,
	}
}

// FrontendConfig is glug.frontend.
type FrontendConfig struct {
	CommandQueueSize int `toml:"command_queue_size"`
}

// DecodeDispatchConfig is glug.decode_dispatch.
type DecodeDispatchConfig struct {
	KQSize  int `toml:"kq_size"`
	MQSize  int `toml:"mq_size"`
	CSQSize int `toml:"csq_size"`
}

// CompletionConfig is glug.completion.
type CompletionConfig struct {
	EventQueueSize int `toml:"event_queue_size"`
}

// GLUGConfig is the glug. section.
type GLUGConfig struct {
	Frontend       FrontendConfig       `toml:"frontend"`
	DecodeDispatch DecodeDispatchConfig `toml:"decode_dispatch"`
	Completion     CompletionConfig     `toml:"completion"`
	GLULs          []GLULConfig         `toml:"gluls"`
	GluonLogLevel  uint64               `toml:"gluon_log_level"`
	MuonLogLevel   uint64               `toml:"muon_log_level"`
	DRAMSize       uint32               `toml:"dram_size"`
}

// ServerConfig is the server. section.
type ServerConfig struct {
	SocketPath string `toml:"socket_path"`
}

// SimConfig is the sim. section.
type SimConfig struct {
	TimeoutCycles uint64 `toml:"timeout_cycles"`
}

// Config is the top-level TOML document.
type Config struct {
	Server ServerConfig `toml:"server"`
	Sim    SimConfig    `toml:"sim"`
	GLUG   GLUGConfig   `toml:"glug"`
}

// Default returns a Config with every spec.md §6 default applied, and no
// GLULs configured. Load adds a single DefaultGLUL(0) when the document
// lists no glug.gluls; callers that use Default directly must add at least
// one GLUL themselves.
func Default() Config {
	return Config{
		Sim: SimConfig{TimeoutCycles: 0},
		GLUG: GLUGConfig{
			Frontend:       FrontendConfig{CommandQueueSize: constants.DefaultCommandQueueSize},
			DecodeDispatch: DecodeDispatchConfig{
				KQSize:  constants.DefaultKernelQueueSize,
				MQSize:  constants.DefaultMemQueueSize,
				CSQSize: constants.DefaultCSRQueueSize,
			},
			Completion: CompletionConfig{EventQueueSize: constants.DefaultEventQueueSize},
			DRAMSize:   constants.DefaultDRAMSize,
		},
	}
}

// DefaultGLUL returns a GLULConfig with spec.md §6's per-GLUL defaults.
func DefaultGLUL(id uint32) GLULConfig {
	return GLULConfig{
		ID:          id,
		NumCores:    constants.DefaultNumCores,
		NumWarps:    constants.DefaultNumWarps,
		NumLanes:    constants.DefaultNumLanes,
		RegsPerCore: constants.DefaultRegsPerCore,
		Shmem:       constants.DefaultShmem,
	}
}

// Load reads and decodes a TOML file at path, applying defaults for any
// omitted section or field (zero value in the decoded struct).
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// applyDefaults fills in zero-valued fields left untouched by decoding, the
// same way BurntSushi/toml leaves a struct's Go zero value for any key
// absent from the document.
func applyDefaults(cfg *Config) {
	if cfg.GLUG.Frontend.CommandQueueSize == 0 {
		cfg.GLUG.Frontend.CommandQueueSize = constants.DefaultCommandQueueSize
	}
	if cfg.GLUG.DecodeDispatch.KQSize == 0 {
		cfg.GLUG.DecodeDispatch.KQSize = constants.DefaultKernelQueueSize
	}
	if cfg.GLUG.DecodeDispatch.MQSize == 0 {
		cfg.GLUG.DecodeDispatch.MQSize = constants.DefaultMemQueueSize
	}
	if cfg.GLUG.DecodeDispatch.CSQSize == 0 {
		cfg.GLUG.DecodeDispatch.CSQSize = constants.DefaultCSRQueueSize
	}
	if cfg.GLUG.Completion.EventQueueSize == 0 {
		cfg.GLUG.Completion.EventQueueSize = constants.DefaultEventQueueSize
	}
	if cfg.GLUG.DRAMSize == 0 {
		cfg.GLUG.DRAMSize = constants.DefaultDRAMSize
	}
	for i := range cfg.GLUG.GLULs {
		g := &cfg.GLUG.GLULs[i]
		if g.NumCores == 0 {
			g.NumCores = constants.DefaultNumCores
		}
		if g.NumWarps == 0 {
			g.NumWarps = constants.DefaultNumWarps
		}
		if g.NumLanes == 0 {
			g.NumLanes = constants.DefaultNumLanes
		}
		if g.RegsPerCore == 0 {
			g.RegsPerCore = constants.DefaultRegsPerCore
		}
		if g.Shmem == 0 {
			g.Shmem = constants.DefaultShmem
		}
	}
	if len(cfg.GLUG.GLULs) == 0 {
		cfg.GLUG.GLULs = []GLULConfig{DefaultGLUL(0)}
	}
}
