// Package config loads orchestrator settings and the agent roster.
// It layers XDG user config, a project-level override file, and
// environment variables on top of built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Settings holds all tunables for the orchestrator, event bus, and
// broadcaster.
type Settings struct {
	// WorkspaceRoot is the fixed subdirectory all FileIntent paths and
	// CommandIntent cwds are interpreted relative to.
	WorkspaceRoot string `mapstructure:"workspace_root"`
	// AgentsFile points at the agent roster YAML, hot-reloaded on write.
	AgentsFile string `mapstructure:"agents_file"`
	// MemoryDir holds the JSON history document and markdown audit log.
	MemoryDir string `mapstructure:"memory_dir"`

	// DispatchInterval is the orchestrator's tick period.
	DispatchInterval time.Duration `mapstructure:"dispatch_interval"`
	// ConcurrencyCap bounds the number of simultaneously working agents.
	ConcurrencyCap int `mapstructure:"concurrency_cap"`
	// RechargeInterval is the agent energy/cooldown recharge tick period.
	RechargeInterval time.Duration `mapstructure:"recharge_interval"`
	// BroadcastThrottle is the minimum spacing between emitted snapshots.
	BroadcastThrottle time.Duration `mapstructure:"broadcast_throttle"`
	// BackendTimeout is the hard wall-clock deadline for one backend call.
	BackendTimeout time.Duration `mapstructure:"backend_timeout"`
	// CommandTimeout is the hard wall-clock deadline for one command exec.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	// RateLimitCooldown is how long a 429'd agent sits in cooldown.
	RateLimitCooldown time.Duration `mapstructure:"rate_limit_cooldown"`

	// AutoApproveAll forces every new task's risk to low, overriding the
	// per-task keyword/path heuristic.
	AutoApproveAll bool `mapstructure:"auto_approve_all"`

	// ActivityRingSize bounds the Event Bus's in-memory activity buffer.
	ActivityRingSize int `mapstructure:"activity_ring_size"`
}

// Default returns the built-in defaults applied before any config file
// or environment variable is consulted.
func Default() *Settings {
	return &Settings{
		WorkspaceRoot:     "workspace",
		AgentsFile:        filepath.Join(getUserConfigDir(), "agents.yaml"),
		MemoryDir:         ".agentforge",
		DispatchInterval:  500 * time.Millisecond,
		ConcurrencyCap:    5,
		RechargeInterval:  30 * time.Second,
		BroadcastThrottle: 300 * time.Millisecond,
		BackendTimeout:    5 * time.Minute,
		CommandTimeout:    120 * time.Second,
		RateLimitCooldown: 60 * time.Second,
		AutoApproveAll:    false,
		ActivityRingSize:  100,
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("workspace_root", d.WorkspaceRoot)
	v.SetDefault("agents_file", d.AgentsFile)
	v.SetDefault("memory_dir", d.MemoryDir)
	v.SetDefault("dispatch_interval", d.DispatchInterval.String())
	v.SetDefault("concurrency_cap", d.ConcurrencyCap)
	v.SetDefault("recharge_interval", d.RechargeInterval.String())
	v.SetDefault("broadcast_throttle", d.BroadcastThrottle.String())
	v.SetDefault("backend_timeout", d.BackendTimeout.String())
	v.SetDefault("command_timeout", d.CommandTimeout.String())
	v.SetDefault("rate_limit_cooldown", d.RateLimitCooldown.String())
	v.SetDefault("auto_approve_all", d.AutoApproveAll)
	v.SetDefault("activity_ring_size", d.ActivityRingSize)
}

// Load loads settings from XDG paths, a project override file, and
// environment variables, in that precedence order (highest to lowest:
// env, project, user, defaults).
func Load() (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	userDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectPath := findProjectConfig(); projectPath != "" {
		pv := viper.New()
		pv.SetConfigFile(projectPath)
		if err := pv.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("AGENTFORGE")

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}

	return settings, nil
}

// LoadFromPath loads settings from a specific file, bypassing XDG/project
// discovery. Used by tests and the --config flag.
func LoadFromPath(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}

	return settings, nil
}

func getUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentforge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "agentforge")
	}
	return filepath.Join(home, ".config", "agentforge")
}

func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(cwd, ".agentforge.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return ""
		}
		cwd = parent
	}
}
