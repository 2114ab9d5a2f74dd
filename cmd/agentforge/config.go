package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the currently loaded settings",
	Long: `config prints the settings that "serve" would run with: built-in
defaults layered with any project/user config file and environment
variable overrides. It is read-only — edit the config file or set
environment variables to change these values.`,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	fmt.Printf("workspace_root       %s\n", settings.WorkspaceRoot)
	fmt.Printf("agents_file          %s\n", settings.AgentsFile)
	fmt.Printf("memory_dir           %s\n", settings.MemoryDir)
	fmt.Printf("dispatch_interval    %s\n", settings.DispatchInterval)
	fmt.Printf("concurrency_cap      %d\n", settings.ConcurrencyCap)
	fmt.Printf("recharge_interval    %s\n", settings.RechargeInterval)
	fmt.Printf("broadcast_throttle   %s\n", settings.BroadcastThrottle)
	fmt.Printf("backend_timeout      %s\n", settings.BackendTimeout)
	fmt.Printf("command_timeout      %s\n", settings.CommandTimeout)
	fmt.Printf("rate_limit_cooldown  %s\n", settings.RateLimitCooldown)
	fmt.Printf("auto_approve_all     %t\n", settings.AutoApproveAll)
	fmt.Printf("activity_ring_size   %d\n", settings.ActivityRingSize)
	return nil
}
