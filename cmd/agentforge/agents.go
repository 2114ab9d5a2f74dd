package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyAgentID string

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the registered agent roster",
	Long: `agents lists every agent in the current roster with its live
runtime state. Pass --history <agent-id> to query the SQLite
performance mirror for that agent's full scored-task history instead.`,
	RunE: runAgents,
}

func init() {
	agentsCmd.Flags().StringVar(&historyAgentID, "history", "", "print scored task history for one agent ID instead of the roster")
}

func runAgents(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if historyAgentID != "" {
		return printAgentHistory(a, historyAgentID)
	}

	for _, agent := range a.registry.List() {
		fmt.Printf("%-16s %-24s %-10s %-18s status=%-10s energy=%3d xp=%-6d level=%d\n",
			agent.ID, agent.DisplayName, agent.Provider, agent.Model, agent.Status, agent.Energy, agent.XP, agent.Level)
	}
	return nil
}

func printAgentHistory(a *app, agentID string) error {
	rows, err := a.perfDB.AgentHistory(agentID)
	if err != nil {
		return fmt.Errorf("query agent history: %w", err)
	}
	if len(rows) == 0 {
		fmt.Printf("no scored history for agent %q\n", agentID)
		return nil
	}
	for _, row := range rows {
		fmt.Printf("%s  %-14s  task=%-20s  score=%d\n", row.RecordedAt.Format("2006-01-02 15:04:05"), row.Category, row.TaskID, row.Score)
	}
	return nil
}
