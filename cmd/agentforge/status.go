package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentforge/orchestrator/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a point-in-time snapshot of agents, tasks, and activity",
	RunE:  runStatus,
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.broadcaster.Snapshot()

	fmt.Println(headerStyle.Render("Agents"))
	if len(snap.Agents) == 0 {
		fmt.Println(dimStyle.Render("  none registered"))
	}
	for _, agent := range snap.Agents {
		fmt.Printf("  %s %s  %s  energy=%d/100  xp=%d  level=%d  tasks=%d\n",
			statusSymbol(agent.Status), agent.DisplayName, statusLabel(agent.Status),
			agent.Energy, agent.XP, agent.Level, agent.TasksCompleted)
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Tasks"))
	if len(snap.Tasks) == 0 {
		fmt.Println(dimStyle.Render("  none"))
	}
	for _, task := range snap.Tasks {
		fmt.Printf("  %s  [%s/%s]  %s\n", task.ID, task.Status, task.Priority, task.Title)
	}
	if snap.ArchivedTaskCount > 0 {
		fmt.Println(dimStyle.Render(fmt.Sprintf("  (%d older tasks archived)", snap.ArchivedTaskCount)))
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Performance"))
	for _, p := range snap.Performance {
		fmt.Printf("  %s  overall=%d  recent_failures=%d\n", p.AgentID, p.OverallScore, p.RecentFailures)
	}

	if len(snap.Activity) > 0 {
		fmt.Println()
		fmt.Println(headerStyle.Render("Recent activity"))
		for _, entry := range snap.Activity {
			fmt.Println(dimStyle.Render("  " + entry.Timestamp.Format("15:04:05") + "  " + entry.EventTag + "  " + entry.Message))
		}
	}

	return nil
}

func statusLabel(s models.AgentStatus) string {
	return strings.ToUpper(string(s))
}

func statusSymbol(s models.AgentStatus) string {
	switch s {
	case models.AgentStatusIdle:
		return color.GreenString("●")
	case models.AgentStatusWorking:
		return color.CyanString("●")
	case models.AgentStatusCooldown:
		return color.YellowString("●")
	case models.AgentStatusOffline, models.AgentStatusError:
		return color.RedString("●")
	default:
		return "●"
	}
}
