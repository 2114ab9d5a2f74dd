package models

import (
	"testing"
	"time"
)

func TestAgentStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status AgentStatus
		want   bool
	}{
		{"idle is valid", AgentStatusIdle, true},
		{"working is valid", AgentStatusWorking, true},
		{"cooldown is valid", AgentStatusCooldown, true},
		{"offline is valid", AgentStatusOffline, true},
		{"error is valid", AgentStatusError, true},
		{"empty string is invalid", AgentStatus(""), false},
		{"unknown status is invalid", AgentStatus("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("AgentStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestProviderKind_IsBridge(t *testing.T) {
	tests := []struct {
		kind ProviderKind
		want bool
	}{
		{ProviderCursorBridge, true},
		{ProviderCopilotBridge, true},
		{ProviderAnthropic, false},
		{ProviderOpenAICompatible, false},
		{ProviderGemini, false},
	}

	for _, tt := range tests {
		if got := tt.kind.IsBridge(); got != tt.want {
			t.Errorf("ProviderKind(%q).IsBridge() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{299, 1},
		{300, 2},
		{600, 3},
		{899, 3},
	}

	for _, tt := range tests {
		if got := LevelForXP(tt.xp); got != tt.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestAgentState_Clone_IndependentCooldown(t *testing.T) {
	until := time.Now().Add(time.Minute)
	orig := AgentState{Status: AgentStatusCooldown, CooldownUntil: &until}

	clone := orig.Clone()
	*clone.CooldownUntil = clone.CooldownUntil.Add(time.Hour)

	if orig.CooldownUntil.Equal(*clone.CooldownUntil) {
		t.Fatalf("mutating clone's CooldownUntil affected the original")
	}
}
