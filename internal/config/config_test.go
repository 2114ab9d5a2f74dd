package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	s := Default()

	if s.WorkspaceRoot != "workspace" {
		t.Errorf("expected workspace_root 'workspace', got %q", s.WorkspaceRoot)
	}
	if s.ConcurrencyCap != 5 {
		t.Errorf("expected concurrency_cap 5, got %d", s.ConcurrencyCap)
	}
	if s.DispatchInterval != 500*time.Millisecond {
		t.Errorf("expected dispatch_interval 500ms, got %v", s.DispatchInterval)
	}
	if s.BroadcastThrottle != 300*time.Millisecond {
		t.Errorf("expected broadcast_throttle 300ms, got %v", s.BroadcastThrottle)
	}
	if s.BackendTimeout != 5*time.Minute {
		t.Errorf("expected backend_timeout 5m, got %v", s.BackendTimeout)
	}
	if s.AutoApproveAll {
		t.Error("expected auto_approve_all to default to false")
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
workspace_root: /tmp/workroot
concurrency_cap: 8
dispatch_interval: 1s
auto_approve_all: true
activity_ring_size: 250
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	s, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if s.WorkspaceRoot != "/tmp/workroot" {
		t.Errorf("expected workspace_root '/tmp/workroot', got %q", s.WorkspaceRoot)
	}
	if s.ConcurrencyCap != 8 {
		t.Errorf("expected concurrency_cap 8, got %d", s.ConcurrencyCap)
	}
	if s.DispatchInterval != time.Second {
		t.Errorf("expected dispatch_interval 1s, got %v", s.DispatchInterval)
	}
	if !s.AutoApproveAll {
		t.Error("expected auto_approve_all true")
	}
	if s.ActivityRingSize != 250 {
		t.Errorf("expected activity_ring_size 250, got %d", s.ActivityRingSize)
	}

	// Fields not set in the file should fall back to defaults.
	if s.MemoryDir != ".agentforge" {
		t.Errorf("expected memory_dir default '.agentforge', got %q", s.MemoryDir)
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected error loading missing file")
	}
}

func TestFindProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	projectConfig := filepath.Join(tmpDir, "a", ".agentforge.yaml")
	if err := os.WriteFile(projectConfig, []byte("concurrency_cap: 9\n"), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}

	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get cwd: %v", err)
	}
	defer os.Chdir(origWd)

	if err := os.Chdir(nested); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}

	found := findProjectConfig()
	if found != projectConfig {
		t.Errorf("findProjectConfig() = %q, want %q", found, projectConfig)
	}
}
