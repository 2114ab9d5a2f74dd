package main

import (
	"fmt"

	"github.com/agentforge/orchestrator/internal/broadcaster"
	"github.com/agentforge/orchestrator/internal/config"
	"github.com/agentforge/orchestrator/internal/eventbus"
	"github.com/agentforge/orchestrator/internal/memory"
	"github.com/agentforge/orchestrator/internal/orchestrator"
	"github.com/agentforge/orchestrator/internal/registry"
	"github.com/agentforge/orchestrator/internal/tasks"
	"github.com/agentforge/orchestrator/pkg/models"
)

// app bundles every long-lived component a command needs. serve keeps
// it running; status/agents/config build it once for a point-in-time
// read and exit.
type app struct {
	settings     *config.Settings
	bus          *eventbus.Bus
	registry     *registry.Registry
	tasks        *tasks.Manager
	memory       *memory.Store
	perfDB       *memory.PerfDB
	broadcaster  *broadcaster.Broadcaster
	orchestrator *orchestrator.Orchestrator
	roster       *config.RosterWatcher
}

func loadSettings() (*config.Settings, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

// buildApp loads settings, opens the memory store, and wires the
// registry/task manager/broadcaster/orchestrator together. It starts
// the roster watcher, which loads the initial roster synchronously
// before returning.
func buildApp() (*app, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	bus := eventbus.New(settings.ActivityRingSize)
	reg := registry.New(bus, credentialResolvable)
	taskMgr := tasks.New(bus, settings.AutoApproveAll)
	mem, err := memory.Open(settings.MemoryDir)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	perfDB, err := memory.OpenPerfDB(settings.MemoryDir)
	if err != nil {
		return nil, fmt.Errorf("open performance index: %w", err)
	}
	bc := broadcaster.New(reg, taskMgr, mem, bus, settings.BroadcastThrottle)
	orch := orchestrator.New(settings, reg, taskMgr, mem, perfDB, bus, bc, nil)

	watcher, err := config.NewRosterWatcher(settings.AgentsFile, reg.ReplaceRoster)
	if err != nil {
		return nil, fmt.Errorf("watch agent roster: %w", err)
	}

	return &app{
		settings:     settings,
		bus:          bus,
		registry:     reg,
		tasks:        taskMgr,
		memory:       mem,
		perfDB:       perfDB,
		broadcaster:  bc,
		orchestrator: orch,
		roster:       watcher,
	}, nil
}

func (a *app) Close() error {
	_ = a.perfDB.Close()
	return a.roster.Close()
}

func credentialResolvable(cfg models.AgentConfig) bool {
	_, err := config.ResolveCredentialFromProcessEnv(cfg)
	return err == nil
}
