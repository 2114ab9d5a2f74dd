package config

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/agentforge/orchestrator/pkg/models"
)

// RosterWatcher watches the agent roster file and re-parses it on every
// write, handing the new roster to a callback. Editors that replace a
// file via rename-into-place (rather than writing in place) still fire
// a Create event on the watched directory, so the watcher watches the
// containing directory and filters by basename.
type RosterWatcher struct {
	path    string
	onLoad  func([]models.AgentConfig)
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewRosterWatcher starts watching path's parent directory and invokes
// onLoad once immediately with the current contents, then again after
// every subsequent write or atomic replace. Parse errors are logged and
// otherwise ignored, leaving the previously loaded roster in effect.
func NewRosterWatcher(path string, onLoad func([]models.AgentConfig)) (*RosterWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	rw := &RosterWatcher{
		path:    path,
		onLoad:  onLoad,
		watcher: watcher,
		done:    make(chan struct{}),
	}

	if agents, err := LoadRoster(path); err != nil {
		log.Printf("config: initial agent roster load failed: %v", err)
	} else {
		onLoad(agents)
	}

	rw.wg.Add(1)
	go rw.run()

	return rw, nil
}

func (rw *RosterWatcher) run() {
	defer rw.wg.Done()
	target := filepath.Clean(rw.path)

	for {
		select {
		case <-rw.done:
			return
		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			agents, err := LoadRoster(rw.path)
			if err != nil {
				log.Printf("config: agent roster reload failed: %v", err)
				continue
			}
			rw.onLoad(agents)
		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: agent roster watcher error: %v", err)
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (rw *RosterWatcher) Close() error {
	close(rw.done)
	err := rw.watcher.Close()
	rw.wg.Wait()
	return err
}
