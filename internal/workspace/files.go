package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentforge/orchestrator/pkg/models"
)

// WriteFiles applies each FileIntent under root in order, creating parent
// directories as needed and writing each file to a temporary sibling that
// is then renamed into place, and returns the relative paths actually written.
// A path that escapes root or matches the deny list aborts the whole
// write with a FileWriteFailure error; paths already written stay on
// disk (the caller decides whether to treat a partial write as failed).
func WriteFiles(root string, intents []models.FileIntent) ([]string, error) {
	written := make([]string, 0, len(intents))

	for _, intent := range intents {
		abs, err := resolveUnderRoot(root, intent.Path)
		if err != nil {
			return written, &models.KindedError{Kind: models.ErrKindFileWriteFailure, Err: fmt.Errorf("%s: %w", intent.Path, err)}
		}

		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return written, &models.KindedError{Kind: models.ErrKindFileWriteFailure, Err: fmt.Errorf("creating parent dirs for %s: %w", intent.Path, err)}
		}
		tmp := abs + ".tmp"
		if err := os.WriteFile(tmp, []byte(intent.Content), 0o644); err != nil {
			return written, &models.KindedError{Kind: models.ErrKindFileWriteFailure, Err: fmt.Errorf("writing %s: %w", intent.Path, err)}
		}
		if err := os.Rename(tmp, abs); err != nil {
			os.Remove(tmp)
			return written, &models.KindedError{Kind: models.ErrKindFileWriteFailure, Err: fmt.Errorf("renaming %s into place: %w", intent.Path, err)}
		}

		written = append(written, filepath.ToSlash(intent.Path))
	}

	return written, nil
}
