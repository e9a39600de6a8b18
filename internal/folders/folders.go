package folders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"struxureguard/internal/checklist"
)

var ErrNoNames = errors.New("no folder names given")

// Batch describes one folder creation run
type Batch struct {
	Base  string
	Names []string
	// Template, when set, is copied into every folder as <name><ext>
	Template string
}

// Progress is called after each folder with the number done so far
type Progress func(done, total int)

// Create makes every folder of the batch below Base. Existing folders are
// reused. The first failure stops the run and names the folder.
func Create(ctx context.Context, b Batch, progress Progress, log *slog.Logger) ([]string, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if len(b.Names) == 0 {
		return nil, ErrNoNames
	}
	if b.Template != "" {
		if info, err := os.Stat(b.Template); err != nil || info.IsDir() {
			return nil, fmt.Errorf("template %s is not a file", b.Template)
		}
	}

	ext := filepath.Ext(b.Template)
	created := make([]string, 0, len(b.Names))
	for i, name := range b.Names {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		dir := filepath.Join(b.Base, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("Failed to create folder", "folder", name, "error", err)
			return created, fmt.Errorf("failed to create folder %s: %w", name, err)
		}
		if b.Template != "" {
			dst := filepath.Join(dir, name+ext)
			if err := checklist.CopyFile(b.Template, dst); err != nil {
				log.Error("Failed to copy template", "folder", name, "error", err)
				return created, fmt.Errorf("failed to copy %s into %s: %w", filepath.Base(b.Template), name, err)
			}
		}
		created = append(created, dir)
		log.Debug("Folder ready", "path", dir)
		if progress != nil {
			progress(i+1, len(b.Names))
		}
	}

	log.Info("Folders created", "base", b.Base, "count", len(created))
	return created, nil
}

// ParseNames reads one folder name per line, skipping blank lines
func ParseNames(text string) []string {
	names := checklist.SplitLines(text)
	for i, n := range names {
		names[i] = strings.TrimRight(n, `/\`)
	}
	return names
}
