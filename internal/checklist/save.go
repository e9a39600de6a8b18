package checklist

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Prompter is the interactive side of a run. Both calls block the worker
// until the user has answered.
type Prompter interface {
	// ConfirmOverwrite asks whether to write into the original workbook
	ConfirmOverwrite(ctx context.Context, original string) (bool, error)
	// ChooseCopyPath asks for the destination of a copy; "" means cancel
	ChooseCopyPath(ctx context.Context, original string) (string, error)
}

// SaveTarget is the workbook a run mutates
type SaveTarget struct {
	Path string
	// Copy is set when Path is a duplicate made for this run
	Copy bool
}

// ResolveTarget asks the prompter where to write and, for a copy, duplicates
// the original before anything is mutated.
func ResolveTarget(ctx context.Context, p Prompter, original string) (SaveTarget, error) {
	overwrite, err := p.ConfirmOverwrite(ctx, original)
	if err != nil {
		return SaveTarget{}, err
	}
	if overwrite {
		return SaveTarget{Path: original}, nil
	}

	dst, err := p.ChooseCopyPath(ctx, original)
	if err != nil {
		return SaveTarget{}, err
	}
	if dst == "" {
		return SaveTarget{}, ErrCancelled
	}
	if samePath(original, dst) {
		return SaveTarget{Path: original}, nil
	}

	if err := CopyFile(original, dst); err != nil {
		return SaveTarget{}, fmt.Errorf("%w: %v", ErrCopyFailed, err)
	}
	return SaveTarget{Path: dst, Copy: true}, nil
}

// CopyFile duplicates src to dst byte for byte, keeping the file mode
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
