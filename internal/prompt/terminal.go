package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Terminal asks the save-target questions on a line-oriented console
type Terminal struct {
	In  *bufio.Reader
	Out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{In: bufio.NewReader(in), Out: out}
}

func (t *Terminal) ConfirmOverwrite(ctx context.Context, original string) (bool, error) {
	fmt.Fprintf(t.Out, "Do you want to update the original template?\n  %s\n", original)
	fmt.Fprint(t.Out, "Yes: overwrite original / No: create a new edited copy [y/n]: ")

	for {
		line, err := t.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "y", "yes", "j", "ja":
			return true, nil
		case "n", "no", "nee":
			return false, nil
		}
		fmt.Fprint(t.Out, "Please answer y or n: ")
	}
}

func (t *Terminal) ChooseCopyPath(ctx context.Context, original string) (string, error) {
	suggestion := DefaultCopyPath(original, time.Now())
	fmt.Fprintf(t.Out, "Save copy as [%s] (type 'cancel' to abort): ", suggestion)

	line, err := t.readLine(ctx)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(line) {
	case "":
		return suggestion, nil
	case "cancel", "c":
		return "", nil
	}
	return line, nil
}

func (t *Terminal) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := t.In.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// DefaultCopyPath suggests "<base>_edited_<timestamp><ext>" next to original
func DefaultCopyPath(original string, now time.Time) string {
	ext := filepath.Ext(original)
	base := strings.TrimSuffix(original, ext)
	return fmt.Sprintf("%s_edited_%s%s", base, now.Format("20060102_150405"), ext)
}

// Fixed answers both questions without asking, for non-interactive runs
type Fixed struct {
	Overwrite bool
	CopyPath  string
}

func (f Fixed) ConfirmOverwrite(context.Context, string) (bool, error) {
	return f.Overwrite, nil
}

func (f Fixed) ChooseCopyPath(context.Context, string) (string, error) {
	return f.CopyPath, nil
}
