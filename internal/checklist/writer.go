package checklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Workbook is an open spreadsheet document. A Workbook is owned by a single
// goroutine for the duration of one run and must be closed on every path.
type Workbook interface {
	HasSheet(name string) bool
	SetCellValue(sheet, cell string, value any) error
	// UnprotectSheet reports whether the sheet was protected
	UnprotectSheet(sheet, password string) (bool, error)
	ProtectSheet(sheet, password string) error
	SetCheckBox(sheet, name string, checked bool) error
	Save() error
	Close() error
}

// Opener opens the workbook at path
type Opener func(path string) (Workbook, error)

// Result summarises a finished run
type Result struct {
	RunID   string
	Path    string
	Copy    bool
	Warning bool
	// Checked lists "sheet:checkbox" for every checkbox that was set
	Checked []string
	// Skipped lists sheets that were expected but missing
	Skipped []string
}

// Message is the text shown to the user after a successful run
func (r *Result) Message() string {
	msg := "Successfully wrote data to the Excel file:\n" + r.Path
	if r.Warning {
		msg += "\n\nWARNING: Some values exceeded the threshold, check highlighted checkboxes."
	}
	return msg
}

type Writer struct {
	Open   Opener
	Prompt Prompter
	Layout Layout
	Log    *slog.Logger
}

// Run validates in, decides the save target, writes every active category
// into the workbook and saves it. The workbook is closed on every path.
func (w *Writer) Run(ctx context.Context, in Input) (*Result, error) {
	log := w.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	runID := uuid.NewString()
	log = log.With("run", runID)

	info, err := os.Stat(in.Path)
	if in.Path == "" || err != nil || info.IsDir() {
		log.Error("Invalid workbook path", "path", in.Path)
		return nil, ErrInvalidPath
	}
	if in.Empty() {
		log.Error("Nothing selected to write")
		return nil, ErrNothingSelected
	}

	log.Debug("Run input",
		"servers", in.Servers.Active(),
		"trend_storage", in.TrendStorage.Active(),
		"cpu", in.CPU.Active(),
		"memory", in.Memory.Active(),
		"all_licenses", in.AllLicenses)

	target, err := ResolveTarget(ctx, w.Prompt, in.Path)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			log.Info("Save cancelled by user")
		} else {
			log.Error("Failed to resolve save target", "error", err)
		}
		return nil, err
	}
	if target.Copy {
		log.Info("Copied template to new file", "path", target.Path)
	}

	result := &Result{RunID: runID, Path: target.Path, Copy: target.Copy}
	if err := w.write(log, target, in, result); err != nil {
		if target.Copy {
			if rmErr := os.Remove(target.Path); rmErr != nil {
				log.Warn("Failed to remove unsaved copy", "path", target.Path, "error", rmErr)
			}
		}
		return nil, err
	}

	log.Info("Run completed", "path", result.Path, "warning", result.Warning, "checked", len(result.Checked), "skipped", len(result.Skipped))
	return result, nil
}

func (w *Writer) write(log *slog.Logger, target SaveTarget, in Input, result *Result) error {
	wb, err := w.Open(target.Path)
	if err != nil {
		log.Error("Failed to open workbook", "path", target.Path, "error", err)
		return fmt.Errorf("%w: %v", ErrOpen, err)
	}
	defer func() {
		if err := wb.Close(); err != nil {
			log.Warn("Failed to close workbook", "error", err)
		}
	}()

	for _, rule := range Rules(in, w.Layout) {
		if err := w.apply(log, wb, rule, in.Password, result); err != nil {
			log.Error("Aborting run, workbook not saved", "error", err)
			return err
		}
	}

	if err := wb.Save(); err != nil {
		log.Error("Failed to save workbook", "path", target.Path, "error", err)
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	return nil
}

// apply runs the generic per-sheet loop for one rule. Only an unprotect
// failure is returned; everything else is logged and skipped.
func (w *Writer) apply(log *slog.Logger, wb Workbook, rule Rule, password string, result *Result) error {
	log = log.With("category", rule.Name)
	log.Debug("Processing category", "lines", rule.Count, "sweep", rule.Sweep)

	for i := 0; rule.Sweep || i < rule.Count; i++ {
		sheet := SheetRef(w.Layout.SheetBase, i)
		if !wb.HasSheet(sheet) {
			if rule.Sweep {
				break
			}
			log.Warn("Sheet not found, line skipped", "sheet", sheet, "line", i+1)
			result.Skipped = append(result.Skipped, sheet)
			continue
		}

		protected, err := wb.UnprotectSheet(sheet, password)
		if err != nil {
			return &UnprotectError{Sheet: sheet, Err: err}
		}

		value := rule.Value(i)
		if value.Exceeded {
			result.Warning = true
		}
		w.fill(log, wb, rule, value, sheet, result)

		if !protected {
			continue
		}
		if err := wb.ProtectSheet(sheet, password); err != nil {
			log.Warn("Failed to protect sheet", "sheet", sheet, "error", err)
		}
	}
	return nil
}

// fill writes the cell and checkboxes of one sheet. The caller protects a
// previously protected sheet again afterwards, so a panic here is logged instead of propagated.
func (w *Writer) fill(log *slog.Logger, wb Workbook, rule Rule, value Value, sheet string, result *Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Unexpected failure while writing sheet", "sheet", sheet, "panic", r)
		}
	}()

	if rule.Cell != "" {
		log.Info("Writing cell", "sheet", sheet, "cell", rule.Cell, "value", value.Text)
		if err := wb.SetCellValue(sheet, rule.Cell, value.Text); err != nil {
			log.Error("Failed to write cell", "sheet", sheet, "cell", rule.Cell, "error", err)
		}
	}

	boxes := rule.Always
	if value.Exceeded {
		log.Warn("Threshold exceeded", "sheet", sheet, "value", value.Text)
		boxes = append(append([]string{}, rule.Always...), rule.OnExceed...)
	}
	for _, name := range boxes {
		if err := wb.SetCheckBox(sheet, name, true); err != nil {
			log.Warn("Could not set checkbox", "sheet", sheet, "checkbox", name, "error", err)
			continue
		}
		log.Info("Checked checkbox", "sheet", sheet, "checkbox", name)
		result.Checked = append(result.Checked, sheet+":"+name)
	}
}
