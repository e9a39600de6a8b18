package main

import (
	"fmt"
	"os"

	"struxureguard/internal/excel"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect PATH",
		Short: "List checklist sheets, watched cells and checkboxes",
		Long: `Show what the writer would see in a workbook: every checklist sheet,
the current value of the cells it fills and the state of each checkbox.

PATH may be a workbook or a directory, which is searched for .xlsx and .xlsm files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInspect(cmd, args[0])
		},
	}
}

func (a *app) runInspect(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = excel.FindWorkbooks(path)
		if err != nil {
			return fmt.Errorf("failed to search %s: %w", path, err)
		}
		if len(files) == 0 {
			fmt.Fprintf(out, "No workbooks found in directory: %s\n", path)
			return nil
		}
	}

	type inspection struct {
		summaries []excel.SheetSummary
		err       error
	}
	cells := watchedCells(a.cfg)
	results := make([]inspection, len(files))

	var g errgroup.Group
	g.SetLimit(4)
	for i, file := range files {
		g.Go(func() error {
			summaries, err := excel.InspectWorkbook(file, a.cfg.Checklist.SheetBase, cells)
			results[i] = inspection{summaries: summaries, err: err}
			return nil
		})
	}
	g.Wait()

	for i, file := range files {
		if err := results[i].err; err != nil {
			a.log.Error("Failed to inspect workbook", "path", file, "error", err)
			fmt.Fprintf(out, "%s: %v\n", file, err)
			continue
		}
		a.log.Info("Inspected workbook", "path", file, "sheets", len(results[i].summaries))
		excel.PrintSummaries(out, file, results[i].summaries, cells)
	}
	return nil
}
