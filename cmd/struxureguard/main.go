package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"struxureguard/internal/checklist"
	"struxureguard/internal/config"
	"struxureguard/internal/excel"
	"struxureguard/internal/logger"

	"github.com/spf13/cobra"
)

// app holds what every command shares once the root has loaded it
type app struct {
	configPath string
	cfg        *config.Config
	sink       *logger.Sink
	log        *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	root, a := newRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "struxureguard",
		Short: "Fill StruxureGuard maintenance checklists",
		Long: `Tools for the building-automation maintenance checklist workbook.

Commands:
  write    Write servers, trend storage and CPU/memory lines into the checklist sheets
  tui      Interactive form for the same run (default)
  inspect  List checklist sheets, watched cells and checkboxes
  report   Export, import or prefill the report metadata XML
  mkdir    Create one folder per name, optionally with a template copy

Run without arguments to start the interactive form.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd, args)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "configs/config.toml", "Path to the TOML configuration file")

	root.AddCommand(
		newWriteCmd(a),
		newTUICmd(a),
		newInspectCmd(a),
		newReportCmd(a),
		newMkdirCmd(a),
	)
	return root, a
}

func (a *app) load() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	sink, err := logger.New(logger.Options{
		Directory: cfg.Log.Directory,
		File:      cfg.Log.File,
		Level:     cfg.Log.Level,
		Buffer:    cfg.Log.Buffer,
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.sink = sink
	a.log = sink.Logger()
	a.log.Debug("Configuration loaded", "path", a.configPath)
	return nil
}

func (a *app) close() {
	if a.sink != nil {
		a.sink.Close()
		a.sink = nil
	}
}

// writer builds a checklist writer answering save-target questions through p
func (a *app) writer(p checklist.Prompter) *checklist.Writer {
	return &checklist.Writer{
		Open:   excel.Opener(a.cfg.Checkboxes),
		Prompt: p,
		Layout: layoutFromConfig(a.cfg),
		Log:    a.log,
	}
}

func layoutFromConfig(cfg *config.Config) checklist.Layout {
	c := cfg.Checklist
	return checklist.Layout{
		SheetBase:             c.SheetBase,
		Capacity:              c.StorageCapacity,
		Threshold:             c.ThresholdPercent,
		ServersCell:           c.ServersCell,
		ServersCheckbox:       c.ServersCheckbox,
		TrendStorageCell:      c.TrendStorageCell,
		TrendStoragePrimary:   c.TrendStoragePrimary,
		TrendStorageSecondary: c.TrendStorageSecondary,
		CPUMemoryCell:         c.CPUMemoryCell,
		CPUMemoryPrimary:      c.CPUMemoryPrimary,
		CPUMemorySecondary:    c.CPUMemorySecondary,
		LicensesCheckbox:      c.LicensesCheckbox,
	}
}

// watchedCells are the cells the writer fills, shown by inspect
func watchedCells(cfg *config.Config) []string {
	c := cfg.Checklist
	return []string{c.ServersCell, c.TrendStorageCell, c.CPUMemoryCell}
}
