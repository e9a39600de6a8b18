package main

import (
	"context"

	"struxureguard/internal/checklist"
	"struxureguard/internal/tui"

	"github.com/spf13/cobra"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [WORKBOOK]",
		Short: "Interactive checklist form",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runTUI,
	}
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	a.log.Info("Starting interactive form", "path", path)

	return tui.Run(tui.Options{
		Path: path,
		Run: func(ctx context.Context, p checklist.Prompter, in checklist.Input) (*checklist.Result, error) {
			return a.writer(p).Run(ctx, in)
		},
		Sink:     a.sink,
		LogLines: 8,
	})
}
