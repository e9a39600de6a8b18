package main

import (
	"fmt"

	"struxureguard/internal/folders"

	"github.com/spf13/cobra"
)

func newMkdirCmd(a *app) *cobra.Command {
	var namesFrom, template string
	cmd := &cobra.Command{
		Use:   "mkdir BASE",
		Short: "Create one folder per name below BASE",
		Long: `Create one folder per line of --names below BASE. With --copy the given file
is copied into every folder, renamed after the folder.

Example:
  struxureguard mkdir projecten --names gebouwen.txt --copy checklist.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			text, err := readText(namesFrom, cmd.InOrStdin())
			if err != nil {
				return err
			}

			batch := folders.Batch{Base: args[0], Names: folders.ParseNames(text), Template: template}
			created, err := folders.Create(cmd.Context(), batch, func(done, total int) {
				fmt.Fprintf(out, "\rCreating folders %d/%d", done, total)
			}, a.log)
			if len(created) > 0 {
				fmt.Fprintln(out)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "✓ Created %d folders in %s\n", len(created), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&namesFrom, "names", "-", "File with one folder name per line, - for stdin")
	cmd.Flags().StringVar(&template, "copy", "", "File to copy into every folder")
	return cmd
}
