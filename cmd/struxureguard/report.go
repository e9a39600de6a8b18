package main

import (
	"fmt"
	"slices"
	"strings"

	"struxureguard/internal/excel"
	"struxureguard/internal/report"

	"github.com/spf13/cobra"
)

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report metadata commands",
		Long: `Work with the report metadata stored as <Rapportage><Veld naam="...">value</Veld></Rapportage>.

Commands:
  export   Write an XML file from --set values and an optional base file
  import   Read an XML file and print its fields
  prefill  Read the Gegevens sheet of a workbook and map it onto the report fields`,
	}
	cmd.AddCommand(newReportExportCmd(a), newReportImportCmd(a), newReportPrefillCmd(a))
	return cmd
}

func newReportExportCmd(a *app) *cobra.Command {
	var from string
	var sets []string
	cmd := &cobra.Command{
		Use:   "export OUT.xml",
		Short: "Write report metadata to XML",
		Example: `  struxureguard report export rapportage.xml --set "Klantnaam:=Gemeente Utrecht" --set "Contractniveau:=Totaal"
  struxureguard report export nieuw.xml --from oud.xml --set "Contractjaar:=2025"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := report.Values{}
			if from != "" {
				base, unknown, err := report.ImportFile(from)
				if err != nil {
					return err
				}
				warnUnknown(cmd, a, unknown)
				values = base
			}

			for _, s := range sets {
				label, value, ok := strings.Cut(s, "=")
				if !ok {
					return fmt.Errorf("invalid --set %q, expected label=value", s)
				}
				if err := setField(values, strings.TrimSpace(label), strings.TrimSpace(value)); err != nil {
					return err
				}
			}

			if err := report.ExportFile(args[0], values); err != nil {
				a.log.Error("Failed to export report", "path", args[0], "error", err)
				return err
			}
			a.log.Info("Report exported", "path", args[0], "fields", len(values))
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Report saved to: %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Start from the values of an existing XML file")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field value as label=value, may be repeated")
	return cmd
}

// setField validates label and, for dropdown fields, value
func setField(values report.Values, label, value string) error {
	field, ok := report.Lookup(label)
	if !ok {
		return fmt.Errorf("unknown report field %q", label)
	}
	if len(field.Choices) > 0 && value != "" && !slices.Contains(field.Choices, value) {
		return fmt.Errorf("invalid value %q for %s, choose one of: %s", value, label, strings.Join(field.Choices, ", "))
	}
	values[label] = value
	return nil
}

func newReportImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE.xml",
		Short: "Print the fields of a report metadata file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, unknown, err := report.ImportFile(args[0])
			if err != nil {
				a.log.Error("Failed to import report", "path", args[0], "error", err)
				return err
			}
			warnUnknown(cmd, a, unknown)
			a.log.Info("Report imported", "path", args[0], "fields", len(values))
			report.Print(cmd.OutOrStdout(), values)
			return nil
		},
	}
}

func newReportPrefillCmd(a *app) *cobra.Command {
	var output string
	var useAI bool
	cmd := &cobra.Command{
		Use:   "prefill WORKBOOK",
		Short: "Fill report fields from the Gegevens sheet",
		Long: `Read label/value pairs from columns A and B of the data sheet, map the labels
onto the report fields and read the dropdown fields from their configured cells.

With --ai (or [ai] enabled = true) labels the built-in dictionary does not know
are sent to Gemini; GEMINI_API_KEY must be set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			editor, err := excel.OpenFile(args[0], nil)
			if err != nil {
				return err
			}
			defer editor.Close()

			opts := report.PrefillOptions{
				DataSheet:     a.cfg.Report.DataSheet,
				Dropdowns:     a.cfg.Report.Dropdowns,
				MinConfidence: a.cfg.AI.MinConfidence,
				Log:           a.log,
			}
			if useAI || a.cfg.AI.Enabled {
				matcher, err := a.aiMatcher(cmd)
				if err != nil {
					fmt.Fprintf(out, "AI matching disabled: %v\n", err)
				} else {
					defer matcher.Close()
					opts.Matcher = matcher
				}
			}

			res, err := report.Prefill(cmd.Context(), editor, opts)
			if err != nil {
				a.log.Error("Prefill failed", "path", args[0], "error", err)
				return err
			}

			report.Print(out, res.Values)
			if len(res.Unmatched) > 0 {
				fmt.Fprintf(out, "\nUnmatched labels: %s\n", strings.Join(res.Unmatched, ", "))
			}

			if output != "" {
				if err := report.ExportFile(output, res.Values); err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Report saved to: %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Also write the result as XML")
	cmd.Flags().BoolVar(&useAI, "ai", false, "Match unknown labels with Gemini")
	return cmd
}

func (a *app) aiMatcher(cmd *cobra.Command) (*report.AIMatcher, error) {
	key := report.GetGeminiAPIKey()
	if key == "" {
		a.log.Warn("GEMINI_API_KEY environment variable not set")
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	return report.NewAIMatcher(cmd.Context(), key, a.cfg.AI.Model, a.log)
}

func warnUnknown(cmd *cobra.Command, a *app, unknown []string) {
	for _, name := range unknown {
		a.log.Warn("Ignoring unknown report field", "field", name)
		fmt.Fprintf(cmd.ErrOrStderr(), "ignoring unknown field %q\n", name)
	}
}
