package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"struxureguard/internal/checklist"
	"struxureguard/internal/prompt"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errStdinShared is returned when a category would consume the input that
// a later question still needs
var errStdinShared = errors.New("stdin is already used by a category")

type writeFlags struct {
	servers        string
	trendStorage   string
	cpu            string
	memory         string
	allLicenses    bool
	password       string
	passwordPrompt bool
	yes            bool
	copyTo         string
}

func newWriteCmd(a *app) *cobra.Command {
	f := &writeFlags{}
	cmd := &cobra.Command{
		Use:   "write WORKBOOK",
		Short: "Write checklist lines into the workbook",
		Long: `Write one value per line into consecutive checklist sheets.

Each category flag takes a file with one line per sheet, or - for stdin.
Line 1 goes to "Checklist Regelkast", line 2 to "Checklist Regelkast (2)" and so on.

Before anything is written you choose between overwriting the workbook and
saving into a copy; --yes and --copy-to answer that question up front. A
category read from stdin needs one of them.

Examples:
  struxureguard write rapportage.xlsx --servers servers.txt --yes
  struxureguard write rapportage.xlsx --trend-storage - --copy-to kopie.xlsx --password geheim
  struxureguard write rapportage.xlsx --cpu cpu.txt --password-prompt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWrite(cmd, args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.servers, "servers", "", "File with one server name per sheet")
	flags.StringVar(&f.trendStorage, "trend-storage", "", "File with one trend storage value per sheet")
	flags.StringVar(&f.cpu, "cpu", "", "File with one CPU percentage per sheet")
	flags.StringVar(&f.memory, "memory", "", "File with one memory percentage per sheet")
	flags.BoolVar(&f.allLicenses, "all-licenses", false, "Tick the licenses checkbox on every checklist sheet")
	flags.StringVar(&f.password, "password", "", "Sheet protection password")
	flags.BoolVar(&f.passwordPrompt, "password-prompt", false, "Ask for the sheet password without echo")
	flags.BoolVarP(&f.yes, "yes", "y", false, "Overwrite the workbook without asking")
	flags.StringVar(&f.copyTo, "copy-to", "", "Save into a copy at this path instead of overwriting")
	cmd.MarkFlagsMutuallyExclusive("yes", "copy-to")
	cmd.MarkFlagsMutuallyExclusive("password", "password-prompt")
	return cmd
}

func (a *app) runWrite(cmd *cobra.Command, path string, f *writeFlags) error {
	out := cmd.OutOrStdout()
	stdin := bufio.NewReader(cmd.InOrStdin())

	in := checklist.Input{Path: path, AllLicenses: f.allLicenses}
	sections := []struct {
		source string
		target *checklist.Section
	}{
		{f.servers, &in.Servers},
		{f.trendStorage, &in.TrendStorage},
		{f.cpu, &in.CPU},
		{f.memory, &in.Memory},
	}

	fromStdin := 0
	for _, s := range sections {
		if s.source == "-" {
			fromStdin++
		}
	}
	switch {
	case fromStdin > 1:
		return fmt.Errorf("only one category can be read from stdin")
	case fromStdin == 1 && !f.yes && f.copyTo == "":
		return fmt.Errorf("%w: pass --yes or --copy-to to answer the overwrite question", errStdinShared)
	case fromStdin == 1 && f.passwordPrompt && !isTerminal(cmd.InOrStdin()):
		return fmt.Errorf("%w: pass the password with --password", errStdinShared)
	}

	for _, s := range sections {
		if s.source == "" {
			continue
		}
		lines, err := readLines(s.source, stdin)
		if err != nil {
			return err
		}
		*s.target = checklist.Section{Enabled: true, Lines: lines}
	}

	in.Password = f.password
	if f.passwordPrompt {
		pw, err := readPassword(cmd.InOrStdin(), stdin, out)
		if err != nil {
			return err
		}
		in.Password = pw
	}

	var p checklist.Prompter
	switch {
	case f.yes:
		p = prompt.Fixed{Overwrite: true}
	case f.copyTo != "":
		p = prompt.Fixed{CopyPath: f.copyTo}
	default:
		p = prompt.NewTerminal(stdin, out)
	}

	res, err := a.writer(p).Run(cmd.Context(), in)
	if errors.Is(err, checklist.ErrCancelled) {
		fmt.Fprintln(out, "Operation cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ %s\n", res.Message())
	for _, sheet := range res.Skipped {
		fmt.Fprintf(out, "  skipped missing sheet %s\n", sheet)
	}
	return nil
}

// readText reads a whole file, or stdin for "-"
func readText(source string, stdin io.Reader) (string, error) {
	var data []byte
	var err error
	if source == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", source, err)
	}
	return string(data), nil
}

// readLines reads one entry per line
func readLines(source string, stdin io.Reader) ([]string, error) {
	text, err := readText(source, stdin)
	if err != nil {
		return nil, err
	}
	return checklist.SplitLines(text), nil
}

func isTerminal(r io.Reader) bool {
	file, ok := r.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// readPassword reads without echo on a terminal and falls back to a plain
// line when input is piped
func readPassword(raw io.Reader, buffered *bufio.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")
	if isTerminal(raw) {
		pw, err := term.ReadPassword(int(raw.(*os.File).Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := buffered.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
