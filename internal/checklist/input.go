package checklist

import "strings"

// Section is one multi-line text field together with its toggle
type Section struct {
	Enabled bool
	Lines   []string
}

// Active returns the lines to write, or nil when the section is switched off
func (s Section) Active() []string {
	if !s.Enabled {
		return nil
	}
	return s.Lines
}

// Input is everything one run needs from the interactive surface
type Input struct {
	Path     string
	Password string

	Servers      Section
	TrendStorage Section
	CPU          Section
	Memory       Section

	// AllLicenses marks the licenses checkbox on every checklist sheet
	AllLicenses bool
}

// Empty reports whether the run has nothing to write at all
func (in Input) Empty() bool {
	return len(in.Servers.Active()) == 0 &&
		len(in.TrendStorage.Active()) == 0 &&
		len(in.CPU.Active()) == 0 &&
		len(in.Memory.Active()) == 0 &&
		!in.AllLicenses
}

// SplitLines turns pasted text into trimmed, non-empty lines
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
