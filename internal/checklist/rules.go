package checklist

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Category int

const (
	Servers Category = iota
	TrendStorage
	CPU
	Memory
	AllLicenses
)

func (c Category) String() string {
	switch c {
	case Servers:
		return "Servers"
	case TrendStorage:
		return "TrendStorage"
	case CPU:
		return "CPU"
	case Memory:
		return "Memory"
	case AllLicenses:
		return "AllLicenses"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Layout is the fixed cell and control schema of the checklist template
type Layout struct {
	SheetBase string
	Capacity  float64
	Threshold float64

	ServersCell     string
	ServersCheckbox string

	TrendStorageCell      string
	TrendStoragePrimary   string
	TrendStorageSecondary string

	CPUMemoryCell      string
	CPUMemoryPrimary   string
	CPUMemorySecondary string

	LicensesCheckbox string
}

func DefaultLayout() Layout {
	return Layout{
		SheetBase:             "Checklist Regelkast",
		Capacity:              10_000_000,
		Threshold:             80,
		ServersCell:           "F8",
		ServersCheckbox:       "CheckBox_C8",
		TrendStorageCell:      "J36",
		TrendStoragePrimary:   "CheckBox_C36",
		TrendStorageSecondary: "CheckBox_E36",
		CPUMemoryCell:         "J39",
		CPUMemoryPrimary:      "CheckBox_C39",
		CPUMemorySecondary:    "CheckBox_E39",
		LicensesCheckbox:      "CheckBox_C35",
	}
}

// SheetRef names the checklist sheet for line index i
func SheetRef(base string, i int) string {
	if i == 0 {
		return base
	}
	return fmt.Sprintf("%s (%d)", base, i+1)
}

// Value is what one input line turns into on its sheet
type Value struct {
	Text     string
	Exceeded bool
}

// Rule is one category expressed as data for the generic write loop.
// A Rule with Sweep set has no lines: it visits sheets until one is missing.
type Rule struct {
	Name     string
	Category Category
	Cell     string
	Count    int
	Sweep    bool
	Value    func(i int) Value
	Always   []string
	OnExceed []string
}

// Rules builds the rules for every active section of in, in write order
func Rules(in Input, l Layout) []Rule {
	var rules []Rule

	if servers := in.Servers.Active(); len(servers) > 0 {
		rules = append(rules, Rule{
			Name:     "Servers",
			Category: Servers,
			Cell:     l.ServersCell,
			Count:    len(servers),
			Value: func(i int) Value {
				return Value{Text: servers[i]}
			},
			Always: nonEmpty(l.ServersCheckbox),
		})
	}

	if trend := in.TrendStorage.Active(); len(trend) > 0 {
		rules = append(rules, Rule{
			Name:     "TrendStorage",
			Category: TrendStorage,
			Cell:     l.TrendStorageCell,
			Count:    len(trend),
			Value: func(i int) Value {
				text, percent := TrendStorageValue(trend[i], l.Capacity)
				return Value{Text: text, Exceeded: percent >= l.Threshold}
			},
			Always:   nonEmpty(l.TrendStoragePrimary),
			OnExceed: nonEmpty(l.TrendStorageSecondary),
		})
	}

	cpu, memory := in.CPU.Active(), in.Memory.Active()
	if n := max(len(cpu), len(memory)); n > 0 {
		rules = append(rules, Rule{
			Name:     "CPU/Memory",
			Category: CPU,
			Cell:     l.CPUMemoryCell,
			Count:    n,
			Value: func(i int) Value {
				text, c, m := CPUMemoryValue(lineAt(cpu, i), lineAt(memory, i))
				return Value{Text: text, Exceeded: c > l.Threshold || m > l.Threshold}
			},
			Always:   nonEmpty(l.CPUMemoryPrimary),
			OnExceed: nonEmpty(l.CPUMemorySecondary),
		})
	}

	if in.AllLicenses {
		rules = append(rules, Rule{
			Name:     "AllLicenses",
			Category: AllLicenses,
			Sweep:    true,
			Value:    func(int) Value { return Value{} },
			Always:   nonEmpty(l.LicensesCheckbox),
		})
	}

	return rules
}

// TrendStorageValue renders a storage figure such as "1.234.567,89" against
// capacity. Separators are stripped from the displayed figure, the comma is
// read as the decimal mark for the percentage.
func TrendStorageValue(line string, capacity float64) (string, float64) {
	line = strings.TrimSpace(line)
	noDots := strings.ReplaceAll(line, ".", "")
	cleaned := strings.ReplaceAll(noDots, ",", "")

	numeric, err := strconv.ParseFloat(strings.ReplaceAll(noDots, ",", "."), 64)
	if err != nil || math.IsNaN(numeric) || math.IsInf(numeric, 0) {
		numeric = 0
	}

	var percent float64
	if capacity > 0 {
		percent = numeric / capacity * 100
	}

	capacityText := strconv.FormatFloat(capacity, 'f', -1, 64)
	return fmt.Sprintf("%s van %s - %d%%", cleaned, capacityText, int(math.RoundToEven(percent))), percent
}

// CPUMemoryValue renders the combined CPU and memory usage cell
func CPUMemoryValue(cpu, memory string) (string, float64, float64) {
	c := parsePercent(cpu)
	m := parsePercent(memory)
	return fmt.Sprintf("CPU: %.2f %% Memory: %.2f %%", c, m), c, m
}

// parsePercent accepts "85", "85%", "85,5" and yields 0 for anything else
func parsePercent(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}

func nonEmpty(names ...string) []string {
	var out []string
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
