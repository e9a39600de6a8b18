package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Source is the part of a workbook prefill reads from
type Source interface {
	HasSheet(name string) bool
	ReadColumnValues(sheet, column string) ([]string, error)
	GetCellValue(sheet, cell string) (string, error)
}

// Match is a suggested label to field mapping
type Match struct {
	Label      string
	Field      string
	Confidence float64
}

// Matcher suggests form fields for labels the dictionary does not know
type Matcher interface {
	Match(ctx context.Context, labels, fields []string) ([]Match, error)
}

// PrefillOptions controls where Prefill looks for values
type PrefillOptions struct {
	DataSheet string
	// Dropdowns maps a field label to the cell on DataSheet holding its choice
	Dropdowns     map[string]string
	Matcher       Matcher
	MinConfidence float64
	Log           *slog.Logger
}

// PrefillResult holds the values found and the labels that stayed unmatched
type PrefillResult struct {
	Values    Values
	Unmatched []string
}

// Prefill reads label/value pairs from columns A and B of the data sheet and
// maps them onto form fields. Dropdown cells override the mapped values.
func Prefill(ctx context.Context, src Source, opts PrefillOptions) (PrefillResult, error) {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if !src.HasSheet(opts.DataSheet) {
		return PrefillResult{}, fmt.Errorf("sheet %q not found", opts.DataSheet)
	}

	labels, err := src.ReadColumnValues(opts.DataSheet, "A")
	if err != nil {
		return PrefillResult{}, fmt.Errorf("failed to read labels: %w", err)
	}
	data, err := src.ReadColumnValues(opts.DataSheet, "B")
	if err != nil {
		return PrefillResult{}, fmt.Errorf("failed to read values: %w", err)
	}

	res := PrefillResult{Values: Values{}}
	pending := map[string]string{}
	for i, label := range labels {
		label = strings.TrimSpace(label)
		value := ""
		if i < len(data) {
			value = strings.TrimSpace(data[i])
		}
		if label == "" || value == "" {
			continue
		}
		if field, ok := matchLabel(label); ok {
			if _, seen := res.Values[field]; !seen {
				res.Values[field] = value
			}
			continue
		}
		if _, seen := pending[label]; !seen {
			res.Unmatched = append(res.Unmatched, label)
		}
		pending[label] = value
	}
	log.Info("Dictionary prefill done", "matched", len(res.Values), "unmatched", len(res.Unmatched))

	if opts.Matcher != nil && len(res.Unmatched) > 0 {
		res.Unmatched = applyMatches(ctx, opts, res, pending, log)
	}

	for field, cell := range opts.Dropdowns {
		if _, ok := Lookup(field); !ok {
			log.Warn("Dropdown for unknown field ignored", "field", field)
			continue
		}
		v, err := src.GetCellValue(opts.DataSheet, cell)
		if err != nil {
			return res, fmt.Errorf("failed to read %s!%s: %w", opts.DataSheet, cell, err)
		}
		if v = strings.TrimSpace(v); v != "" {
			res.Values[field] = v
		}
	}
	return res, nil
}

// applyMatches fills fields from matcher suggestions and returns the labels
// that are still unmatched. A matcher failure leaves the dictionary result.
func applyMatches(ctx context.Context, opts PrefillOptions, res PrefillResult, pending map[string]string, log *slog.Logger) []string {
	var free []string
	for _, f := range Fields {
		if _, ok := res.Values[f.Label]; !ok {
			free = append(free, f.Label)
		}
	}
	if len(free) == 0 {
		return res.Unmatched
	}

	matches, err := opts.Matcher.Match(ctx, res.Unmatched, free)
	if err != nil {
		log.Warn("Label matcher failed", "error", err)
		return res.Unmatched
	}

	used := map[string]bool{}
	for _, m := range matches {
		value, ok := pending[m.Label]
		if !ok || m.Confidence < opts.MinConfidence {
			continue
		}
		if _, known := Lookup(m.Field); !known {
			continue
		}
		if _, taken := res.Values[m.Field]; taken {
			continue
		}
		res.Values[m.Field] = value
		used[m.Label] = true
		log.Debug("Matcher mapped label", "label", m.Label, "field", m.Field, "confidence", m.Confidence)
	}

	var left []string
	for _, label := range res.Unmatched {
		if !used[label] {
			left = append(left, label)
		}
	}
	return left
}
