package excel

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SheetSummary is what the inspector reports for one checklist sheet
type SheetSummary struct {
	Name       string
	CheckBoxes []CheckBox
	Cells      map[string]string
}

// InspectWorkbook lists the checklist sheets of a workbook together with
// their checkbox controls and the current value of each watched cell.
func InspectWorkbook(path, sheetBase string, cells []string) ([]SheetSummary, error) {
	editor, err := OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	defer editor.Close()

	var summaries []SheetSummary
	for _, sheetName := range editor.GetSheetNames() {
		if !strings.HasPrefix(sheetName, sheetBase) {
			continue
		}

		boxes, err := editor.CheckBoxes(sheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect sheet %s: %w", sheetName, err)
		}

		values := make(map[string]string, len(cells))
		for _, cell := range cells {
			v, err := editor.GetCellValue(sheetName, cell)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s!%s: %w", sheetName, cell, err)
			}
			values[cell] = v
		}

		summaries = append(summaries, SheetSummary{
			Name:       sheetName,
			CheckBoxes: boxes,
			Cells:      values,
		})
	}
	return summaries, nil
}

// PrintSummaries writes a human readable report of the inspected sheets
func PrintSummaries(w io.Writer, path string, summaries []SheetSummary, cells []string) {
	fmt.Fprintf(w, "%s\n", filepath.Base(path))
	if len(summaries) == 0 {
		fmt.Fprintln(w, "  no checklist sheets found")
		return
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "  - %s\n", s.Name)
		for _, cell := range cells {
			if v := s.Cells[cell]; v != "" {
				fmt.Fprintf(w, "      %-4s %s\n", cell, v)
			}
		}
		for _, cb := range s.CheckBoxes {
			mark := " "
			if cb.Checked {
				mark = "x"
			}
			label := cb.Text
			if cb.Name != "" {
				label = cb.Name
			}
			fmt.Fprintf(w, "      [%s] %s %s\n", mark, cb.Cell, label)
		}
	}
}

// FindWorkbooks returns all .xlsx and .xlsm files below dir
func FindWorkbooks(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !info.IsDir() && (ext == ".xlsx" || ext == ".xlsm") && !strings.HasPrefix(info.Name(), "~$") {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}
