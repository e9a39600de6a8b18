package excel

import (
	"fmt"
	"strings"

	"struxureguard/internal/checklist"

	"github.com/xuri/excelize/v2"
)

// Editor is an open workbook. It satisfies checklist.Workbook.
type Editor struct {
	file     *excelize.File
	filepath string
	// checkboxes maps control names the workbook does not know to their anchor cell
	checkboxes map[string]string
	parts      map[string]*sheetPart
	// restore holds the password each unprotected sheet gets back
	restore map[string]string
}

// OpenFile opens an existing Excel file
func OpenFile(filepath string, checkboxes map[string]string) (*Editor, error) {
	file, err := excelize.OpenFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	parts, err := readPackage(filepath)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read workbook package: %w", err)
	}
	return &Editor{
		file:       file,
		filepath:   filepath,
		checkboxes: checkboxes,
		parts:      parts,
		restore:    make(map[string]string),
	}, nil
}

// Opener returns a checklist.Opener backed by excelize
func Opener(checkboxes map[string]string) checklist.Opener {
	return func(path string) (checklist.Workbook, error) {
		return OpenFile(path, checkboxes)
	}
}

// GetSheetNames returns all sheet names in the workbook
func (e *Editor) GetSheetNames() []string {
	return e.file.GetSheetList()
}

// HasSheet reports whether a sheet with this exact name exists
func (e *Editor) HasSheet(name string) bool {
	idx, err := e.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// SetCellValue sets a value in a specific cell
func (e *Editor) SetCellValue(sheet, cell string, value any) error {
	return e.file.SetCellValue(sheet, cell, value)
}

// GetCellValue returns the value in a specific cell
func (e *Editor) GetCellValue(sheet, cell string) (string, error) {
	return e.file.GetCellValue(sheet, cell)
}

// GetAllRows returns all rows from a sheet
func (e *Editor) GetAllRows(sheet string) ([][]string, error) {
	return e.file.GetRows(sheet)
}

// ReadColumnValues reads all values from a specific column
func (e *Editor) ReadColumnValues(sheet, column string) ([]string, error) {
	rows, err := e.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	var columnValues []string
	colIndex := columnToIndex(column)
	for _, row := range rows {
		if colIndex < len(row) {
			columnValues = append(columnValues, row[colIndex])
		} else {
			columnValues = append(columnValues, "")
		}
	}
	return columnValues, nil
}

// UnprotectSheet lifts sheet protection and reports whether the sheet was
// protected. A password protected sheet is only unlocked with its password,
// so an empty password fails there. A sheet protected without a password
// opens with any password.
func (e *Editor) UnprotectSheet(sheet, password string) (bool, error) {
	part := e.parts[sheet]
	if part == nil || !part.Protection.Protected {
		return false, nil
	}

	var err error
	restore := password
	switch {
	case !part.Protection.Locked:
		err = e.file.UnprotectSheet(sheet)
		restore = ""
	case password == "":
		err = excelize.ErrUnprotectSheetPassword
	default:
		err = e.file.UnprotectSheet(sheet, password)
	}
	if err != nil {
		return false, err
	}

	part.Protection.Protected = false
	e.restore[sheet] = restore
	return true, nil
}

// ProtectSheet protects the sheet, keeping cell selection allowed. A sheet
// unlocked by UnprotectSheet gets the password it was protected with.
func (e *Editor) ProtectSheet(sheet, password string) error {
	if restore, ok := e.restore[sheet]; ok {
		password = restore
		delete(e.restore, sheet)
	}
	err := e.file.ProtectSheet(sheet, &excelize.SheetProtectionOptions{
		Password:            password,
		SelectLockedCells:   true,
		SelectUnlockedCells: true,
	})
	if err != nil {
		return err
	}
	if part := e.parts[sheet]; part != nil {
		part.Protection = protection{Protected: true, Locked: password != ""}
	}
	return nil
}

// Save saves the Excel file to the original filepath
func (e *Editor) Save() error {
	if e.filepath == "" {
		return fmt.Errorf("no filepath specified, use SaveAs instead")
	}
	return e.file.SaveAs(e.filepath)
}

// SaveAs saves the Excel file with a new name
func (e *Editor) SaveAs(filepath string) error {
	e.filepath = filepath
	return e.file.SaveAs(filepath)
}

// Close closes the Excel file and releases its temporary files
func (e *Editor) Close() error {
	return e.file.Close()
}

// Helper function to convert column letter to index
func columnToIndex(column string) int {
	result := 0
	for _, char := range strings.ToUpper(column) {
		result = result*26 + int(char-'A'+1)
	}
	return result - 1 // Convert to 0-based index
}
