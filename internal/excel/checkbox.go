package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CheckBox describes one checkbox form control found on a sheet
type CheckBox struct {
	Name     string
	Cell     string
	Text     string
	Checked  bool
	CellLink string
}

// CheckBoxes lists the checkbox form controls of a sheet
func (e *Editor) CheckBoxes(sheet string) ([]CheckBox, error) {
	controls, err := e.file.GetFormControls(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read form controls: %w", err)
	}

	var boxes []CheckBox
	for _, fc := range controls {
		if fc.Type != excelize.FormControlCheckBox {
			continue
		}
		boxes = append(boxes, CheckBox{
			Name:     e.controlAt(sheet, fc.Cell).Name,
			Cell:     fc.Cell,
			Text:     fc.Text,
			Checked:  fc.Checked,
			CellLink: fc.CellLink,
		})
	}
	return boxes, nil
}

// SetCheckBox sets the checkbox called name on sheet. The checked state is
// changed in place in the sheet's drawing, so the control keeps its id, size
// and properties. A linked cell, if any, receives the same boolean.
func (e *Editor) SetCheckBox(sheet, name string, checked bool) error {
	c, err := e.resolveCheckBox(sheet, name)
	if err != nil {
		return err
	}

	part := e.parts[sheet]
	if part == nil || part.VML == "" {
		return fmt.Errorf("checkbox %s not found on %s", name, sheet)
	}
	raw, _ := e.file.Pkg.Load(part.VML)
	data, ok := raw.([]byte)
	if !ok {
		return fmt.Errorf("checkbox %s not found on %s", name, sheet)
	}

	shapes := parseVML(data)
	idx := findCheckBox(shapes, c)
	if idx < 0 {
		return fmt.Errorf("checkbox %s not found on %s", name, sheet)
	}
	sp := shapes[idx]

	if sp.CellLink != "" {
		linkSheet, linkCell := splitCellLink(sheet, sp.CellLink)
		if err := e.file.SetCellBool(linkSheet, linkCell, checked); err != nil {
			return fmt.Errorf("failed to update linked cell %s: %w", sp.CellLink, err)
		}
	}
	if sp.Checked == checked {
		return nil
	}

	e.file.Pkg.Store(part.VML, patchChecked(data, sp, checked))
	delete(e.file.DecodeVMLDrawing, part.VML)

	if c.CtrlProp != "" {
		if raw, ok := e.file.Pkg.Load(c.CtrlProp); ok {
			if props, ok := raw.([]byte); ok {
				e.file.Pkg.Store(c.CtrlProp, patchCtrlProp(props, checked))
			}
		}
	}
	return nil
}

// resolveCheckBox finds the control called name. Names stored in the
// workbook win; [checkboxes] and the "<prefix>_<cell>" convention only
// apply to names the workbook does not carry.
func (e *Editor) resolveCheckBox(sheet, name string) (control, error) {
	if part := e.parts[sheet]; part != nil {
		for _, c := range part.Controls {
			if c.Name == name {
				return c, nil
			}
		}
	}

	cell, err := e.CheckBoxCell(name)
	if err != nil {
		return control{}, err
	}
	c := e.controlAt(sheet, cell)
	c.Cell = cell
	return c, nil
}

// controlAt returns the named control anchored at cell, if the workbook has one
func (e *Editor) controlAt(sheet, cell string) control {
	if part := e.parts[sheet]; part != nil {
		for _, c := range part.Controls {
			if strings.EqualFold(c.Cell, cell) {
				return c
			}
		}
	}
	return control{}
}

// CheckBoxCell resolves a name the workbook does not carry to its anchor
// cell, first through [checkboxes], then through the "<prefix>_<cell>"
// naming convention.
func (e *Editor) CheckBoxCell(name string) (string, error) {
	if cell, ok := e.checkboxes[name]; ok {
		return strings.ToUpper(cell), nil
	}

	idx := strings.LastIndex(name, "_")
	if idx >= 0 {
		cell := strings.ToUpper(name[idx+1:])
		if _, _, err := excelize.CellNameToCoordinates(cell); err == nil {
			return cell, nil
		}
	}
	return "", fmt.Errorf("cannot resolve checkbox %q to a cell, add it to [checkboxes]", name)
}

// splitCellLink handles both "$A$1" and "'Other sheet'!$A$1" links
func splitCellLink(sheet, link string) (string, string) {
	if idx := strings.LastIndex(link, "!"); idx >= 0 {
		return strings.Trim(link[:idx], "'"), strings.ReplaceAll(link[idx+1:], "$", "")
	}
	return sheet, strings.ReplaceAll(link, "$", "")
}
