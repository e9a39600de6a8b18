package excel

import (
	"bytes"
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// vmlShape is a form control shape of a legacy VML drawing. The offsets
// locate its ClientData in the drawing bytes so the checked state can be
// changed without rewriting the rest of the shape.
type vmlShape struct {
	ID         string
	ObjectType string
	Cell       string
	Checked    bool
	CellLink   string

	prefix      string
	clientEnd   int64
	checkedFrom int64
	checkedTo   int64
}

func parseVML(data []byte) []vmlShape {
	var (
		shapes   []vmlShape
		text     strings.Builder
		field    string
		inClient bool
		cur      = -1
	)

	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	for {
		offset := decoder.InputOffset()
		token, err := decoder.RawToken()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "shape":
				shapes = append(shapes, vmlShape{ID: attrValue(t, "id"), checkedFrom: -1, checkedTo: -1})
				cur = len(shapes) - 1
			case t.Name.Local == "ClientData" && cur >= 0:
				inClient = true
				shapes[cur].ObjectType = attrValue(t, "ObjectType")
				shapes[cur].prefix = t.Name.Space
			case inClient:
				field = t.Name.Local
				text.Reset()
				if field == "Checked" {
					shapes[cur].checkedFrom = offset
				}
			}
		case xml.CharData:
			if field != "" {
				text.Write(t)
			}
		case xml.EndElement:
			switch {
			case t.Name.Local == "ClientData" && inClient:
				shapes[cur].clientEnd = offset
				inClient, field = false, ""
			case t.Name.Local == "shape":
				cur = -1
			case inClient && t.Name.Local == field:
				sp := &shapes[cur]
				value := strings.TrimSpace(text.String())
				switch field {
				case "Anchor":
					sp.Cell = anchorCell(value)
				case "Checked":
					sp.Checked = value != "" && value != "0"
					sp.checkedTo = decoder.InputOffset()
				case "FmlaLink":
					sp.CellLink = value
				}
				field = ""
			}
		}
	}
	return shapes
}

// anchorCell returns the top left cell of a VML anchor
// "LeftColumn, LeftOffset, TopRow, TopOffset, ..." list.
func anchorCell(anchor string) string {
	pos := strings.Split(anchor, ",")
	if len(pos) != 8 {
		return ""
	}
	col, err := strconv.Atoi(strings.TrimSpace(pos[0]))
	if err != nil {
		return ""
	}
	row, err := strconv.Atoi(strings.TrimSpace(pos[2]))
	if err != nil {
		return ""
	}
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return ""
	}
	return cell
}

// shapeIndex returns the shape drawn for a control shapeId, or -1. Workbooks
// written by some tools reuse one id for every shape; those never match.
func shapeIndex(shapes []vmlShape, shapeID string) int {
	if shapeID == "" {
		return -1
	}
	found := -1
	for i, sp := range shapes {
		if sp.ID != "_x0000_s"+shapeID {
			continue
		}
		if found >= 0 {
			return -1
		}
		found = i
	}
	return found
}

// findCheckBox returns the index of the checkbox shape for a control, by
// shape id when that is unambiguous and by anchor cell otherwise.
func findCheckBox(shapes []vmlShape, c control) int {
	if i := shapeIndex(shapes, c.ShapeID); i >= 0 && strings.EqualFold(shapes[i].ObjectType, "Checkbox") {
		return i
	}
	for i, sp := range shapes {
		if strings.EqualFold(sp.ObjectType, "Checkbox") && strings.EqualFold(sp.Cell, c.Cell) {
			return i
		}
	}
	return -1
}

// patchChecked sets the checked state of one shape in the drawing bytes
func patchChecked(data []byte, sp vmlShape, checked bool) []byte {
	elem := "Checked"
	if sp.prefix != "" {
		elem = sp.prefix + ":Checked"
	}
	var insert []byte
	if checked {
		insert = []byte("<" + elem + ">1</" + elem + ">")
	}

	from, to := sp.clientEnd, sp.clientEnd
	if sp.checkedFrom >= 0 && sp.checkedTo >= sp.checkedFrom {
		from, to = sp.checkedFrom, sp.checkedTo
	}
	out := make([]byte, 0, len(data)+len(insert))
	out = append(out, data[:from]...)
	out = append(out, insert...)
	return append(out, data[to:]...)
}

var checkedAttr = regexp.MustCompile(`\s+checked\s*=\s*("[^"]*"|'[^']*')`)

// patchCtrlProp sets the checked attribute of a formControlPr part
func patchCtrlProp(data []byte, checked bool) []byte {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	for {
		from := decoder.InputOffset()
		token, err := decoder.RawToken()
		if err != nil {
			return data
		}
		se, ok := token.(xml.StartElement)
		if !ok || se.Name.Local != "formControlPr" {
			continue
		}
		to := decoder.InputOffset()

		tag := checkedAttr.ReplaceAll(data[from:to], nil)
		if checked {
			name := se.Name.Local
			if se.Name.Space != "" {
				name = se.Name.Space + ":" + name
			}
			at := len("<" + name)
			tag = append(tag[:at:at], append([]byte(` checked="Checked"`), tag[at:]...)...)
		}

		out := make([]byte, 0, len(data)+len(tag))
		out = append(out, data[:from]...)
		out = append(out, tag...)
		return append(out, data[to:]...)
	}
}
