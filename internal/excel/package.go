package excel

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const relTypeVML = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/vmlDrawing"

// protection is the <sheetProtection> state of a worksheet as stored on disk
type protection struct {
	Protected bool
	// Locked is set when the protection carries a password hash
	Locked bool
}

// control is one entry of a worksheet's <controls> list
type control struct {
	Name     string
	ShapeID  string
	Cell     string
	CtrlProp string
}

// sheetPart holds what the package says about a worksheet beyond what
// excelize exposes through its API
type sheetPart struct {
	Path       string
	VML        string
	Protection protection
	Controls   []control
}

// readPackage maps every worksheet name of the workbook at xlsxPath to its
// protection state and named form controls.
func readPackage(xlsxPath string) (map[string]*sheetPart, error) {
	r, err := zip.OpenReader(xlsxPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	workbookXML, err := readZipFile(&r.Reader, "xl/workbook.xml")
	if err != nil || workbookXML == nil {
		return nil, fmt.Errorf("failed to read workbook part: %v", err)
	}
	relsXML, err := readZipFile(&r.Reader, "xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, err
	}
	targets := parseRels(relsXML, "xl")

	parts := make(map[string]*sheetPart)
	for _, ws := range parseWorkbookSheets(workbookXML) {
		rel, ok := targets[ws.RID]
		if !ok || !strings.Contains(strings.ToLower(rel.Type), "worksheet") {
			continue
		}
		part := &sheetPart{Path: rel.Target}
		parts[ws.Name] = part

		sheetXML, err := readZipFile(&r.Reader, part.Path)
		if err != nil || sheetXML == nil {
			continue
		}
		sheetRels, err := readZipFile(&r.Reader, relsPathFor(part.Path))
		if err != nil {
			return nil, err
		}
		rels := parseRels(sheetRels, path.Dir(part.Path))

		legacyRID := parseWorksheet(sheetXML, part)
		if rel, ok := rels[legacyRID]; ok {
			part.VML = rel.Target
		} else {
			for _, rel := range rels {
				if rel.Type == relTypeVML {
					part.VML = rel.Target
					break
				}
			}
		}

		var shapes []vmlShape
		if part.VML != "" {
			if data, err := readZipFile(&r.Reader, part.VML); err == nil && data != nil {
				shapes = parseVML(data)
			}
		}
		for i := range part.Controls {
			c := &part.Controls[i]
			if rel, ok := rels[c.CtrlProp]; ok {
				c.CtrlProp = rel.Target
			} else {
				c.CtrlProp = ""
			}
			if c.Cell == "" {
				if j := shapeIndex(shapes, c.ShapeID); j >= 0 {
					c.Cell = shapes[j].Cell
				}
			}
		}
	}
	return parts, nil
}

func readZipFile(r *zip.Reader, name string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, nil
}

// relsPathFor returns the relationships part of a package part
func relsPathFor(part string) string {
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

// resolveTarget turns a relationship target into a package path
func resolveTarget(target, baseDir string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(baseDir, target)
}

type workbookSheet struct {
	Name string
	RID  string
}

func parseWorkbookSheets(data []byte) []workbookSheet {
	var sheets []workbookSheet
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "sheet" {
			var ws workbookSheet
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "name":
					ws.Name = attr.Value
				case "id":
					ws.RID = attr.Value
				}
			}
			if ws.Name != "" && ws.RID != "" {
				sheets = append(sheets, ws)
			}
		}
	}
	return sheets
}

type relationship struct {
	Type   string
	Target string
}

func parseRels(data []byte, baseDir string) map[string]relationship {
	rels := make(map[string]relationship)
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var id, mode string
			var rel relationship
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "Id":
					id = attr.Value
				case "Type":
					rel.Type = attr.Value
				case "Target":
					rel.Target = attr.Value
				case "TargetMode":
					mode = attr.Value
				}
			}
			if id == "" || mode == "External" {
				continue
			}
			rel.Target = resolveTarget(rel.Target, baseDir)
			rels[id] = rel
		}
	}
	return rels
}

// parseWorksheet fills the protection and controls of part and returns the
// relationship id of the legacy drawing. Control CtrlProp holds the
// relationship id until the caller resolves it.
func parseWorksheet(data []byte, part *sheetPart) string {
	var legacyRID string
	seen := make(map[string]bool)
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "sheetProtection":
			part.Protection = parseProtection(se)
		case "legacyDrawing":
			legacyRID = attrValue(se, "id")
		case "control":
			c := parseControl(decoder, se)
			if c.Name == "" || seen[c.ShapeID+"\x00"+c.Name] {
				continue
			}
			seen[c.ShapeID+"\x00"+c.Name] = true
			part.Controls = append(part.Controls, c)
		}
	}
	return legacyRID
}

func parseProtection(se xml.StartElement) protection {
	var p protection
	for _, attr := range se.Attr {
		switch attr.Name.Local {
		case "sheet":
			p.Protected, _ = strconv.ParseBool(attr.Value)
		case "password", "hashValue", "algorithmName":
			if attr.Value != "" {
				p.Locked = true
			}
		}
	}
	return p
}

// parseControl reads one <control> element up to its end tag, taking the
// anchor cell from controlPr/anchor/from when present.
func parseControl(decoder *xml.Decoder, start xml.StartElement) control {
	c := control{
		Name:     attrValue(start, "name"),
		ShapeID:  attrValue(start, "shapeId"),
		CtrlProp: attrValue(start, "id"),
	}

	col, row := -1, -1
	inFrom := false
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "from":
				inFrom = true
			case "col", "row":
				if !inFrom {
					continue
				}
				text, err := readElementText(decoder)
				depth--
				if err != nil {
					continue
				}
				n, err := strconv.Atoi(strings.TrimSpace(text))
				if err != nil {
					continue
				}
				if t.Name.Local == "col" {
					col = n
				} else {
					row = n
				}
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == "from" {
				inFrom = false
			}
		}
	}

	if col >= 0 && row >= 0 {
		if cell, err := excelize.CoordinatesToCellName(col+1, row+1); err == nil {
			c.Cell = cell
		}
	}
	return c
}

func readElementText(decoder *xml.Decoder) (string, error) {
	var text strings.Builder
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return text.String(), err
		}
		switch t := token.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return text.String(), nil
}

func attrValue(se xml.StartElement, local string) string {
	for _, attr := range se.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}
