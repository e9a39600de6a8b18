package excel

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const namedControls = `<mc:AlternateContent xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006">` +
	`<mc:Choice xmlns:x14="http://schemas.microsoft.com/office/spreadsheetml/2009/9/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:xdr="http://schemas.openxmlformats.org/drawingml/2006/spreadsheetDrawing" Requires="x14">` +
	`<controls>` +
	`<control shapeId="1030" r:id="rId90" name="Check Box 33"><controlPr defaultSize="0" autoPict="0">` +
	`<anchor moveWithCells="1">` +
	`<from><xdr:col>4</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>38</xdr:row><xdr:rowOff>0</xdr:rowOff></from>` +
	`<to><xdr:col>5</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>39</xdr:row><xdr:rowOff>0</xdr:rowOff></to>` +
	`</anchor></controlPr></control>` +
	`<control shapeId="1027" r:id="rId91" name="Check Box 12"/>` +
	`</controls></mc:Choice></mc:AlternateContent>`

const ctrlPropRels = `<Relationship Id="rId90" Type="http://schemas.microsoft.com/office/2007/relationships/ctrlProp" Target="../ctrlProps/ctrlProp1.xml"/>` +
	`<Relationship Id="rId91" Type="http://schemas.microsoft.com/office/2007/relationships/ctrlProp" Target="../ctrlProps/ctrlProp2.xml"/>`

const ctrlProp = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
	`<formControlPr xmlns="http://schemas.microsoft.com/office/spreadsheetml/2009/9/main" objectType="CheckBox" lockText="1" noThreeD="1"/>`

// rewriteZip replaces the parts of the package at path through edit and adds extra
func rewriteZip(t *testing.T, path string, edit func(name string, data []byte) []byte, extra map[string]string) {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		out, err := w.Create(f.Name)
		require.NoError(t, err)
		_, err = out.Write(edit(f.Name, data))
		require.NoError(t, err)
	}
	for name, data := range extra {
		out, err := w.Create(name)
		require.NoError(t, err)
		_, err = out.WriteString(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, r.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

// buildNamedChecklist writes a one sheet checklist whose controls carry
// workbook names, distinct shape ids and control property parts, the way
// Excel saves them.
func buildNamedChecklist(t *testing.T, path string) {
	t.Helper()
	buildChecklist(t, path, 1, "")

	rewriteZip(t, path, func(name string, data []byte) []byte {
		switch name {
		case "xl/worksheets/sheet1.xml":
			return bytes.Replace(data, []byte("</worksheet>"), []byte(namedControls+"</worksheet>"), 1)
		case "xl/worksheets/_rels/sheet1.xml.rels":
			return bytes.Replace(data, []byte("</Relationships>"), []byte(ctrlPropRels+"</Relationships>"), 1)
		case "xl/drawings/vmlDrawing1.vml":
			chunks := bytes.Split(data, []byte(`id="_x0000_s1025"`))
			var out bytes.Buffer
			for i, chunk := range chunks {
				if i > 0 {
					fmt.Fprintf(&out, `id="_x0000_s%d"`, 1024+i)
				}
				out.Write(chunk)
			}
			return out.Bytes()
		}
		return data
	}, map[string]string{
		"xl/ctrlProps/ctrlProp1.xml": ctrlProp,
		"xl/ctrlProps/ctrlProp2.xml": ctrlProp,
	})
}

func readPart(t *testing.T, path, name string) []byte {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	data, err := readZipFile(&r.Reader, name)
	require.NoError(t, err)
	require.NotNil(t, data, name)
	return data
}

func TestReadPackage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.xlsx")
	buildNamedChecklist(t, path)

	parts, err := readPackage(path)
	require.NoError(t, err)
	require.Contains(t, parts, "Checklist Regelkast")

	part := parts["Checklist Regelkast"]
	assert.Equal(t, "xl/worksheets/sheet1.xml", part.Path)
	assert.Equal(t, "xl/drawings/vmlDrawing1.vml", part.VML)
	assert.Equal(t, protection{Protected: true}, part.Protection)
	assert.Equal(t, []control{
		{Name: "Check Box 33", ShapeID: "1030", Cell: "E39", CtrlProp: "xl/ctrlProps/ctrlProp1.xml"},
		{Name: "Check Box 12", ShapeID: "1027", Cell: "C36", CtrlProp: "xl/ctrlProps/ctrlProp2.xml"},
	}, part.Controls)
}

func TestReadPackageLockedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.xlsx")
	buildChecklist(t, path, 2, "geheim")

	parts, err := readPackage(path)
	require.NoError(t, err)
	assert.Len(t, parts, 2)
	for name, part := range parts {
		assert.Equal(t, protection{Protected: true, Locked: true}, part.Protection, name)
		assert.Empty(t, part.Controls, name)
	}
}

func TestSetCheckBoxByWorkbookName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.xlsx")
	buildNamedChecklist(t, path)

	// the workbook's own names win over [checkboxes]
	editor, err := OpenFile(path, map[string]string{"Check Box 33": "C8"})
	require.NoError(t, err)

	require.NoError(t, editor.SetCheckBox("Checklist Regelkast", "Check Box 33", true))
	require.NoError(t, editor.SetCheckBox("Checklist Regelkast", "Check Box 12", true))
	require.NoError(t, editor.SetCheckBox("Checklist Regelkast", "CheckBox_C35", true))

	boxes, err := editor.CheckBoxes("Checklist Regelkast")
	require.NoError(t, err)
	names := map[string]string{}
	for _, cb := range boxes {
		names[cb.Cell] = cb.Name
	}
	assert.Equal(t, "Check Box 33", names["E39"])
	assert.Equal(t, "", names["C8"])

	require.NoError(t, editor.Save())
	require.NoError(t, editor.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	state := checkedBoxes(t, f, "Checklist Regelkast")
	assert.True(t, state["E39"])
	assert.True(t, state["C36"])
	assert.True(t, state["C35"])
	assert.False(t, state["C8"])
	assert.Len(t, state, len(templateBoxes))

	// controls keep their shape ids and property parts follow the state
	shapes := parseVML(readPart(t, path, "xl/drawings/vmlDrawing1.vml"))
	require.Len(t, shapes, len(templateBoxes))
	for i, sp := range shapes {
		assert.Equal(t, fmt.Sprintf("_x0000_s%d", 1025+i), sp.ID)
		assert.Equal(t, templateBoxes[i], sp.Cell)
	}
	assert.Contains(t, string(readPart(t, path, "xl/ctrlProps/ctrlProp1.xml")), `checked="Checked"`)
	assert.Contains(t, string(readPart(t, path, "xl/ctrlProps/ctrlProp2.xml")), `checked="Checked"`)

	parts, err := readPackage(path)
	require.NoError(t, err)
	assert.Len(t, parts["Checklist Regelkast"].Controls, 2)
}

func TestParseVMLAndPatchChecked(t *testing.T) {
	vml := `<xml xmlns:v="urn:schemas-microsoft-com:vml" xmlns:x="urn:schemas-microsoft-com:office:excel">` +
		`<v:shape id="_x0000_s1025" type="#_x0000_t201"><x:ClientData ObjectType="Checkbox">` +
		`<x:Anchor>2, 0, 35, 0, 3, 0, 36, 0</x:Anchor><x:Checked>1</x:Checked><x:FmlaLink>$H$36</x:FmlaLink>` +
		`</x:ClientData></v:shape>` +
		`<v:shape id="_x0000_s1026" type="#_x0000_t201"><x:ClientData ObjectType="Checkbox">` +
		`<x:Anchor>4, 0, 35, 0, 5, 0, 36, 0</x:Anchor><br>` +
		`</x:ClientData></v:shape>` +
		`<v:shape id="_x0000_s1027" type="#_x0000_t202"><x:ClientData ObjectType="Note">` +
		`<x:Anchor>6, 0, 1, 0, 7, 0, 2, 0</x:Anchor></x:ClientData></v:shape></xml>`

	shapes := parseVML([]byte(vml))
	require.Len(t, shapes, 3)
	assert.Equal(t, "C36", shapes[0].Cell)
	assert.True(t, shapes[0].Checked)
	assert.Equal(t, "$H$36", shapes[0].CellLink)
	assert.Equal(t, "E36", shapes[1].Cell)
	assert.False(t, shapes[1].Checked)

	assert.Equal(t, 1, findCheckBox(shapes, control{ShapeID: "1026"}))
	assert.Equal(t, 1, findCheckBox(shapes, control{Cell: "e36"}))
	assert.Equal(t, -1, findCheckBox(shapes, control{ShapeID: "1027", Cell: "G2"}), "notes are not checkboxes")

	unchecked := patchChecked([]byte(vml), shapes[0], false)
	checked := patchChecked(unchecked, parseVML(unchecked)[1], true)

	shapes = parseVML(checked)
	assert.False(t, shapes[0].Checked)
	assert.True(t, shapes[1].Checked)
	assert.Equal(t, 1, strings.Count(string(checked), "<x:Checked>1</x:Checked>"))
	assert.Contains(t, string(checked), `<x:Anchor>2, 0, 35, 0, 3, 0, 36, 0</x:Anchor><x:FmlaLink>`)
}

func TestPatchCtrlProp(t *testing.T) {
	checked := patchCtrlProp([]byte(ctrlProp), true)
	assert.Contains(t, string(checked), `<formControlPr checked="Checked" xmlns=`)
	assert.Contains(t, string(checked), `noThreeD="1"/>`)

	again := patchCtrlProp(checked, true)
	assert.Equal(t, 1, strings.Count(string(again), "checked="))

	assert.Equal(t, ctrlProp, string(patchCtrlProp(checked, false)))
}
