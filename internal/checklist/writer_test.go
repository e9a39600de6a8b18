package checklist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorkbook struct {
	path          string
	sheets        map[string]bool
	failUnprotect map[string]bool
	failCell      bool
	failCheckbox  map[string]bool

	cells     map[string]string
	boxes     map[string]bool
	protected map[string]bool
	protects  int
	visits    []string
	saved     bool
	closed    bool
}

func newFakeWorkbook(sheetCount int) *fakeWorkbook {
	wb := &fakeWorkbook{
		sheets:        map[string]bool{},
		failUnprotect: map[string]bool{},
		failCheckbox:  map[string]bool{},
		cells:         map[string]string{},
		boxes:         map[string]bool{},
		protected:     map[string]bool{},
	}
	for i := 0; i < sheetCount; i++ {
		name := SheetRef("Checklist Regelkast", i)
		wb.sheets[name] = true
		wb.protected[name] = true
	}
	return wb
}

func (f *fakeWorkbook) HasSheet(name string) bool { return f.sheets[name] }

func (f *fakeWorkbook) SetCellValue(sheet, cell string, value any) error {
	if f.failCell {
		return errors.New("cell locked")
	}
	f.cells[sheet+"!"+cell] = value.(string)
	return nil
}

func (f *fakeWorkbook) UnprotectSheet(sheet, password string) (bool, error) {
	if f.failUnprotect[sheet] {
		return false, errors.New("the password is incorrect")
	}
	f.visits = append(f.visits, sheet)
	was := f.protected[sheet]
	f.protected[sheet] = false
	return was, nil
}

func (f *fakeWorkbook) ProtectSheet(sheet, password string) error {
	f.protected[sheet] = true
	f.protects++
	return nil
}

func (f *fakeWorkbook) SetCheckBox(sheet, name string, checked bool) error {
	if f.failCheckbox[name] {
		return errors.New("checkbox not found")
	}
	f.boxes[sheet+":"+name] = checked
	return nil
}

func (f *fakeWorkbook) Save() error {
	f.saved = true
	return os.WriteFile(f.path, []byte("mutated"), 0644)
}

func (f *fakeWorkbook) Close() error {
	f.closed = true
	return nil
}

type fakePrompter struct {
	overwrite bool
	copyPath  string
	asked     int
}

func (p *fakePrompter) ConfirmOverwrite(ctx context.Context, original string) (bool, error) {
	p.asked++
	return p.overwrite, nil
}

func (p *fakePrompter) ChooseCopyPath(ctx context.Context, original string) (string, error) {
	p.asked++
	return p.copyPath, nil
}

type harness struct {
	t        *testing.T
	wb       *fakeWorkbook
	opened   []string
	original string
	writer   *Writer
	prompt   *fakePrompter
}

func newHarness(t *testing.T, sheetCount int) *harness {
	t.Helper()
	dir := t.TempDir()
	original := filepath.Join(dir, "rapportage.xlsm")
	require.NoError(t, os.WriteFile(original, []byte("original"), 0644))

	h := &harness{
		t:        t,
		wb:       newFakeWorkbook(sheetCount),
		original: original,
		prompt:   &fakePrompter{overwrite: true},
	}
	h.writer = &Writer{
		Open: func(path string) (Workbook, error) {
			h.opened = append(h.opened, path)
			h.wb.path = path
			return h.wb, nil
		},
		Prompt: h.prompt,
		Layout: DefaultLayout(),
	}
	return h
}

func (h *harness) run(in Input) (*Result, error) {
	in.Path = h.original
	return h.writer.Run(context.Background(), in)
}

func section(lines ...string) Section {
	return Section{Enabled: true, Lines: lines}
}

func TestTrendStorageBelowThreshold(t *testing.T) {
	h := newHarness(t, 1)

	res, err := h.run(Input{TrendStorage: section("1.234.567,89")})
	require.NoError(t, err)

	assert.Equal(t, "123456789 van 10000000 - 12%", h.wb.cells["Checklist Regelkast!J36"])
	assert.False(t, res.Warning)
	assert.True(t, h.wb.boxes["Checklist Regelkast:CheckBox_C36"])
	assert.False(t, h.wb.boxes["Checklist Regelkast:CheckBox_E36"])
	assert.True(t, h.wb.saved)
	assert.True(t, h.wb.closed)
}

func TestTrendStorageAboveThreshold(t *testing.T) {
	h := newHarness(t, 2)

	res, err := h.run(Input{TrendStorage: section("1.000.000", "8.500.000")})
	require.NoError(t, err)

	assert.True(t, res.Warning)
	assert.Equal(t, "8500000 van 10000000 - 85%", h.wb.cells["Checklist Regelkast (2)!J36"])
	assert.True(t, h.wb.boxes["Checklist Regelkast (2):CheckBox_C36"])
	assert.True(t, h.wb.boxes["Checklist Regelkast (2):CheckBox_E36"])
	assert.False(t, h.wb.boxes["Checklist Regelkast:CheckBox_E36"])
	assert.Contains(t, res.Message(), "WARNING")
}

func TestCPUMemoryCombined(t *testing.T) {
	h := newHarness(t, 1)

	res, err := h.run(Input{CPU: section("85"), Memory: section("10")})
	require.NoError(t, err)

	assert.Equal(t, "CPU: 85.00 % Memory: 10.00 %", h.wb.cells["Checklist Regelkast!J39"])
	assert.True(t, res.Warning)
	assert.True(t, h.wb.boxes["Checklist Regelkast:CheckBox_C39"])
	assert.True(t, h.wb.boxes["Checklist Regelkast:CheckBox_E39"])
}

func TestServersVisitSheetsInOrder(t *testing.T) {
	h := newHarness(t, 3)

	res, err := h.run(Input{Servers: section("SRV-01", "SRV-02", "SRV-03")})
	require.NoError(t, err)

	want := []string{"Checklist Regelkast", "Checklist Regelkast (2)", "Checklist Regelkast (3)"}
	if diff := cmp.Diff(want, h.wb.visits); diff != "" {
		t.Errorf("visited sheets mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "SRV-03", h.wb.cells["Checklist Regelkast (3)!F8"])
	assert.Len(t, res.Checked, 3)
	assert.False(t, res.Warning)
	for _, name := range want {
		assert.True(t, h.wb.protected[name], "sheet %s should be protected again", name)
	}
}

func TestUnprotectedSheetStaysUnprotected(t *testing.T) {
	h := newHarness(t, 2)
	h.wb.protected["Checklist Regelkast (2)"] = false

	_, err := h.run(Input{Servers: section("SRV-01", "SRV-02")})
	require.NoError(t, err)

	assert.True(t, h.wb.protected["Checklist Regelkast"])
	assert.False(t, h.wb.protected["Checklist Regelkast (2)"])
	assert.Equal(t, 1, h.wb.protects)
	assert.Equal(t, "SRV-02", h.wb.cells["Checklist Regelkast (2)!F8"])
}

func TestNothingSelectedNeverOpens(t *testing.T) {
	h := newHarness(t, 1)

	_, err := h.run(Input{
		Servers:      Section{Enabled: false, Lines: []string{"ignored"}},
		TrendStorage: Section{Enabled: true},
	})
	require.ErrorIs(t, err, ErrNothingSelected)
	assert.Empty(t, h.opened)
	assert.Zero(t, h.prompt.asked)
}

func TestInvalidPathNeverOpens(t *testing.T) {
	h := newHarness(t, 1)

	_, err := h.writer.Run(context.Background(), Input{
		Path:    filepath.Join(t.TempDir(), "missing.xlsx"),
		Servers: section("SRV-01"),
	})
	require.ErrorIs(t, err, ErrInvalidPath)
	assert.Empty(t, h.opened)
}

func TestCopyLeavesOriginalUntouched(t *testing.T) {
	h := newHarness(t, 1)
	dst := filepath.Join(t.TempDir(), "copy.xlsm")
	h.prompt.overwrite = false
	h.prompt.copyPath = dst

	res, err := h.run(Input{Servers: section("SRV-01")})
	require.NoError(t, err)

	assert.Equal(t, dst, res.Path)
	assert.True(t, res.Copy)
	assert.Equal(t, []string{dst}, h.opened)

	orig, err := os.ReadFile(h.original)
	require.NoError(t, err)
	assert.Equal(t, "original", string(orig))

	copied, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "mutated", string(copied))
}

func TestCancelAtDestinationPrompt(t *testing.T) {
	h := newHarness(t, 1)
	h.prompt.overwrite = false
	h.prompt.copyPath = ""

	_, err := h.run(Input{Servers: section("SRV-01")})
	require.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, h.opened)

	orig, err := os.ReadFile(h.original)
	require.NoError(t, err)
	assert.Equal(t, "original", string(orig))
}

func TestUnprotectFailureDiscardsRun(t *testing.T) {
	h := newHarness(t, 3)
	h.wb.failUnprotect["Checklist Regelkast (2)"] = true

	_, err := h.run(Input{
		Servers:      section("SRV-01", "SRV-02", "SRV-03"),
		TrendStorage: section("100"),
	})

	var unprotectErr *UnprotectError
	require.ErrorAs(t, err, &unprotectErr)
	assert.Equal(t, "Checklist Regelkast (2)", unprotectErr.Sheet)
	assert.Contains(t, err.Error(), "Checklist Regelkast (2)")

	// sheet 1 was written in memory, nothing after the failure was touched
	assert.Equal(t, []string{"Checklist Regelkast"}, h.wb.visits)
	assert.Equal(t, "SRV-01", h.wb.cells["Checklist Regelkast!F8"])
	assert.NotContains(t, h.wb.cells, "Checklist Regelkast!J36")

	// discard policy: closed, never saved
	assert.False(t, h.wb.saved)
	assert.True(t, h.wb.closed)
	orig, err := os.ReadFile(h.original)
	require.NoError(t, err)
	assert.Equal(t, "original", string(orig))
}

func TestUnprotectFailureRemovesCopy(t *testing.T) {
	h := newHarness(t, 1)
	dst := filepath.Join(t.TempDir(), "copy.xlsm")
	h.prompt.overwrite = false
	h.prompt.copyPath = dst
	h.wb.failUnprotect["Checklist Regelkast"] = true

	_, err := h.run(Input{Servers: section("SRV-01")})
	require.Error(t, err)

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMissingSheetIsSkipped(t *testing.T) {
	h := newHarness(t, 3)
	delete(h.wb.sheets, "Checklist Regelkast (2)")

	res, err := h.run(Input{Servers: section("SRV-01", "SRV-02", "SRV-03")})
	require.NoError(t, err)

	assert.Equal(t, []string{"Checklist Regelkast (2)"}, res.Skipped)
	assert.Equal(t, "SRV-03", h.wb.cells["Checklist Regelkast (3)!F8"])
	assert.NotContains(t, h.wb.cells, "Checklist Regelkast (2)!F8")
}

func TestCheckboxAndCellFailuresAreNotFatal(t *testing.T) {
	h := newHarness(t, 1)
	h.wb.failCell = true
	h.wb.failCheckbox["CheckBox_E36"] = true

	res, err := h.run(Input{TrendStorage: section("9.000.000")})
	require.NoError(t, err)

	assert.True(t, res.Warning)
	assert.Equal(t, []string{"Checklist Regelkast:CheckBox_C36"}, res.Checked)
	assert.True(t, h.wb.saved)
	assert.True(t, h.wb.protected["Checklist Regelkast"])
}

func TestAllLicensesSweepsUntilMissingSheet(t *testing.T) {
	h := newHarness(t, 4)

	res, err := h.run(Input{AllLicenses: true})
	require.NoError(t, err)

	assert.Len(t, h.wb.visits, 4)
	assert.True(t, h.wb.boxes["Checklist Regelkast (4):CheckBox_C35"])
	assert.Empty(t, res.Skipped)
}

func TestOpenFailureRemovesCopy(t *testing.T) {
	h := newHarness(t, 1)
	dst := filepath.Join(t.TempDir(), "copy.xlsm")
	h.prompt.overwrite = false
	h.prompt.copyPath = dst
	h.writer.Open = func(path string) (Workbook, error) {
		return nil, errors.New("zip: not a valid zip file")
	}

	_, err := h.run(Input{Servers: section("SRV-01")})
	require.ErrorIs(t, err, ErrOpen)

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}
