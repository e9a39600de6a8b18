package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.titleStyle.Render("StruxureGuard Excel Writer"))
	b.WriteString("\n\n")

	b.WriteString(m.viewForm())
	b.WriteString("\n")

	switch m.state {
	case stateRunning:
		if m.quitting {
			b.WriteString(fmt.Sprintf("%s Finishing the current write, closing afterwards...\n", m.spinner.View()))
			break
		}
		b.WriteString(fmt.Sprintf("%s Writing to workbook...\n", m.spinner.View()))
	case stateConfirmOverwrite:
		b.WriteString(m.viewConfirmOverwrite())
	case stateCopyPath:
		b.WriteString(m.viewCopyPath())
	default:
		b.WriteString(m.viewMessage())
	}

	if len(m.logLines) > 0 {
		b.WriteString("\n")
		b.WriteString(m.logStyle.Render(strings.Join(m.logLines, "\n")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.helpStyle.Render(m.help()))
	return b.String()
}

func (m model) viewForm() string {
	var b strings.Builder

	b.WriteString(m.label(fieldPath, "Excel file: "))
	b.WriteString(m.path.View())
	b.WriteString("\n")
	b.WriteString(m.label(fieldPassword, "Password:   "))
	b.WriteString(m.password.View())
	b.WriteString("\n\n")

	boxes := make([]string, len(m.sections))
	for i, s := range m.sections {
		toggle := "[ ]"
		if s.enabled {
			toggle = "[x]"
		}
		header := m.label(firstSection+i, fmt.Sprintf("%s %s", toggle, s.title))
		boxes[i] = m.boxStyle.Render(header + "\n" + s.area.View())
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes[0], boxes[1]))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes[2], boxes[3]))
	b.WriteString("\n")

	licenses := "[ ]"
	if m.allLicenses {
		licenses = "[x]"
	}
	b.WriteString(m.labelStyle.Render(licenses + " All licenses present"))
	b.WriteString("\n")
	return b.String()
}

func (m model) label(field int, text string) string {
	if m.state == stateForm && m.focus == field {
		return m.focusStyle.Render(text)
	}
	return m.labelStyle.Render(text)
}

func (m model) viewConfirmOverwrite() string {
	name := ""
	if m.pending != nil {
		name = filepath.Base(m.pending.Original)
	}
	return m.warningStyle.Render(fmt.Sprintf("Overwrite %s? ", name)) +
		m.labelStyle.Render("y = write into the original, n = save as a copy") + "\n"
}

func (m model) viewCopyPath() string {
	return m.warningStyle.Render("Save copy as:") + "\n" + m.copyPath.View() + "\n"
}

func (m model) viewMessage() string {
	if m.message == "" {
		return ""
	}
	switch {
	case m.failed:
		return m.errorStyle.Render(m.message) + "\n"
	case m.warning:
		return m.warningStyle.Render(m.message) + "\n"
	default:
		return m.successStyle.Render(m.message) + "\n"
	}
}

func (m model) help() string {
	switch m.state {
	case stateRunning:
		if m.quitting {
			return "closing when the write finishes"
		}
		return "ctrl+c: quit after this write"
	case stateConfirmOverwrite:
		return "y: overwrite • n: save a copy • ctrl+c: quit"
	case stateCopyPath:
		return "enter: save copy • esc: cancel • ctrl+c: quit"
	}
	return "tab/shift+tab: move • ctrl+t: toggle section • ctrl+l: toggle licenses • ctrl+s: write • esc: quit"
}
