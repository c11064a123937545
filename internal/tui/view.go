package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/convolab/convoscope/internal/conv"
)

// chromeLines is the vertical space taken by header, column row, and footer.
const chromeLines = 6

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	userStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	asstStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("77"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.level == levelTranscript && m.transcript != nil {
		return m.renderTranscript()
	}
	return m.renderList()
}

func (m Model) renderList() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("convoscope"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d threads, %d messages", m.stats.Conversations, m.stats.Messages)))
	if region := m.regionLabel(); region != "" {
		b.WriteString(dimStyle.Render("  region: " + region))
	}
	if m.keyword != "" {
		b.WriteString(dimStyle.Render("  keyword: " + m.keyword))
	}
	b.WriteString("\n")

	if m.searchActive {
		b.WriteString("/" + m.searchInput.View() + "\n")
	} else if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()) + "\n")
	} else {
		b.WriteString("\n")
	}

	idW, regW, numW, timeW := 14, 6, 5, 16
	previewW := m.width - idW - regW - numW - timeW - 8
	if previewW < 10 {
		previewW = 10
	}

	b.WriteString(headerStyle.Render(
		padRight("THREAD", idW) + "  " +
			padRight("REGION", regW) + "  " +
			padRight("MSGS", numW) + "  " +
			padRight("STARTED", timeW) + "  " +
			"FIRST MESSAGE",
	))
	b.WriteString("\n")

	end := m.scrollOffset + m.pageSize
	if end > len(m.threads) {
		end = len(m.threads)
	}
	for i := m.scrollOffset; i < end; i++ {
		t := m.threads[i]
		row := padRight(truncateRunes(t.ID, idW), idW) + "  " +
			padRight(t.Region(), regW) + "  " +
			padRight(fmt.Sprintf("%d", len(t.Messages)), numW) + "  " +
			padRight(t.First().Format("2006-01-02 15:04"), timeW) + "  " +
			truncateRunes(firstUserText(t), previewW)
		if i == m.cursor {
			row = selectedStyle.Render(row)
		}
		b.WriteString(row + "\n")
	}
	if len(m.threads) == 0 {
		b.WriteString(dimStyle.Render("no threads match the current filter") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter: transcript  /: keyword  r: region  esc: clear  q: quit"))
	return b.String()
}

// regionLabel names the active region filter, or "" for all.
func (m Model) regionLabel() string {
	if m.regionIdx > 0 && m.regionIdx <= len(m.regions) {
		return m.regions[m.regionIdx-1]
	}
	return ""
}

// firstUserText returns the first user message of a thread for previews.
func firstUserText(t conv.Thread) string {
	for _, msg := range t.Messages {
		if msg.Role == conv.RoleUser {
			return msg.Text
		}
	}
	if len(t.Messages) > 0 {
		return t.Messages[0].Text
	}
	return ""
}

// renderTranscriptLines flattens the transcript into display lines so the
// scroll window can slice them.
func (m Model) renderTranscriptLines() []string {
	t := m.transcript
	width := m.width - 4
	if width < 20 {
		width = 20
	}

	var lines []string
	for _, msg := range t.Messages {
		style := userStyle
		if msg.Role == conv.RoleAssistant {
			style = asstStyle
		}
		lines = append(lines, style.Render(string(msg.Role))+dimStyle.Render("  "+formatTimestamp(msg.Timestamp)))
		text := msg.Text
		if strings.TrimSpace(text) == "" {
			text = dimStyle.Render("(empty)")
		}
		for _, l := range wrapText(text, width) {
			lines = append(lines, "  "+l)
		}
		lines = append(lines, "")
	}
	return lines
}

func (m Model) renderTranscript() string {
	t := m.transcript
	var b strings.Builder

	b.WriteString(titleStyle.Render("thread "+t.ID) +
		dimStyle.Render(fmt.Sprintf("  %s  %d messages  %s",
			t.Region(), len(t.Messages), formatDuration(t.Duration()))))
	b.WriteString("\n\n")

	end := m.transcriptScroll + m.pageSize
	if end > len(m.transcriptLines) {
		end = len(m.transcriptLines)
	}
	for _, line := range m.transcriptLines[m.transcriptScroll:end] {
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d-%d/%d  esc: back  q: quit",
		m.transcriptScroll+1, end, len(m.transcriptLines))))
	return b.String()
}
