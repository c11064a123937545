// Package tui implements the interactive thread explorer: a filterable
// list of conversation threads with a full transcript view.
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/convolab/convoscope/internal/conv"
	"github.com/convolab/convoscope/internal/filter"
	"github.com/convolab/convoscope/internal/metrics"
)

type level int

const (
	levelList level = iota
	levelTranscript
)

// Model is the bubbletea model for the explorer.
type Model struct {
	ds *conv.Dataset

	// Current filter state. regionIdx indexes regions; 0 means all.
	keyword   string
	regions   []string
	regionIdx int

	// Derived from the filter; rebuilt by applyFilter.
	threads []conv.Thread
	stats   metrics.Snapshot

	level        level
	cursor       int
	scrollOffset int
	pageSize     int
	width        int
	height       int

	searchActive bool
	searchInput  textinput.Model

	transcript       *conv.Thread
	transcriptLines  []string
	transcriptScroll int

	err      error
	quitting bool
}

// New builds the explorer over a loaded dataset.
func New(ds *conv.Dataset) Model {
	ti := textinput.New()
	ti.Placeholder = "keyword filter"
	ti.CharLimit = 200
	ti.Width = 40

	m := Model{
		ds:          ds,
		regions:     ds.Regions(),
		pageSize:    20,
		width:       100,
		height:      30,
		searchInput: ti,
	}
	m.applyFilter()
	return m
}

// Run starts the explorer and blocks until the user quits.
func Run(ds *conv.Dataset) error {
	p := tea.NewProgram(New(ds), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

// currentFilter assembles the active predicates.
func (m Model) currentFilter() filter.Filter {
	f := filter.Filter{Keyword: m.keyword}
	if m.regionIdx > 0 && m.regionIdx <= len(m.regions) {
		f.Regions = []string{m.regions[m.regionIdx-1]}
	}
	return f
}

// applyFilter recomputes the visible threads and stats.
func (m *Model) applyFilter() {
	v, err := filter.Apply(m.ds, m.currentFilter())
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.threads = v.Threads()
	m.stats = metrics.Compute(v)
	m.cursor = 0
	m.scrollOffset = 0
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.pageSize = msg.Height - chromeLines
		if m.pageSize < 1 {
			m.pageSize = 1
		}
		if m.level == levelTranscript && m.transcript != nil {
			m.transcriptLines = m.renderTranscriptLines()
			m.clampTranscriptScroll()
		}
		return m, nil

	case tea.KeyMsg:
		if m.searchActive {
			return m.handleSearchKeys(msg)
		}
		switch m.level {
		case levelTranscript:
			return m.handleTranscriptKeys(msg)
		default:
			return m.handleListKeys(msg)
		}
	}
	return m, nil
}

// handleSearchKeys handles keys while the keyword input is focused.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchActive = false
		m.keyword = m.searchInput.Value()
		m.applyFilter()
		return m, nil
	case "esc":
		m.searchActive = false
		m.searchInput.SetValue(m.keyword)
		return m, nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	default:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.threads)-1 {
			m.cursor++
		}
	case "pgup", "ctrl+u":
		m.cursor -= m.pageSize
		if m.cursor < 0 {
			m.cursor = 0
		}
	case "pgdown", "ctrl+d":
		m.cursor += m.pageSize
		if m.cursor > len(m.threads)-1 {
			m.cursor = len(m.threads) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.threads) - 1
		if m.cursor < 0 {
			m.cursor = 0
		}

	case "/":
		m.searchActive = true
		m.searchInput.SetValue(m.keyword)
		m.searchInput.Focus()
		return m, textinput.Blink

	case "r":
		m.regionIdx = (m.regionIdx + 1) % (len(m.regions) + 1)
		m.applyFilter()

	case "esc":
		if m.keyword != "" || m.regionIdx != 0 {
			m.keyword = ""
			m.regionIdx = 0
			m.searchInput.SetValue("")
			m.applyFilter()
		}

	case "enter":
		if len(m.threads) > 0 && m.cursor < len(m.threads) {
			t := m.threads[m.cursor]
			m.transcript = &t
			m.transcriptLines = m.renderTranscriptLines()
			m.transcriptScroll = 0
			m.level = levelTranscript
		}
	}

	m.ensureCursorVisible()
	return m, nil
}

func (m Model) handleTranscriptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.level = levelList
		m.transcript = nil
		m.transcriptLines = nil

	case "up", "k":
		if m.transcriptScroll > 0 {
			m.transcriptScroll--
		}
	case "down", "j":
		m.transcriptScroll++
		m.clampTranscriptScroll()
	case "pgup", "ctrl+u":
		m.transcriptScroll -= m.pageSize
		if m.transcriptScroll < 0 {
			m.transcriptScroll = 0
		}
	case "pgdown", "ctrl+d":
		m.transcriptScroll += m.pageSize
		m.clampTranscriptScroll()
	case "home", "g":
		m.transcriptScroll = 0
	case "end", "G":
		m.transcriptScroll = len(m.transcriptLines)
		m.clampTranscriptScroll()
	}
	return m, nil
}

func (m *Model) ensureCursorVisible() {
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+m.pageSize {
		m.scrollOffset = m.cursor - m.pageSize + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m *Model) clampTranscriptScroll() {
	maxScroll := len(m.transcriptLines) - m.pageSize
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.transcriptScroll > maxScroll {
		m.transcriptScroll = maxScroll
	}
	if m.transcriptScroll < 0 {
		m.transcriptScroll = 0
	}
}
