// Package tui provides a Bubble Tea dashboard over sync status, tracked
// sessions and the run history timeline.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jayjongcheolpark/chat2md/internal/engine"
	"github.com/jayjongcheolpark/chat2md/internal/state"
)

// ── Styles ────────────

var (
	chrome = lipgloss.NewStyle().
		Background(lipgloss.Color("24")).
		Foreground(lipgloss.Color("253"))

	titleBar = chrome.Bold(true).Padding(0, 2)

	tabOn = lipgloss.NewStyle().
		Bold(true).
		Underline(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("24")).
		Padding(0, 1)

	tabOff = lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")).
		Background(lipgloss.Color("236")).
		Padding(0, 1)

	heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("80")).
		MarginLeft(2)

	label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("75")).
		Bold(true)

	faint = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	when  = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))

	okBadge   = lipgloss.NewStyle().Foreground(lipgloss.Color("77")).Bold(true)
	skipBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Bold(true)
	failBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)

	footer = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabStatus tabID = iota
	tabSessions
	tabTimeline
	tabCount
)

func (t tabID) title() string {
	return [tabCount]string{"Status", "Sessions", "Timeline"}[t]
}

// SessionRow is one tracked transcript with its resolved project name.
type SessionRow struct {
	Path       string
	Project    string
	LastLine   int
	LastSynced time.Time
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the dashboard.
type Model struct {
	status   engine.Status
	sessions []SessionRow

	tab     tabID
	panes   [tabCount]viewport.Model
	width   int
	height  int
	sized   bool
	oldHead bool // timeline sorted oldest first
}

// New creates a dashboard model over a status snapshot and the tracked
// sessions, most recently synced first.
func New(status engine.Status, sessions []SessionRow) Model {
	rows := append([]SessionRow(nil), sessions...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].LastSynced.After(rows[j].LastSynced) })
	return Model{status: status, sessions: rows}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.sized = true
		for t := tabID(0); t < tabCount; t++ {
			m.layoutPane(t)
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab", "right", "l":
		m.tab = (m.tab + 1) % tabCount
	case "shift+tab", "left", "h":
		m.tab = (m.tab + tabCount - 1) % tabCount
	case "1", "2", "3":
		m.tab = tabID(key[0] - '1')
	case "s":
		if m.tab == tabTimeline {
			m.oldHead = !m.oldHead
			m.layoutPane(tabTimeline)
		}
	}
	var cmd tea.Cmd
	m.panes[m.tab], cmd = m.panes[m.tab].Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.sized {
		return "Loading…"
	}
	var b strings.Builder
	b.WriteString(titleBar.Width(m.width).Render("chat2md · sync dashboard"))
	b.WriteString("\n")
	b.WriteString(m.tabBar())
	b.WriteString("\n")
	b.WriteString(m.panes[m.tab].View())
	b.WriteString("\n")
	b.WriteString(m.footerBar())
	return b.String()
}

func (m Model) tabBar() string {
	parts := make([]string, 0, tabCount)
	for t := tabID(0); t < tabCount; t++ {
		style := tabOff
		if t == m.tab {
			style = tabOn
		}
		parts = append(parts, style.Render(fmt.Sprintf("%d:%s", t+1, t.title())))
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	return lipgloss.NewStyle().Background(lipgloss.Color("236")).Width(m.width).Render(bar)
}

func (m Model) footerBar() string {
	hints := "tab/←→ switch · ↑↓ scroll · 1-3 jump · q quit"
	if m.tab == tabTimeline {
		hints += " · s flip order"
	}
	pct := fmt.Sprintf("%3.0f%%", m.panes[m.tab].ScrollPercent()*100)
	gap := m.width - lipgloss.Width(hints) - len(pct) - 3
	if gap < 1 {
		gap = 1
	}
	return footer.Width(m.width).Render(hints + strings.Repeat(" ", gap) + pct)
}

// layoutPane rebuilds one tab's viewport for the current window size.
func (m *Model) layoutPane(t tabID) {
	// Three fixed rows: title, tab bar, footer.
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	pane := viewport.New(m.width, h)
	switch t {
	case tabStatus:
		pane.SetContent(m.statusPane())
	case tabSessions:
		pane.SetContent(m.sessionsPane())
	case tabTimeline:
		pane.SetContent(m.timelinePane())
	}
	m.panes[t] = pane
}

// ── Panes ─────────────────────────────

func section(title string) string {
	return "\n" + heading.Render(title) + "\n\n"
}

func fieldLine(name, value string) string {
	return fmt.Sprintf("  %s  %s\n", label.Render(fmt.Sprintf("%-14s", name)), value)
}

func badge(s state.SyncStatus) (lipgloss.Style, string) {
	switch s {
	case state.StatusSuccess:
		return okBadge, "OK"
	case state.StatusFailure:
		return failBadge, "FAIL"
	default:
		return skipBadge, "SKIP"
	}
}

func (m *Model) statusPane() string {
	var b strings.Builder
	b.WriteString(section("Sync Status"))

	st := string(m.status.State)
	switch m.status.State {
	case engine.StateError:
		st = failBadge.Render(st)
	case engine.StateSyncing:
		st = when.Render(st)
	default:
		st = okBadge.Render(st)
	}
	b.WriteString(fieldLine("State:", st))

	lastSync := faint.Render("(never)")
	if !m.status.LastSync.IsZero() {
		lastSync = m.status.LastSync.Format("2006-01-02 15:04:05 MST")
	}
	b.WriteString(fieldLine("Last Sync:", lastSync))
	if m.status.LastError != "" {
		b.WriteString(fieldLine("Last Error:", failBadge.Render(m.status.LastError)))
	}
	b.WriteString(fieldLine("Tracked Files:", fmt.Sprintf("%d", m.status.TrackedFiles)))

	var ok, skip, fail int
	for _, entry := range m.status.History {
		switch entry.Status {
		case state.StatusSuccess:
			ok++
		case state.StatusSkipped:
			skip++
		default:
			fail++
		}
	}
	b.WriteString(section(fmt.Sprintf("Last %d Runs", len(m.status.History))))
	b.WriteString(fieldLine("Succeeded:", fmt.Sprintf("%d", ok)))
	b.WriteString(fieldLine("Skipped:", fmt.Sprintf("%d", skip)))
	b.WriteString(fieldLine("Failed:", fmt.Sprintf("%d", fail)))
	return b.String()
}

func (m *Model) sessionsPane() string {
	var b strings.Builder
	b.WriteString(section(fmt.Sprintf("Tracked Sessions (%d)", len(m.sessions))))
	if len(m.sessions) == 0 {
		b.WriteString(faint.Render("  (no tracked transcripts yet)") + "\n")
		return b.String()
	}
	for _, row := range m.sessions {
		b.WriteString(fmt.Sprintf("  %s  %-24s %s\n",
			when.Render(row.LastSynced.Format("01-02 15:04")),
			row.Project,
			faint.Render(fmt.Sprintf("line %d", row.LastLine))))
		b.WriteString(faint.Render("           "+row.Path) + "\n\n")
	}
	return b.String()
}

func (m *Model) timelinePane() string {
	var b strings.Builder

	order := "newest first"
	if m.oldHead {
		order = "oldest first"
	}
	b.WriteString(section(fmt.Sprintf("Run Timeline (%s)", order)))
	if len(m.status.History) == 0 {
		b.WriteString(faint.Render("  (no recorded runs yet)") + "\n")
		return b.String()
	}

	// Sparkline strip, oldest run on the left.
	b.WriteString("  ")
	for i := len(m.status.History) - 1; i >= 0; i-- {
		style, _ := badge(m.status.History[i].Status)
		dot := "●"
		if m.status.History[i].Status == state.StatusFailure {
			dot = "✗"
		} else if m.status.History[i].Status == state.StatusSkipped {
			dot = "○"
		}
		b.WriteString(style.Render(dot))
	}
	b.WriteString("\n\n")

	entries := append([]state.SyncHistoryEntry(nil), m.status.History...)
	sort.Slice(entries, func(i, j int) bool {
		if m.oldHead {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	for _, entry := range entries {
		style, word := badge(entry.Status)
		detail := ""
		switch entry.Status {
		case state.StatusSuccess:
			detail = fmt.Sprintf("%d file(s) synced", entry.FilesCount)
		case state.StatusFailure:
			detail = entry.Message
		default:
			detail = faint.Render("nothing new")
		}
		b.WriteString(fmt.Sprintf("  %s  %s  %s\n\n",
			when.Render(entry.Timestamp.Format("Jan 02 15:04:05")),
			style.Render(fmt.Sprintf("%-4s", word)),
			detail))
	}
	return b.String()
}

// Run starts the dashboard.
func Run(status engine.Status, sessions []SessionRow) error {
	p := tea.NewProgram(New(status, sessions), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
