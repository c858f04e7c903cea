package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/reportloom/reportloom/internal/report"
	"github.com/reportloom/reportloom/internal/workflow"
)

const pollInterval = time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the report live until it settles",
	Long: `Watch the report while drafts are generating or a finalize pass is
running. The view polls the server and quits on its own once nothing
is in flight.

Examples:
  reportloom watch
  reportloom watch -s weekly-report`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := session.Sync(ctx); err != nil {
		return fmt.Errorf("sync session: %w", err)
	}
	if !workflow.ShouldPoll(session.State()) {
		printState(session.State())
		fmt.Println("\nNothing is running; see above for where the report stands.")
		return nil
	}

	return runWatchUI(session)
}

// Theme holds the color scheme for the watch display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the report state
type tickMsg time.Time

// stateMsg carries the freshly synced report state
type stateMsg struct {
	state report.ReportState
	err   error
}

// watchModel is the bubbletea model for the live report view.
type watchModel struct {
	session  *workflow.Session
	state    report.ReportState
	loaded   bool
	flaky    bool
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newWatchModel(ses *workflow.Session) watchModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return watchModel{
		session:  ses,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init fetches the first snapshot right away instead of waiting a tick.
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchState(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchState()

	case stateMsg:
		if msg.err != nil {
			if !m.session.Synced() {
				m.err = fmt.Errorf("failed to fetch report state: %w", msg.err)
				m.done = true
				return m, tea.Quit
			}
			// Transient blip; keep the last good view and retry.
			m.flaky = true
			return m, tickCmd()
		}

		m.flaky = false
		m.loaded = true
		m.state = msg.state

		if !workflow.ShouldPoll(m.state) {
			m.done = true
			return m, tea.Quit
		}
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the watch display.
func (m watchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m watchModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if !m.loaded {
		return "Loading report state...\n"
	}

	accepted := 0
	var generating []string
	for _, sec := range m.state.Sections {
		switch sec.Status {
		case report.SectionAccepted:
			accepted++
		case report.SectionGenerating:
			generating = append(generating, sec.ID)
		}
	}

	var pct float64
	if len(m.state.Sections) > 0 {
		pct = float64(accepted) / float64(len(m.state.Sections))
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.state.ReportStatus))
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d accepted", accepted, len(m.state.Sections))

	lines := fmt.Sprintf("%s %s %s\n", status, progressBar, counts)
	if len(generating) > 0 {
		lines += fmt.Sprintf("  generating: %s\n", strings.Join(generating, ", "))
	}
	if m.flaky {
		lines += m.theme.hintStyle().Render("  connection hiccup, retrying...") + "\n"
	}
	lines += m.theme.hintStyle().Render("Press Ctrl+C to stop watching; work continues on the server") + "\n"
	return lines
}

// finalView renders the settle message.
func (m watchModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nStopped watching; work continues on the server.\nUse 'reportloom status' to check on it.\n")
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s\n", m.err))
	}

	switch m.state.ReportStatus {
	case report.StatusCompleted:
		return m.theme.completedStyle().Render("✓ Report completed\n")
	case report.StatusFailed:
		return m.theme.errorStyle().Render(fmt.Sprintf("✗ Finalize failed: %s\n", m.state.FinalizeError))
	}

	// Quiescent without a terminal status: sections are waiting on review
	// or were drafted with errors.
	var notes []string
	for _, sec := range m.state.Sections {
		switch sec.Status {
		case report.SectionReview:
			notes = append(notes, fmt.Sprintf("%s awaits review", sec.ID))
		case report.SectionError:
			notes = append(notes, fmt.Sprintf("%s failed: %s", sec.ID, sec.Error))
		}
	}
	out := fmt.Sprintf("Report is %s.\n", m.state.ReportStatus)
	for _, note := range notes {
		out += "  " + note + "\n"
	}
	return out
}

// fetchState syncs the session off the update loop.
func (m watchModel) fetchState() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := m.session.Sync(ctx)
		return stateMsg{state: m.session.State(), err: err}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runWatchUI runs the interactive watch view until the report settles or the
// user stops it. Stopping is not an error; the server keeps working.
func runWatchUI(ses *workflow.Session) error {
	model := newWatchModel(ses)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("watch UI error: %w", err)
	}

	if m, ok := finalModel.(watchModel); ok && m.err != nil && !m.quitting {
		return m.err
	}
	return nil
}
