package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/junhyuk-choi/labelpipe/internal/pipeline"
)

const pollInterval = 200 * time.Millisecond

// Theme holds the color scheme for the progress display.
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

// tickMsg triggers re-reading the tracker.
type tickMsg time.Time

// doneMsg signals the run finished (any terminal state).
type doneMsg struct{}

// progressModel is the bubbletea model for run progress.
type progressModel struct {
	tracker     *pipeline.Tracker
	done        <-chan struct{}
	onInterrupt func()

	snap     pipeline.Snapshot
	progress progress.Model
	theme    Theme
	stopping bool
	finished bool
}

func newProgressModel(tracker *pipeline.Tracker, done <-chan struct{}, onInterrupt func()) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		tracker:     tracker,
		done:        done,
		onInterrupt: onInterrupt,
		snap:        tracker.Current(),
		progress:    prog,
		theme:       defaultTheme,
	}
}

// Init starts the poll loop and the done watcher.
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		waitDone(m.done),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Request a graceful stop; the display stays up until the
			// drain-and-save sequence completes.
			if !m.stopping {
				m.stopping = true
				if m.onInterrupt != nil {
					m.onInterrupt()
				}
			}
			return m, nil
		}

	case tickMsg:
		m.snap = m.tracker.Current()
		return m, tickCmd()

	case doneMsg:
		m.snap = m.tracker.Current()
		m.finished = true
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	s := m.snap

	if m.finished {
		switch s.State {
		case pipeline.StateCompleted:
			return m.theme.completedStyle().Render("✓ Labeling complete") + "\n"
		case pipeline.StateInterrupted:
			return m.theme.hintStyle().Render("Stopped, checkpoint saved.") + "\n"
		default:
			return m.theme.errorStyle().Render(fmt.Sprintf("✗ Run failed: %s", s.Err)) + "\n"
		}
	}

	var pct float64
	if s.TotalBatches > 0 {
		pct = float64(s.DoneBatches) / float64(s.TotalBatches)
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", s.State))
	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d batches", s.DoneBatches, s.TotalBatches)
	if s.SkippedBatches > 0 {
		counts += fmt.Sprintf(" (%d restored)", s.SkippedBatches)
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to stop and save a checkpoint")
	if m.stopping {
		hint = m.theme.hintStyle().Render("Stopping: draining in-flight batches...")
	}

	return fmt.Sprintf("%s %s %s\n%s\n", status, bar, counts, hint)
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitDone blocks on the run's completion channel as a command.
func waitDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

// showProgress runs the interactive progress UI until the run reaches a
// terminal state. onInterrupt wiring comes from the caller so Ctrl+C stops
// the run gracefully instead of killing the process.
func showProgress(ctx context.Context, tracker *pipeline.Tracker, done <-chan struct{}, onInterrupt func()) error {
	model := newProgressModel(tracker, done, onInterrupt)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}
	return nil
}
