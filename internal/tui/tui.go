// Package tui provides a Bubble Tea terminal user interface for snarf.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/handiism/snarf/internal/app"
	"github.com/handiism/snarf/internal/config"
	"github.com/handiism/snarf/internal/download"
	"golang.org/x/sync/errgroup"
)

// Palette
var (
	accent = lipgloss.Color("#F4A261")
	teal   = lipgloss.Color("#4ECDC4")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().Foreground(teal)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(teal).
			Padding(1, 2)

	fileStyle = lipgloss.NewStyle().Foreground(accent)
)

// levelStyles sets how each progress level is drawn in the log pane.
var levelStyles = map[download.ProgressLevel]struct {
	style  lipgloss.Style
	prefix string
}{
	download.LevelError:   {errorStyle, "✗"},
	download.LevelWarning: {warningStyle, "!"},
	download.LevelSuccess: {successStyle, "✓"},
	download.LevelInfo:    {infoStyle, "›"},
}

// maxLogs is the number of log lines kept on screen.
const maxLogs = 10

// maxListed is the number of file names shown before "and N more".
const maxListed = 8

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// startRequest asks the sync goroutine to begin a run.
type startRequest struct {
	ctx       context.Context
	outputDir string
	all       bool
	dryRun    bool
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	items     []string
	summary   download.Summary
	err       error

	// Run context, cancelled by esc
	ctx    context.Context
	cancel context.CancelFunc

	starts chan<- startRequest

	// Current transfer
	transfer download.TransferEvent

	// Options
	all     bool
	dryRun  bool
	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model. Start requests are delivered on starts.
func NewModel(settings *config.Settings, starts chan<- startRequest) Model {
	ti := textinput.New()
	ti.Placeholder = "output"
	ti.SetValue(settings.OutputDir)
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		starts:    starts,
		all:       !settings.PublicOnly,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent for every sync progress event.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// TransferMsg carries byte progress of the current download.
	TransferMsg struct {
		Event download.TransferEvent
	}

	// ReadyMsg is sent when the catalog has been listed and normalized.
	ReadyMsg struct {
		Items []string
	}

	// DoneMsg is sent when the run is over.
	DoneMsg struct {
		Summary download.Summary
		Err     error
	}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateInitializing {
				m.cancel()
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				m.state = StateInitializing
				return m, tea.Batch(m.requestStart(), m.spinner.Tick)
			}

		case "alt+a":
			if m.state == StateInput {
				m.all = !m.all
				return m, nil
			}

		case "alt+n":
			if m.state == StateInput {
				m.dryRun = !m.dryRun
				return m, nil
			}

		case "alt+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for another run
				m.state = StateInput
				m.logs = nil
				m.items = nil
				m.err = nil
				m.summary = download.Summary{}
				m.transfer = download.TransferEvent{}
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.Focus()
				return m, m.progress.SetPercent(0)
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		// Filter verbose messages if not in verbose mode
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			return m, nil
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case ReadyMsg:
		m.items = msg.Items
		m.state = StateDownloading

	case TransferMsg:
		m.transfer = msg.Event
		cmds = append(cmds, m.progress.SetPercent(batchPercent(msg.Event)))

	case DoneMsg:
		m.summary = msg.Summary
		switch {
		case errors.Is(msg.Err, context.Canceled):
			m.state = StateError
			m.err = errors.New("cancelled by user")
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
			cmds = append(cmds, m.progress.SetPercent(1))
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// batchPercent is the share of the batch done, counting the current item
// by its bytes when the size is known.
func batchPercent(e download.TransferEvent) float64 {
	if e.Total <= 0 {
		return 0
	}
	current := 0.0
	if e.Size > 0 {
		current = float64(e.Written) / float64(e.Size)
	}
	return (float64(e.Index-1) + current) / float64(e.Total)
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("📷 snarf"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Sync your photo catalog"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Output directory:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Include non-public photos (alt+a)\n", checkbox(m.all)))
	b.WriteString(fmt.Sprintf("  %s Dry run (alt+n)\n", checkbox(m.dryRun)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (alt+v)\n", checkbox(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Credential: %s", m.settings.CredentialFile)))
	b.WriteString("\n")

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Listing catalog..."))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if len(m.items) > 0 {
		b.WriteString(successStyle.Render(fmt.Sprintf("Found %d item(s):", len(m.items))))
		b.WriteString("\n")
		for i, name := range m.items {
			if i == maxListed {
				b.WriteString(dimStyle.Render(fmt.Sprintf("  … and %d more", len(m.items)-maxListed)))
				b.WriteString("\n")
				break
			}
			b.WriteString(fileStyle.Render("  • " + name))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.progress.View())
	b.WriteString("\n")

	if m.transfer.Total > 0 {
		size := "?"
		if m.transfer.Size >= 0 {
			size = fmt.Sprintf("%.2f MB", float64(m.transfer.Size)/1024/1024)
		}
		b.WriteString(infoStyle.Render(fmt.Sprintf(
			"%s %s | %.2f MB / %s",
			m.transfer.Label(),
			m.transfer.Name,
			float64(m.transfer.Written)/1024/1024,
			size,
		)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	s := m.summary
	title := "✨ Sync Complete!"
	if s.Pending > 0 {
		title = "✨ Dry Run Complete!"
	}
	text := fmt.Sprintf(
		"%s\n\n"+
			"Listed: %d\n"+
			"Downloaded: %d\n"+
			"Skipped: %d\n"+
			"Failed: %d",
		title, s.Listed, s.Downloaded, s.Skipped, s.Failed,
	)
	if s.Pending > 0 {
		text += fmt.Sprintf("\nWould download: %d", s.Pending)
	}

	var b strings.Builder
	b.WriteString(boxStyle.Render(text))
	b.WriteString("\n")
	for _, f := range s.Failures {
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", f.Name, f.Err)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder
	for _, entry := range m.logs {
		style, prefix := dimStyle, "•"
		if ls, ok := levelStyles[entry.Level]; ok {
			style, prefix = ls.style, ls.prefix
		}
		b.WriteString(style.Render(prefix + " " + entry.Message))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • alt+a: all photos • alt+n: dry run • alt+v: verbose • esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: run again • q: quit"
	}
	return ""
}

// requestStart hands the run options to the sync goroutine.
func (m Model) requestStart() tea.Cmd {
	req := startRequest{
		ctx:       m.ctx,
		outputDir: strings.TrimSpace(m.textInput.Value()),
		all:       m.all,
		dryRun:    m.dryRun,
	}
	starts := m.starts
	return func() tea.Msg {
		select {
		case starts <- req:
			return nil
		case <-req.ctx.Done():
			return DoneMsg{Err: req.ctx.Err()}
		}
	}
}

// Run starts the TUI application.
//
// The Bubble Tea program and the sync run on two goroutines of one errgroup.
// The sync goroutine waits for start requests from the UI and reports back
// through Program.Send; it stops when the program exits.
func Run(ctx context.Context, settings *config.Settings, logger *log.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	starts := make(chan startRequest)
	p := tea.NewProgram(NewModel(settings, starts), tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case req := <-starts:
				summary, err := runSync(req, settings, logger, p)
				p.Send(DoneMsg{Summary: summary, Err: err})
			}
		}
	})

	return g.Wait()
}

// runSync performs one run with the options chosen in the UI.
func runSync(req startRequest, settings *config.Settings, logger *log.Logger, p *tea.Program) (download.Summary, error) {
	s := *settings
	s.OutputDir = req.outputDir
	s.PublicOnly = !req.all

	session, err := app.Open(req.ctx, &s, app.Options{
		DryRun: req.dryRun,
		Logger: logger,
		OnProgress: func(e download.ProgressEvent) {
			p.Send(ProgressMsg{Event: e})
		},
		OnTransfer: func(e download.TransferEvent) {
			p.Send(TransferMsg{Event: e})
		},
		OnReady: func(names []string) {
			p.Send(ReadyMsg{Items: names})
		},
	})
	if err != nil {
		return download.Summary{}, err
	}
	defer session.Close()

	p.Send(ProgressMsg{Event: download.ProgressEvent{
		Message: fmt.Sprintf("Signed in as %s", session.User),
		Level:   download.LevelInfo,
	}})

	return session.Manager.Run(req.ctx)
}
