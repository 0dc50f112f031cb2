package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// CallStats is a snapshot of the live call, polled by the UI on every
// tick.
type CallStats struct {
	State          string
	FramesSent     uint64
	FramesReceived uint64
	FramesDropped  uint64
	AudioReceived  uint64
	VideoReceived  uint64
}

// CallUI renders the live call screen: state, elapsed time and frame
// counters. It owns the Bubble Tea program; the call itself runs in
// other goroutines and is observed through the stats callback.
type CallUI struct {
	program *tea.Program
	model   *callModel
	wg      sync.WaitGroup
}

// callEndedMsg stops the program from outside when the call finishes.
type callEndedMsg struct{}

// NewCallUI creates the call screen. stats is polled on every tick;
// onHangup is invoked once when the user presses q or Ctrl+C.
func NewCallUI(room string, stats func() CallStats, onHangup func()) *CallUI {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &CallUI{
		model: &callModel{
			room:      room,
			stats:     stats,
			onHangup:  onHangup,
			spinner:   s,
			startTime: time.Now(),
		},
	}
}

// Start runs the UI in a goroutine. Inline mode, no alt screen, so
// previous terminal output stays visible.
func (ui *CallUI) Start() {
	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		ui.program = tea.NewProgram(ui.model)
		if _, err := ui.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
}

// Stop ends the UI once the call has finished and waits for the screen
// to be released.
func (ui *CallUI) Stop() {
	if ui.program != nil {
		ui.program.Send(callEndedMsg{})
	}
	ui.wg.Wait()
}

type callModel struct {
	room      string
	stats     func() CallStats
	onHangup  func()
	spinner   spinner.Model
	startTime time.Time

	current  CallStats
	hungUp   bool
	quitting bool
}

// tickMsg drives the stats refresh.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *callModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *callModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.hungUp {
				m.hungUp = true
				m.onHangup()
			}
			// The call winds down in the background; the program quits
			// on callEndedMsg.
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		m.current = m.stats()
		return m, tickCmd()

	case callEndedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *callModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n%s %s\n\n",
		TitleStyle.Render(IconLock+" Secure Call"),
		MutedStyle.Render("room "+maskSecret(m.room))))

	stateLine := fmt.Sprintf("%s %s", m.spinner.View(), m.current.State)
	if m.hungUp {
		stateLine = fmt.Sprintf("%s hanging up...", m.spinner.View())
	}
	b.WriteString(stateLine + "\n\n")

	elapsed := time.Since(m.startTime)
	b.WriteString(fmt.Sprintf("  %s  %s\n", IconTime, formatCallDuration(elapsed)))
	b.WriteString(fmt.Sprintf("  %s  sent %d frames\n", IconConnect, m.current.FramesSent))
	b.WriteString(fmt.Sprintf("  %s  audio %d / video %d frames",
		IconPeer, m.current.AudioReceived, m.current.VideoReceived))
	if m.current.FramesDropped > 0 {
		b.WriteString(WarningStyle.Render(fmt.Sprintf("  (%d dropped)", m.current.FramesDropped)))
	}
	b.WriteString("\n")

	b.WriteString("\n" + MutedStyle.Render("Press q to hang up"))

	return b.String()
}

// maskSecret hides all but the last two digits of the PIN so a shared
// screen does not leak the room.
func maskSecret(secret string) string {
	if len(secret) <= 2 {
		return secret
	}
	return strings.Repeat("*", len(secret)-2) + secret[len(secret)-2:]
}

func formatCallDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
