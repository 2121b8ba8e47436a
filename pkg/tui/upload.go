// Package tui renders live terminal views for long-running commands.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/socialhub/socialhub-cli/pkg/upload"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	statsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pauseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Controller is the part of an upload the view can steer
type Controller interface {
	TogglePause() upload.State
	Cancel()
}

// ProgressMsg carries an upload snapshot into the program
type ProgressMsg upload.Progress

// DoneMsg ends the program with the upload outcome
type DoneMsg struct {
	Result *upload.Result
	Err    error
}

// UploadModel shows one upload with a progress bar. p pauses or resumes,
// q cancels.
type UploadModel struct {
	name   string
	ctrl   Controller
	bar    progress.Model
	prog   upload.Progress
	result *upload.Result
	err    error
	done   bool
}

// NewUploadModel creates the view for a named upload
func NewUploadModel(name string, ctrl Controller) UploadModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 50
	return UploadModel{
		name: name,
		ctrl: ctrl,
		bar:  bar,
		prog: upload.Progress{State: upload.StateIdle},
	}
}

// Init implements tea.Model
func (m UploadModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-10, 10), 80)

	case tea.KeyMsg:
		if m.done {
			return m, tea.Quit
		}
		switch msg.String() {
		case "p", " ":
			m.prog.State = m.ctrl.TogglePause()
		case "q", "esc", "ctrl+c":
			m.ctrl.Cancel()
		}

	case ProgressMsg:
		m.prog = upload.Progress(msg)

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		if msg.Err == nil {
			m.prog.State = upload.StateCompleted
			m.prog.BytesUploaded = m.prog.TotalBytes
			m.prog.Percent = 100
		}
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model
func (m UploadModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Uploading " + m.name))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.prog.Percent / 100))
	b.WriteString("\n")
	b.WriteString(statsStyle.Render(StatsLine(m.prog)))
	b.WriteString("\n\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(errStyle.Render("✗ " + m.err.Error()))
	case m.done:
		b.WriteString(okStyle.Render("✓ Upload complete"))
	case m.prog.State == upload.StatePaused:
		b.WriteString(pauseStyle.Render("⏸ Paused"))
		b.WriteString("  ")
		b.WriteString(helpStyle.Render("p resume • q cancel"))
	default:
		b.WriteString(helpStyle.Render("p pause • q cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

// Result returns the outcome once the program has finished
func (m UploadModel) Result() (*upload.Result, error) {
	return m.result, m.err
}

// StatsLine renders bytes, speed, ETA and chunk position
func StatsLine(p upload.Progress) string {
	parts := []string{
		fmt.Sprintf("%s / %s", humanize.IBytes(uint64(p.BytesUploaded)), humanize.IBytes(uint64(p.TotalBytes))),
		fmt.Sprintf("%.1f%%", p.Percent),
	}
	if p.SpeedBps > 0 {
		parts = append(parts, humanize.IBytes(uint64(p.SpeedBps))+"/s")
	}
	if p.ETA > 0 {
		parts = append(parts, "ETA "+p.ETA.Round(time.Second).String())
	}
	if p.ChunkCount > 0 {
		parts = append(parts, fmt.Sprintf("chunk %d/%d (%s)", p.ChunkIndex+1, p.ChunkCount, humanize.IBytes(uint64(p.ChunkSize))))
	}
	if p.Retries > 0 {
		parts = append(parts, fmt.Sprintf("%d retries", p.Retries))
	}
	return strings.Join(parts, " • ")
}

// RunUpload drives build's uploader under the progress view until it
// finishes. build receives the progress callback to install.
func RunUpload(ctx context.Context, name string, build func(onProgress func(upload.Progress)) *upload.Uploader) (*upload.Result, error) {
	// Progress is emitted from inside Update when a key pauses the upload,
	// so the callback only parks the latest snapshot and a pump forwards it.
	updates := make(chan upload.Progress, 1)
	u := build(func(p upload.Progress) {
		for {
			select {
			case updates <- p:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})

	program := tea.NewProgram(NewUploadModel(name, u), tea.WithContext(ctx))

	stop := make(chan struct{})
	var pump sync.WaitGroup
	pump.Add(1)
	go func() {
		defer pump.Done()
		for {
			select {
			case p := <-updates:
				program.Send(ProgressMsg(p))
			case <-stop:
				return
			}
		}
	}()

	done := make(chan DoneMsg, 1)
	go func() {
		res, err := u.Upload(ctx)
		close(stop)
		pump.Wait()

		msg := DoneMsg{Result: res, Err: err}
		done <- msg
		program.Send(msg)
	}()

	if _, err := program.Run(); err != nil {
		// the view died; the upload must not outlive it
		u.Cancel()
	}
	msg := <-done
	return msg.Result, msg.Err
}

// LineReporter prints a progress line whenever the state changes or the
// percentage advances by step points. It is safe for concurrent use.
func LineReporter(w io.Writer, step float64) func(upload.Progress) {
	var mu sync.Mutex
	last := -step
	var lastState upload.State

	return func(p upload.Progress) {
		mu.Lock()
		defer mu.Unlock()

		changed := p.State != lastState
		advanced := p.Percent-last >= step || (p.Percent >= 100 && last < 100)
		if !changed && !advanced {
			return
		}
		last = p.Percent
		lastState = p.State
		fmt.Fprintf(w, "[%s] %s\n", p.State, StatsLine(p))
	}
}
