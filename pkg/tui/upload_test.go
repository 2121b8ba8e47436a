package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/socialhub/socialhub-cli/pkg/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	state   upload.State
	toggles int
	cancels int
}

func (f *fakeController) TogglePause() upload.State {
	f.toggles++
	if f.state == upload.StatePaused {
		f.state = upload.StateUploading
	} else {
		f.state = upload.StatePaused
	}
	return f.state
}

func (f *fakeController) Cancel() { f.cancels++ }

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m UploadModel, msg tea.Msg) (UploadModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	um, ok := next.(UploadModel)
	require.True(t, ok)
	return um, cmd
}

func TestPauseKeyTogglesUpload(t *testing.T) {
	ctrl := &fakeController{state: upload.StateUploading}
	m := NewUploadModel("clip.mp4", ctrl)

	m, cmd := update(t, m, key("p"))
	assert.Nil(t, cmd)
	assert.Equal(t, 1, ctrl.toggles)
	assert.Contains(t, m.View(), "Paused")
	assert.Contains(t, m.View(), "p resume")

	m, _ = update(t, m, key("p"))
	assert.Equal(t, 2, ctrl.toggles)
	assert.NotContains(t, m.View(), "Paused")
}

func TestQuitKeyCancelsButWaitsForDone(t *testing.T) {
	ctrl := &fakeController{state: upload.StateUploading}
	m := NewUploadModel("clip.mp4", ctrl)

	m, cmd := update(t, m, key("q"))
	assert.Equal(t, 1, ctrl.cancels)
	assert.Nil(t, cmd, "the program keeps running until the upload reports back")

	m, cmd = update(t, m, DoneMsg{Err: upload.ErrCanceled})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "upload canceled")

	_, err := m.Result()
	assert.ErrorIs(t, err, upload.ErrCanceled)
}

func TestProgressIsRendered(t *testing.T) {
	m := NewUploadModel("clip.mp4", &fakeController{})
	m, _ = update(t, m, ProgressMsg(upload.Progress{
		BytesUploaded: 3 << 20,
		TotalBytes:    10 << 20,
		Percent:       30,
		SpeedBps:      1 << 20,
		ETA:           7 * time.Second,
		ChunkIndex:    2,
		ChunkCount:    8,
		ChunkSize:     1 << 20,
		State:         upload.StateUploading,
	}))

	view := m.View()
	assert.Contains(t, view, "Uploading clip.mp4")
	assert.Contains(t, view, "3.0 MiB / 10 MiB")
	assert.Contains(t, view, "1.0 MiB/s")
	assert.Contains(t, view, "ETA 7s")
	assert.Contains(t, view, "chunk 3/8")
}

func TestDoneMarksComplete(t *testing.T) {
	m := NewUploadModel("a.png", &fakeController{})
	m, _ = update(t, m, ProgressMsg(upload.Progress{TotalBytes: 100, BytesUploaded: 90, Percent: 90}))

	res := &upload.Result{Location: "https://cdn/a.png", Size: 100}
	m, cmd := update(t, m, DoneMsg{Result: res})
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Upload complete")
	assert.Contains(t, m.View(), "100 B / 100 B")

	got, err := m.Result()
	require.NoError(t, err)
	assert.Equal(t, res, got)
}

func TestStatsLineOmitsUnknowns(t *testing.T) {
	line := StatsLine(upload.Progress{TotalBytes: 2048, Percent: 0})
	assert.Equal(t, "0 B / 2.0 KiB • 0.0%", line)

	line = StatsLine(upload.Progress{TotalBytes: 10, Retries: 2})
	assert.True(t, strings.HasSuffix(line, "2 retries"))
}

func TestLineReporterThrottles(t *testing.T) {
	var buf bytes.Buffer
	report := LineReporter(&buf, 10)

	report(upload.Progress{State: upload.StateUploading, Percent: 0, TotalBytes: 100})
	report(upload.Progress{State: upload.StateUploading, Percent: 4, TotalBytes: 100})
	report(upload.Progress{State: upload.StateUploading, Percent: 12, TotalBytes: 100})
	report(upload.Progress{State: upload.StatePaused, Percent: 12, TotalBytes: 100})
	report(upload.Progress{State: upload.StatePaused, Percent: 12, TotalBytes: 100})
	report(upload.Progress{State: upload.StateCompleted, Percent: 100, TotalBytes: 100})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "[uploading]"))
	assert.Contains(t, lines[1], "12.0%")
	assert.True(t, strings.HasPrefix(lines[2], "[paused]"))
	assert.True(t, strings.HasPrefix(lines[3], "[completed]"))
}

func TestKeyAfterDoneQuits(t *testing.T) {
	m := NewUploadModel("a.png", &fakeController{})
	m, _ = update(t, m, DoneMsg{Err: errors.New("boom")})
	_, cmd := update(t, m, key("x"))
	require.NotNil(t, cmd)
}
