package ui

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNewTUIRenderer_RejectsNonTTY(t *testing.T) {
	r, err := NewTUIRenderer(NewConfig(&bytes.Buffer{}))

	assert.ErrorIs(t, err, errNotTTY)
	assert.Nil(t, r)
}

func TestRebuildModel_StageIndicators(t *testing.T) {
	// Given: a model in the extract stage
	tracker := NewProgressTracker()
	tracker.SetStage(StageExtracting, 10)
	model := newRebuildModel(tracker, "/docs")
	model.styles = NoColorStyles()

	// When: rendering
	view := model.View()

	// Then: all stages and the root are shown
	assert.Contains(t, view, "Scanning")
	assert.Contains(t, view, "Extracting")
	assert.Contains(t, view, "Indexing")
	assert.Contains(t, view, "/docs")
	assert.Contains(t, view, "● Scanning")
	assert.Contains(t, view, "○ Indexing")
}

func TestRebuildModel_ProgressDisplay(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.SetStage(StageIndexing, 100)
	tracker.Update(50, "notes/today.md")
	model := newRebuildModel(tracker, "")
	model.styles = NoColorStyles()

	view := model.View()

	assert.Contains(t, view, "50 / 100 documents")
	assert.Contains(t, view, "50%")
	assert.Contains(t, view, "notes/today.md")
}

func TestRebuildModel_ScanWithoutTotal(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.Update(7, "")
	model := newRebuildModel(tracker, "")
	model.styles = NoColorStyles()

	assert.Contains(t, model.View(), "7 documents found")
}

func TestRebuildModel_StatusBar(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.AddError(ErrorEvent{File: "a.md", IsWarn: true})
	tracker.AddError(ErrorEvent{File: "b.md"})
	model := newRebuildModel(tracker, "")
	model.styles = NoColorStyles()

	view := model.View()

	assert.Contains(t, view, "1 skipped")
	assert.Contains(t, view, "1 unreadable")
	assert.Contains(t, view, "q to quit")
}

func TestRebuildModel_Update(t *testing.T) {
	tests := []struct {
		name     string
		msg      tea.Msg
		wantQuit bool
		check    func(t *testing.T, m *rebuildModel)
	}{
		{
			name:     "quit key",
			msg:      tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")},
			wantQuit: true,
			check: func(t *testing.T, m *rebuildModel) {
				assert.True(t, m.quitting)
				assert.Equal(t, "Cancelled.\n", m.View())
			},
		},
		{
			name: "window resize",
			msg:  tea.WindowSizeMsg{Width: 120, Height: 40},
			check: func(t *testing.T, m *rebuildModel) {
				assert.Equal(t, 120, m.width)
				assert.Equal(t, 100, m.progressBar.Width)
			},
		},
		{
			name: "narrow window keeps minimum bar",
			msg:  tea.WindowSizeMsg{Width: 30, Height: 10},
			check: func(t *testing.T, m *rebuildModel) {
				assert.Equal(t, 20, m.progressBar.Width)
			},
		},
		{
			name:     "complete",
			msg:      completeMsg(CompletionStats{Documents: 5, Generation: 2, Duration: 250 * time.Millisecond, Skipped: 1}),
			wantQuit: true,
			check: func(t *testing.T, m *rebuildModel) {
				m.styles = NoColorStyles()
				view := m.View()
				assert.Contains(t, view, "Index rebuilt")
				assert.Contains(t, view, "5")
				assert.Contains(t, view, "250ms")
				assert.Contains(t, view, "1 skipped")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newRebuildModel(NewProgressTracker(), "")

			_, cmd := m.Update(tt.msg)

			if tt.wantQuit {
				assert.NotNil(t, cmd)
				assert.IsType(t, tea.QuitMsg{}, cmd())
			}
			tt.check(t, m)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{1234 * time.Microsecond, "1ms"},
		{250 * time.Millisecond, "250ms"},
		{5 * time.Second, "5s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{90 * time.Minute, "1h 30m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.in))
		})
	}
}

func TestTruncateFilePath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		maxLen int
		want   string
	}{
		{"fits", "docs/a.md", 20, "docs/a.md"},
		{"keeps file name", "very/long/directory/name/file.md", 20, "...tory/name/file.md"},
		{"long file name", "dir/averyveryverylongname.md", 10, "...name.md"},
		{"no directory", "averyveryverylongname.md", 10, "...name.md"},
		{"tiny limit", "dir/file.md", 3, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateFilePath(tt.path, tt.maxLen)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), max(tt.maxLen, 3))
		})
	}
}
