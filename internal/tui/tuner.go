// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"tuner/internal/analysis"
)

const (
	needleWidth     = 41 // odd so zero cents has its own cell
	meterWidth      = 30
	meterFloorDB    = 60.0 // level meter range below full scale
	levelInterval   = 50 * time.Millisecond
	sensitivityStep = 1.25
)

// Controls is what the tuner screen needs from the running engine.
type Controls interface {
	analysis.SensitivityController
	PeakLevel() float64
}

type tunerKeys struct {
	More key.Binding
	Less key.Binding
	Help key.Binding
	Quit key.Binding
}

func (k tunerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.More, k.Less, k.Help, k.Quit}
}

func (k tunerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.More, k.Less}, {k.Help, k.Quit}}
}

func newTunerKeys() tunerKeys {
	return tunerKeys{
		More: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "raise gate")),
		Less: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "lower gate")),
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type (
	readingMsg      analysis.Reading
	streamClosedMsg struct{}
	levelMsg        time.Time
)

// TunerModel is the live tuner screen. Readings arrive on a channel fed by a
// transport.ChannelTransport; the input level is polled from Controls.
type TunerModel struct {
	readings <-chan any
	controls Controls
	source   string

	keys  tunerKeys
	help  help.Model
	meter progress.Model

	reading     analysis.Reading
	hasReading  bool
	level       float64
	sensitivity float64
	closed      bool
}

// NewTunerModel builds the screen. source is a short description of the
// input shown next to the title. controls may be nil.
func NewTunerModel(readings <-chan any, controls Controls, source string) TunerModel {
	m := TunerModel{
		readings: readings,
		controls: controls,
		source:   source,
		keys:     newTunerKeys(),
		help:     help.New(),
		meter: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(meterWidth),
			progress.WithoutPercentage(),
		),
	}
	if controls != nil {
		m.sensitivity = controls.Sensitivity()
	}
	return m
}

func (m TunerModel) Init() tea.Cmd {
	return tea.Batch(waitForReading(m.readings), pollLevel())
}

// waitForReading blocks on the channel until a Reading (or close) arrives.
func waitForReading(ch <-chan any) tea.Cmd {
	return func() tea.Msg {
		for v := range ch {
			if r, ok := v.(analysis.Reading); ok {
				return readingMsg(r)
			}
		}
		return streamClosedMsg{}
	}
}

func pollLevel() tea.Cmd {
	return tea.Tick(levelInterval, func(t time.Time) tea.Msg {
		return levelMsg(t)
	})
}

func (m TunerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case readingMsg:
		m.reading = analysis.Reading(msg)
		m.hasReading = true
		return m, waitForReading(m.readings)

	case streamClosedMsg:
		m.closed = true
		return m, tea.Quit

	case levelMsg:
		if m.controls != nil {
			m.level = m.controls.PeakLevel()
		}
		return m, pollLevel()

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.meter.Width = max(10, min(meterWidth, msg.Width-20))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.More):
			m.adjustSensitivity(sensitivityStep)
		case key.Matches(msg, m.keys.Less):
			m.adjustSensitivity(1 / sensitivityStep)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

// adjustSensitivity scales the gate multiplier; the engine clamps it.
func (m *TunerModel) adjustSensitivity(factor float64) {
	if m.controls == nil {
		return
	}
	m.sensitivity = m.controls.SetSensitivity(m.controls.Sensitivity() * factor)
}

func (m TunerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Tuner"))
	if m.source != "" {
		b.WriteString("  " + dimStyle.Render(m.source))
	}
	b.WriteString("\n\n")

	b.WriteString(noteStyle.Render(m.noteLabel()))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(m.detailLabel()))
	b.WriteString("\n\n")

	if cents, ok := m.cents(); ok {
		b.WriteString(dimStyle.Render("-50 ") + centsStyle(cents).Render(renderNeedle(cents, needleWidth)) + dimStyle.Render(" +50"))
	} else {
		b.WriteString(dimStyle.Render("-50 " + renderNeedle(0, needleWidth) + " +50"))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Level  %s %s\n", m.meter.ViewAs(levelPercent(m.level)), dimStyle.Render(formatDB(m.level)))
	fmt.Fprintf(&b, "Gate   %s\n", highlightStyle.Render(fmt.Sprintf("x%.2f", m.sensitivity)))
	if m.hasReading {
		fmt.Fprintf(&b, "Energy %s\n", dimStyle.Render(fmt.Sprintf("%.0f", m.reading.Energy)))
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m TunerModel) noteLabel() string {
	if !m.hasReading || !m.reading.Tone || m.reading.Note == nil {
		return "--"
	}
	return fmt.Sprintf("%s%d", m.reading.Note.Name, m.reading.Note.Octave)
}

func (m TunerModel) detailLabel() string {
	switch {
	case !m.hasReading:
		return "waiting for input..."
	case !m.reading.Tone:
		return "no tone (" + m.reading.Reason + ")"
	case m.reading.Note == nil:
		return fmt.Sprintf("%.2f Hz", m.reading.Frequency)
	default:
		return fmt.Sprintf("%.2f Hz  %+.0f cents", m.reading.Frequency, m.reading.Note.Cents)
	}
}

func (m TunerModel) cents() (float64, bool) {
	if !m.hasReading || !m.reading.Tone || m.reading.Note == nil {
		return 0, false
	}
	return m.reading.Note.Cents, true
}

// renderNeedle draws a ±50 cent scale with a marker at cents.
func renderNeedle(cents float64, width int) string {
	center := width / 2
	pos := center + int(math.Round(cents/50*float64(center)))
	pos = max(0, min(width-1, pos))

	cells := make([]rune, width)
	for i := range cells {
		cells[i] = '─'
	}
	cells[center] = '┼'
	cells[pos] = '▼'
	return string(cells)
}

// levelPercent maps a 0-1 peak level onto the meter on a dB scale.
func levelPercent(peak float64) float64 {
	if peak <= 0 {
		return 0
	}
	db := 20 * math.Log10(peak)
	return max(0, min(1, (db+meterFloorDB)/meterFloorDB))
}

func formatDB(peak float64) string {
	if peak <= 0 {
		return "  -inf dB"
	}
	return fmt.Sprintf("%5.1f dB", 20*math.Log10(peak))
}

// RunTuner shows the tuner screen until the user quits or readings stop.
func RunTuner(readings <-chan any, controls Controls, source string) error {
	p := tea.NewProgram(NewTunerModel(readings, controls, source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
