// Package status renders evaluated sensor readings as a terminal report for
// the `ovoau status` command.
package status

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kgrahame/ovoau/internal/sensors"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	readings []sensors.Reading
	opts     RenderOptions
	styles   styles
	output   string
}

func newModel(readings []sensors.Reading, opts RenderOptions) model {
	return model{
		readings: readings,
		opts:     opts,
		styles:   newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = renderView(m.readings, m.opts, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// Render runs a one-shot bubbletea program to produce the report. Input and
// output are detached; the caller prints the returned string.
func Render(readings []sensors.Reading, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(readings, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}
	return rendered.View(), nil
}
