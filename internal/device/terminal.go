package device

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	bodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
)

// Terminal renders a one-block status view of each frame to a writer.
type Terminal struct {
	out   io.Writer
	width int
	title string
}

// NewTerminal returns a terminal device writing to out. A width of 0 leaves
// lines unwrapped.
func NewTerminal(out io.Writer, width int) *Terminal {
	return &Terminal{out: out, width: width, title: "tricore"}
}

func (t *Terminal) Present(_ context.Context, f Frame) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(t.title))
	b.WriteString(" ")
	b.WriteString(headerStyle.Render(fmt.Sprintf("frame %d  sim %d  bodies %d", f.Number, f.Scene.Frame, len(f.Scene.Bodies))))
	b.WriteString("\n")

	body := bodyStyle
	if t.width > 0 {
		body = body.Width(t.width)
	}
	for _, line := range f.Lines {
		b.WriteString(body.Render(line))
		b.WriteString("\n")
	}
	_, err := io.WriteString(t.out, b.String())
	return err
}

func (t *Terminal) Apply(c Command) error {
	switch c.Kind {
	case CommandResize:
		if c.Width < 0 {
			return fmt.Errorf("invalid width %d", c.Width)
		}
		t.width = c.Width
	case CommandTitle:
		t.title = c.Text
	default:
		return fmt.Errorf("unsupported command %q", c.Kind)
	}
	return nil
}

func (t *Terminal) Close() error { return nil }
