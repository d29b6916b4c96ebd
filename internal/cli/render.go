// Package cli is the terminal rendering surface of the board client: it draws
// board views, reports failed actions and turns typed commands into intents.
package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/engine"
)

var (
	colorAccent = lipgloss.Color("#20B9B4") //nolint:gochecknoglobals // palette
	colorBorder = lipgloss.Color("#16858E") //nolint:gochecknoglobals // palette
	colorMuted  = lipgloss.Color("#6C7A80") //nolint:gochecknoglobals // palette
	colorError  = lipgloss.Color("#E74C3C") //nolint:gochecknoglobals // palette
)

type styles struct {
	column lipgloss.Style
	header lipgloss.Style
	card   lipgloss.Style
	id     lipgloss.Style
	empty  lipgloss.Style
	failed lipgloss.Style
}

func newStyles(width int) styles {
	return styles{
		column: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(width),
		header: lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		card:   lipgloss.NewStyle(),
		id:     lipgloss.NewStyle().Foreground(colorMuted),
		empty:  lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		failed: lipgloss.NewStyle().Foreground(colorError),
	}
}

// ShortIDLen is how many leading characters of a card id are shown.
const ShortIDLen = 8

// Renderer draws the board and failure reports to a writer. It implements
// engine.Observer.
type Renderer struct {
	mu     sync.Mutex
	out    io.Writer
	styles styles
	quiet  bool
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithColumnWidth sets the inner width of each column box.
func WithColumnWidth(w int) RendererOption {
	return func(r *Renderer) { r.styles = newStyles(w) }
}

// WithQuietBoard suppresses redraws on every board change. Failures are still
// reported.
func WithQuietBoard() RendererOption {
	return func(r *Renderer) { r.quiet = true }
}

func NewRenderer(out io.Writer, opts ...RendererOption) *Renderer {
	r := &Renderer{out: out, styles: newStyles(28)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns the view as side by side column boxes.
func (r *Renderer) Render(v board.View) string {
	boxes := make([]string, 0, len(v.Columns))
	for _, col := range v.Columns {
		var b strings.Builder
		b.WriteString(r.styles.header.Render(fmt.Sprintf("%s (%d)", col.Title, len(col.Cards))))
		if len(col.Cards) == 0 {
			b.WriteString("\n" + r.styles.empty.Render("empty"))
		}
		for i, c := range col.Cards {
			fmt.Fprintf(&b, "\n%d. %s %s", i, r.styles.card.Render(c.Title), r.styles.id.Render(ShortID(c.ID)))
		}
		boxes = append(boxes, r.styles.column.Render(b.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

// Show writes the rendered view.
func (r *Renderer) Show(v board.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.Render(v))
}

// Printf writes unstyled text.
func (r *Renderer) Printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// Errorf writes a styled error line.
func (r *Renderer) Errorf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.styles.failed.Render("! "+fmt.Sprintf(format, args...)))
}

// BoardChanged implements engine.Observer.
func (r *Renderer) BoardChanged(v board.View) {
	if r.quiet {
		return
	}
	r.Show(v)
}

// ActionFailed implements engine.Observer.
func (r *Renderer) ActionFailed(f engine.Failure) {
	r.Errorf("%s of %s rolled back (%s): %v", f.Action, ShortID(f.CardID), f.Reason, f.Err)
}

// ShortID truncates id for display.
func ShortID(id string) string {
	if len(id) <= ShortIDLen {
		return id
	}
	return id[:ShortIDLen]
}
