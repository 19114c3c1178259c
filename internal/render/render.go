// Package render formats session entries and state for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/omochice/relay-chat/internal/session"
	"github.com/samber/lo"
)

// SelfLabel replaces the sender name on entries the local user sent.
const SelfLabel = "You"

const timeLayout = "15:04"

// Color palette
var (
	accent      = lipgloss.Color("#8BC34A")
	muted       = lipgloss.Color("#6B7280")
	info        = lipgloss.Color("#2196F3")
	warning     = lipgloss.Color("#FFC107")
	destructive = lipgloss.Color("#e53935")
)

type styles struct {
	sentName     lipgloss.Style
	receivedName lipgloss.Style
	sentBody     lipgloss.Style
	receivedBody lipgloss.Style
	timestamp    lipgloss.Style
	placeholder  lipgloss.Style
	header       lipgloss.Style
	status       map[session.State]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	bubble := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	return styles{
		sentName:     r.NewStyle().Bold(true).Foreground(accent),
		receivedName: r.NewStyle().Bold(true).Foreground(info),
		sentBody:     bubble.BorderForeground(accent),
		receivedBody: bubble.BorderForeground(muted),
		timestamp:    r.NewStyle().Foreground(muted),
		placeholder:  r.NewStyle().Foreground(muted).Italic(true),
		header:       r.NewStyle().Bold(true).Foreground(accent),
		status: map[session.State]lipgloss.Style{
			session.StateConnecting: r.NewStyle().Foreground(warning),
			session.StateOpen:       r.NewStyle().Foreground(accent),
			session.StateClosed:     r.NewStyle().Foreground(destructive),
		},
	}
}

// Renderer draws entries at a fixed width.
type Renderer struct {
	r      *lipgloss.Renderer
	width  int
	styles styles
}

// New creates a Renderer whose color profile is detected from w.
func New(w io.Writer, width int) *Renderer {
	r := lipgloss.NewRenderer(w)
	return &Renderer{
		r:      r,
		width:  width,
		styles: newStyles(r),
	}
}

// SetWidth updates the layout width, e.g. on terminal resize.
func (r *Renderer) SetWidth(width int) {
	r.width = width
}

// Width returns the layout width.
func (r *Renderer) Width() int {
	return r.width
}

// Header greets the local user.
func (r *Renderer) Header(name string) string {
	return r.styles.header.Render("Hello, " + name)
}

// Status renders the connection state.
func (r *Renderer) Status(state session.State) string {
	style, ok := r.styles.status[state]
	if !ok {
		style = r.styles.timestamp
	}
	return style.Render("● " + state.String())
}

// Entry renders one entry as a bubble. Sent entries are right-aligned under
// SelfLabel, received ones left-aligned under the sender's name.
func (r *Renderer) Entry(e session.Entry) string {
	stamp := r.styles.timestamp.Render(e.ReceivedAt.Format(timeLayout))

	var label, body string
	align := lipgloss.Left
	if e.Origin == session.OriginSent {
		label = r.styles.sentName.Render(SelfLabel)
		body = r.styles.sentBody.Render(r.wrap(e.Content))
		align = lipgloss.Right
	} else {
		label = r.styles.receivedName.Render(e.SenderName)
		body = r.styles.receivedBody.Render(r.wrap(e.Content))
	}

	block := lipgloss.JoinVertical(align, label+" "+stamp, body)
	if r.width <= 0 {
		return block
	}
	return r.r.NewStyle().Width(r.width).Align(align).Render(block)
}

// Transcript renders every entry in order, or a placeholder for an empty log.
func (r *Renderer) Transcript(entries []session.Entry) string {
	if len(entries) == 0 {
		return r.styles.placeholder.Render("No messages yet\nStart a conversation!")
	}
	return strings.Join(lo.Map(entries, func(e session.Entry, _ int) string {
		return r.Entry(e)
	}), "\n")
}

// wrap limits bubble content to two thirds of the layout width.
func (r *Renderer) wrap(content string) string {
	if r.width <= 0 {
		return content
	}
	limit := max(r.width*2/3, 10)
	if lipgloss.Width(content) <= limit {
		return content
	}
	return r.r.NewStyle().Width(limit).Render(content)
}

// PlainLine formats an entry as a single uncolored line for line mode.
func PlainLine(e session.Entry) string {
	name := e.SenderName
	if e.Origin == session.OriginSent {
		name = SelfLabel
	}
	return fmt.Sprintf("[%s] %s: %s", e.ReceivedAt.Format(timeLayout), name, e.Content)
}
