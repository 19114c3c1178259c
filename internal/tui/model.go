// Package tui is the bubbletea front end for a chat session.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/omochice/relay-chat/internal/render"
	"github.com/omochice/relay-chat/internal/session"
)

// chromeHeight is the number of rows outside the transcript viewport:
// header, status, notice, the bordered input, and help.
const chromeHeight = 7

const help = "enter send • ctrl+r leave and rejoin • pgup/pgdown scroll • esc quit"

// Chat is the part of a session the UI drives.
type Chat interface {
	State() session.State
	Entries() []session.Entry
	Identity() (session.Identity, bool)
	Err() error
	SetIdentity(name string) error
	Send(content string) bool
	Reset()
	Updates() <-chan session.Update
}

type updateMsg session.Update

// updatesClosedMsg means the session has been torn down.
type updatesClosedMsg struct{}

// Model is the root bubbletea model.
type Model struct {
	chat     Chat
	render   *render.Renderer
	name     textinput.Model
	input    textinput.Model
	viewport viewport.Model
	notice   string
	width    int
	height   int
	ready    bool
}

// New creates a Model for chat. maxName and maxContent bound the inputs.
func New(chat Chat, r *render.Renderer, maxName, maxContent int) Model {
	name := textinput.New()
	name.Placeholder = "Your name"
	name.CharLimit = maxName
	name.Focus()

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = maxContent

	m := Model{
		chat:     chat,
		render:   r,
		name:     name,
		input:    input,
		viewport: viewport.New(r.Width(), 10),
	}
	m.syncFocus()
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate())
}

// waitForUpdate blocks on the session's notification channel.
func (m Model) waitForUpdate() tea.Cmd {
	ch := m.chat.Updates()
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(u)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.render.SetWidth(msg.Width)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = max(msg.Width-4, 1)
		m.ready = true
		m.refresh()
		return m, nil

	case updateMsg:
		if msg.Kind == session.UpdateReset || msg.Kind == session.UpdateIdentity {
			m.syncFocus()
		}
		m.refresh()
		return m, m.waitForUpdate()

	case updatesClosedMsg:
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyCtrlR:
		m.chat.Reset()
		m.name.Reset()
		m.input.Reset()
		m.notice = ""
		m.syncFocus()
		m.refresh()
		return m, nil

	case tea.KeyEnter:
		if _, ok := m.chat.Identity(); !ok {
			m.submitName()
		} else {
			m.submitMessage()
		}
		m.refresh()
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m.updateInputs(msg)
}

func (m *Model) submitName() {
	err := m.chat.SetIdentity(m.name.Value())
	switch {
	case err == nil:
		m.name.Reset()
		m.notice = ""
	case errors.Is(err, session.ErrSessionClosed):
		m.notice = "Connection closed"
	default:
		m.notice = fmt.Sprintf(`Names must be 1 to %d characters without ": "`, m.name.CharLimit)
	}
	m.syncFocus()
}

func (m *Model) submitMessage() {
	content := m.input.Value()
	if strings.TrimSpace(content) == "" {
		return
	}
	if !m.chat.Send(content) {
		m.notice = "Not connected; message not sent"
		return
	}
	m.input.Reset()
	m.notice = ""
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var nameCmd, inputCmd tea.Cmd
	m.name, nameCmd = m.name.Update(msg)
	m.input, inputCmd = m.input.Update(msg)
	return m, tea.Batch(nameCmd, inputCmd)
}

// syncFocus focuses the name field until an identity exists.
func (m *Model) syncFocus() {
	if _, ok := m.chat.Identity(); ok {
		m.name.Blur()
		m.input.Focus()
		return
	}
	m.input.Blur()
	m.name.Focus()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.render.Transcript(m.chat.Entries()))
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m Model) View() string {
	state := m.chat.State()
	identity, named := m.chat.Identity()

	switch {
	case state == session.StateConnecting && !named:
		return m.center("Connecting to relay...")
	case !named:
		return m.nameView(state)
	}

	status := m.render.Status(state)
	if err := m.chat.Err(); err != nil && state == session.StateClosed {
		status += " " + err.Error()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.render.Header(identity.Name),
		status,
		m.viewport.View(),
		m.notice,
		lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Render(m.input.View()),
		help,
	)
}

func (m Model) nameView(state session.State) string {
	lines := []string{"Enter your name to join", m.name.View()}
	if m.notice != "" {
		lines = append(lines, m.notice)
	}
	if state == session.StateClosed {
		lines = append(lines, m.render.Status(state))
	}
	lines = append(lines, "enter to join • esc to quit")
	return m.center(strings.Join(lines, "\n\n"))
}

func (m Model) center(s string) string {
	if !m.ready {
		return s
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}
