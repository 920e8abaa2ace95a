package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/muesli/reflow/wordwrap"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/telemetry"
)

const (
	maxLogLines  = 1000
	maxTableRows = 50
	tableHeight  = 8
)

// sender pushes command frames back through the relay. *Client satisfies it.
type sender interface {
	Send(text string) error
}

// eventMsg carries a classified relay frame into the model.
type eventMsg struct{ ev Event }

// errMsg reports the end of the relay connection. err is nil on a clean
// close.
type errMsg struct{ err error }

type watchModel struct {
	sender    sender
	serverURL string

	table table.Model
	vp    viewport.Model
	input textinput.Model

	logs    []string
	samples []telemetry.Sample

	typing     bool
	wrap       bool
	autoscroll bool

	width  int
	height int

	frames int
	err    error
}

func newWatchModel(s sender, serverURL string) watchModel {
	cols := []table.Column{
		{Title: "Time", Width: 20},
		{Title: "Lat", Width: 11},
		{Title: "Lon", Width: 11},
		{Title: "Alt", Width: 8},
		{Title: "Batt", Width: 8},
		{Title: "Meta", Width: 24},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(tableHeight))

	input := textinput.New()
	input.Placeholder = "command to broadcast"
	input.Prompt = "> "
	input.Focus()

	return watchModel{
		sender:     s,
		serverURL:  serverURL,
		table:      t,
		vp:         viewport.New(0, 0),
		input:      input,
		typing:     true,
		autoscroll: true,
	}
}

func (m watchModel) Init() tea.Cmd { return textinput.Blink }

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.typing {
			switch msg.Type {
			case tea.KeyCtrlC:
				return m, tea.Quit
			case tea.KeyEsc:
				m.typing = false
				m.input.Blur()
			case tea.KeyEnter:
				text := strings.TrimSpace(m.input.Value())
				if text != "" {
					if err := m.sender.Send(text); err != nil {
						m.appendLog(fmt.Sprintf("%ssend failed: %v%s", colorRed, err, colorReset))
					} else {
						m.appendLog(fmt.Sprintf("%s→ sent%s %s", colorGreen, colorReset, text))
					}
					m.input.SetValue("")
				}
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "i", "enter":
			m.typing = true
			m.input.Focus()
			return m, textinput.Blink
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		case "j", "down":
			if !m.autoscroll {
				m.vp.LineDown(1)
			}
		case "k", "up":
			if !m.autoscroll {
				m.vp.LineUp(1)
			}
		case "pgdown":
			if !m.autoscroll {
				m.vp.LineDown(10)
			}
		case "pgup":
			if !m.autoscroll {
				m.vp.LineUp(10)
			}
		}
		return m, nil
	case eventMsg:
		m.frames++
		m.appendLog(msg.ev.Line())
		if msg.ev.Kind == EventTelemetry {
			m.pushSample(msg.ev.Sample)
		}
	case errMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *watchModel) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.refreshViewport()
}

func (m *watchModel) pushSample(s telemetry.Sample) {
	m.samples = append([]telemetry.Sample{s}, m.samples...)
	if len(m.samples) > maxTableRows {
		m.samples = m.samples[:maxTableRows]
	}
	rows := make([]table.Row, 0, len(m.samples))
	for _, sample := range m.samples {
		rows = append(rows, table.Row{
			sample.Time.Format("2006-01-02 15:04:05"),
			fmtFloat(sample.Lat, 5),
			fmtFloat(sample.Lon, 5),
			fmtFloat(sample.Alt, 1),
			fmtFloat(sample.Batt, 1),
			fmtString(sample.Meta),
		})
	}
	m.table.SetRows(rows)
}

func (m *watchModel) updateViewportHeight() {
	// header + table + two dividers + input + footer
	h := m.height - 1 - (tableHeight + 1) - 2 - 1 - 1
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
}

func (m *watchModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m watchModel) View() string {
	header := fmt.Sprintf("%sDrone Cloud%s %s │ frames=%d", colorBlue, colorReset, m.serverURL, m.frames)
	divider := strings.Repeat("─", max(m.width, 1))
	sections := []string{
		header,
		m.table.View(),
		divider,
		m.vp.View(),
		divider,
		m.input.View(),
		m.renderFooter(),
	}
	return strings.Join(sections, "\n")
}

func (m watchModel) renderFooter() string {
	on := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	off := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	indicator := func(v bool) string {
		if v {
			return on.Render("●")
		}
		return off.Render("●")
	}
	mode := "hotkeys (i to type, q to quit)"
	if m.typing {
		mode = "typing (enter sends, esc for hotkeys)"
	}
	return fmt.Sprintf("Wrap %s | Scroll %s | %s", indicator(m.wrap), indicator(m.autoscroll), mode)
}

// Run drives the dashboard against an established client until the user
// quits or the connection ends.
func Run(client *Client, serverURL string) error {
	m := newWatchModel(client, serverURL)
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		for {
			ev, err := client.Next()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					p.Send(errMsg{})
				} else {
					p.Send(errMsg{err: err})
				}
				return
			}
			p.Send(eventMsg{ev: ev})
		}
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if wm, ok := final.(watchModel); ok && wm.err != nil {
		return fmt.Errorf("relay connection lost: %w", wm.err)
	}
	return nil
}
