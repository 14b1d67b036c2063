package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	session "github.com/vitallic/vitallic-core/core"
	"github.com/vitallic/vitallic-core/core/speech"
	"github.com/vitallic/vitallic-core/core/store"
)

type view int

const (
	viewProfiles view = iota
	viewSession
	viewHistory
)

type (
	turnMsg    struct{ turn session.Turn }
	interimMsg struct {
		transcript string
		confidence float64
	}
	phaseMsg   struct{ phase session.Phase }
	failureMsg struct{ kind speech.ErrorKind }

	profilesMsg struct {
		profiles []store.VoiceProfile
		err      error
	}
	historyMsg struct {
		calls []store.Call
		err   error
	}
	beganMsg struct {
		sessionID string
		err       error
	}
	endedMsg struct{}
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	faintStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type model struct {
	orchestrator *session.Orchestrator
	gateway      store.Gateway

	view  view
	spin  spinner.Model
	width int

	profiles []store.VoiceProfile
	cursor   int

	phase   session.Phase
	turns   []session.Turn
	interim string
	notice  string

	calls []store.Call
}

func newModel(orchestrator *session.Orchestrator, gateway store.Gateway) model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = selectedStyle

	return model{
		orchestrator: orchestrator,
		gateway:      gateway,
		spin:         spin,
		phase:        session.PhaseIdle,
		width:        80,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.loadProfiles())
}

func (m model) loadProfiles() tea.Cmd {
	return func() tea.Msg {
		profiles, err := m.gateway.ListProfiles(context.Background())
		return profilesMsg{profiles: profiles, err: err}
	}
}

func (m model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		calls, err := m.gateway.ListCalls(context.Background(), 20)
		return historyMsg{calls: calls, err: err}
	}
}

func (m model) beginCall(profile store.VoiceProfile) tea.Cmd {
	orchestrator := m.orchestrator
	return func() tea.Msg {
		sessionID, err := orchestrator.Begin(context.Background(), session.ProfileFromRecord(profile))
		return beganMsg{sessionID: sessionID, err: err}
	}
}

func (m model) endCall() tea.Cmd {
	orchestrator := m.orchestrator
	return func() tea.Msg {
		orchestrator.End(context.Background())
		return endedMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case profilesMsg:
		if msg.err != nil {
			m.notice = "failed to load profiles: " + msg.err.Error()
			return m, nil
		}
		m.profiles = msg.profiles
		if m.cursor >= len(m.profiles) {
			m.cursor = 0
		}
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.notice = "failed to load call history: " + msg.err.Error()
			return m, nil
		}
		m.calls = msg.calls
		return m, nil

	case beganMsg:
		if msg.err != nil {
			m.notice = "failed to start call: " + msg.err.Error()
			m.view = viewProfiles
		}
		return m, nil

	case endedMsg:
		m.view = viewProfiles
		m.interim = ""
		return m, nil

	case turnMsg:
		m.turns = append(m.turns, msg.turn)
		m.interim = ""
		return m, nil

	case interimMsg:
		m.interim = msg.transcript
		return m, nil

	case phaseMsg:
		m.phase = msg.phase
		return m, nil

	case failureMsg:
		m.notice = "speech failure: " + string(msg.kind)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Sequence(m.endCall(), tea.Quit)
	}

	switch m.view {
	case viewProfiles:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.profiles)-1 {
				m.cursor++
			}
		case "h":
			m.view = viewHistory
			return m, m.loadHistory()
		case "enter":
			if len(m.profiles) == 0 {
				return m, nil
			}
			m.view = viewSession
			m.turns = nil
			m.interim = ""
			m.notice = ""
			return m, m.beginCall(m.profiles[m.cursor])
		}

	case viewSession:
		switch msg.String() {
		case "esc", "q":
			return m, m.endCall()
		}

	case viewHistory:
		switch msg.String() {
		case "esc", "q", "b":
			m.view = viewProfiles
		case "r":
			return m, m.loadHistory()
		}
	}

	return m, nil
}

func (m model) View() string {
	var body string
	switch m.view {
	case viewProfiles:
		body = m.profilesView()
	case viewSession:
		body = m.sessionView()
	case viewHistory:
		body = m.historyView()
	}

	if m.notice != "" {
		body += "\n" + errorStyle.Render(m.notice) + "\n"
	}
	return body
}

func (m model) profilesView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Vitallic") + "\n\n")
	b.WriteString("Pick a voice profile:\n\n")

	for i, profile := range m.profiles {
		line := fmt.Sprintf("  %s (%s, %s)", profile.Name, profile.Tone, profile.Language)
		if i == m.cursor {
			line = selectedStyle.Render("> " + strings.TrimPrefix(line, "  "))
		}
		b.WriteString(line + "\n")
	}
	if len(m.profiles) == 0 {
		b.WriteString(faintStyle.Render("  no profiles available") + "\n")
	}

	b.WriteString("\n" + faintStyle.Render("enter: start call  h: history  q: quit") + "\n")
	return b.String()
}

func (m model) sessionView() string {
	var b strings.Builder

	header := "Call " + string(m.phase)
	if m.phase == session.PhaseStarting || m.phase == session.PhaseListening {
		header = m.spin.View() + " " + header
	}
	b.WriteString(titleStyle.Render(header) + "\n\n")

	width := m.width - 4
	if width < 20 {
		width = 20
	}

	for _, turn := range m.turns {
		style := assistantStyle
		label := "vitallic"
		if turn.Speaker == store.SpeakerUser {
			style = userStyle
			label = "you"
		}
		b.WriteString(style.Render(label+":") + " " + wordwrap.String(turn.Message, width) + "\n")
	}
	if m.interim != "" {
		b.WriteString(faintStyle.Render("you: "+wordwrap.String(m.interim, width)) + "\n")
	}

	b.WriteString("\n" + faintStyle.Render("esc: hang up") + "\n")
	return b.String()
}

func (m model) historyView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Recent calls") + "\n\n")

	for _, call := range m.calls {
		b.WriteString(fmt.Sprintf("  %s  %-9s  %3ds\n",
			call.StartedAt.Format("2006-01-02 15:04"), call.Status, call.DurationSeconds))
	}
	if len(m.calls) == 0 {
		b.WriteString(faintStyle.Render("  no calls recorded") + "\n")
	}

	b.WriteString("\n" + faintStyle.Render("r: refresh  esc: back") + "\n")
	return b.String()
}
