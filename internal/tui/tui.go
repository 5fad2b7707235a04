package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"dinner-agent/handler"
	"dinner-agent/internal/domain"
	"dinner-agent/internal/usecase"
)

const (
	title        = "🍽  저녁 메뉴 추천"
	inputHint    = "취향, 예산, 위치를 입력하고 Enter"
	chatHelp     = "Enter 전송 · Ctrl+P 프롬프트 편집 · PgUp/PgDn 스크롤 · Esc 종료"
	panelHelp    = "Ctrl+S 적용 · Ctrl+R 기본값으로 초기화 · Ctrl+P 닫기 · Esc 종료"
	defaultLabel = "기본 프롬프트"
	customLabel  = "사용자 프롬프트"
	userLabel    = "나: "

	defaultWidth  = 80
	defaultHeight = 24
	panelHeight   = 8
)

// Controller is the subset of the handler the view drives.
type Controller interface {
	Submit(ctx context.Context, text string) (handler.RunFunc, usecase.SubmitOutput)
	Prompt() (string, bool)
	ApplyPrompt(ctx context.Context, text string) handler.Status
	ResetPrompt(ctx context.Context) handler.Status
}

// TranscriptReader exposes the entries to render.
type TranscriptReader interface {
	Messages() []domain.Message
	Pending() int
}

// cycleDoneMsg reports that a completion resolved; the transcript already
// holds its reply.
type cycleDoneMsg struct {
	out usecase.SubmitOutput
}

type Model struct {
	ctx        context.Context
	ctrl       Controller
	transcript TranscriptReader
	modelName  string

	viewport viewport.Model
	input    textinput.Model
	editor   textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	showPrompt    bool
	status        handler.Status
	width, height int
}

func New(ctx context.Context, ctrl Controller, transcript TranscriptReader, modelName string) *Model {
	ti := textinput.New()
	ti.Placeholder = inputHint
	ti.Prompt = "> "
	ti.Focus()

	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(panelHeight)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := &Model{
		ctx:        ctx,
		ctrl:       ctrl,
		transcript: transcript,
		modelName:  modelName,
		viewport:   viewport.New(defaultWidth, defaultHeight),
		input:      ti,
		editor:     ta,
		spinner:    s,
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+p":
			m.togglePrompt()
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case "ctrl+s":
			if m.showPrompt {
				m.status = m.ctrl.ApplyPrompt(m.ctx, m.editor.Value())
				m.layout()
				return m, nil
			}
		case "ctrl+r":
			if m.showPrompt {
				m.status = m.ctrl.ResetPrompt(m.ctx)
				text, _ := m.ctrl.Prompt()
				m.editor.SetValue(text)
				m.layout()
				return m, nil
			}
		case "enter":
			if !m.showPrompt {
				return m, m.submit()
			}
		}

		var cmd tea.Cmd
		if m.showPrompt {
			m.editor, cmd = m.editor.Update(msg)
		} else {
			m.input, cmd = m.input.Update(msg)
		}
		return m, cmd

	case cycleDoneMsg:
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.transcript.Pending() > 0 {
			m.refresh()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	run, out := m.ctrl.Submit(m.ctx, m.input.Value())
	if out.Outcome == usecase.OutcomeIgnored {
		return nil
	}
	m.input.Reset()
	m.refresh()
	if run == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return cycleDoneMsg{out: run(ctx)}
	}
}

func (m *Model) togglePrompt() {
	m.showPrompt = !m.showPrompt
	m.status = handler.Status{}
	if m.showPrompt {
		text, _ := m.ctrl.Prompt()
		m.editor.SetValue(text)
		m.input.Blur()
		m.editor.Focus()
	} else {
		m.editor.Blur()
		m.input.Focus()
	}
	m.layout()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.Width = max(width-6, 10)
	m.editor.SetWidth(max(width-4, 10))

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		renderer = nil
	}
	m.renderer = renderer
	m.layout()
}

func (m *Model) layout() {
	used := lipgloss.Height(m.headerView()) + lipgloss.Height(m.footerView())
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-used, 1)
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	width := max(m.width-2, 10)
	blocks := make([]string, 0, len(m.transcript.Messages()))
	for _, msg := range m.transcript.Messages() {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderMessage(msg domain.Message, width int) string {
	wrap := lipgloss.NewStyle().Width(width)
	switch msg.Role {
	case domain.RoleUser:
		body := lipgloss.NewStyle().Width(width - lipgloss.Width(userLabel)).Render(msg.Text)
		return lipgloss.JoinHorizontal(lipgloss.Top, userStyle.Render(userLabel), body)
	case domain.RoleAssistant:
		return m.renderMarkdown(msg.Text, wrap)
	case domain.RolePending:
		return m.spinner.View() + " " + pendingStyle.Render(msg.Text)
	case domain.RoleError:
		return errorStyle.Inherit(wrap).Render(msg.Text)
	default:
		return botStyle.Inherit(wrap).Render(msg.Text)
	}
}

func (m *Model) renderMarkdown(text string, fallback lipgloss.Style) string {
	if m.renderer == nil {
		return fallback.Render(text)
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return fallback.Render(text)
	}
	return strings.Trim(out, "\n")
}

func (m *Model) headerView() string {
	return titleStyle.Render(title)
}

func (m *Model) footerView() string {
	if m.showPrompt {
		return lipgloss.JoinVertical(lipgloss.Left,
			panelBoxStyle.Render(m.editor.View()),
			m.statusBarView(),
			helpStyle.Render(panelHelp),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		inputBoxStyle.Render(m.input.View()),
		m.statusBarView(),
		helpStyle.Render(chatHelp),
	)
}

func (m *Model) statusBarView() string {
	_, isDefault := m.ctrl.Prompt()
	promptInfo := customLabel
	if isDefault {
		promptInfo = defaultLabel
	}

	parts := []string{
		lipgloss.NewStyle().Padding(0, 1).Render("모델: " + m.modelName),
		lipgloss.NewStyle().Padding(0, 1).Render(promptInfo),
	}
	if n := m.transcript.Pending(); n > 0 {
		parts = append(parts, lipgloss.NewStyle().Padding(0, 1).Render(fmt.Sprintf("대기 중 %d", n)))
	}
	bar := statusBarStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))

	if m.status.Note == "" {
		return bar
	}
	note := badNoteStyle.Render(m.status.Note)
	if m.status.OK {
		note = okNoteStyle.Render(m.status.Note)
	}
	return lipgloss.JoinVertical(lipgloss.Left, bar, note)
}

func (m *Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.viewport.View(),
		m.footerView(),
	)
}

// Run starts the program on the alternate screen and blocks until the user quits.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: run program: %w", err)
	}
	return nil
}
