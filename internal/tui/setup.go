// ABOUTME: Interactive TUI wizard for connecting an AI collaborator.
// ABOUTME: Collects endpoint and key, lists the models the key can use, and lets the user pick one.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/freewrite/internal/config"
)

// Step represents the current wizard step.
type Step int

const (
	StepEndpoint Step = iota
	StepKey
	StepConnecting
	StepPickModel
	StepDone
	StepFailed
)

// pickerRows is how many catalog entries the model picker shows at once.
const pickerRows = 8

type catalogMsg struct {
	models []string
	err    error
}

// cancelHolder shares a cancel function across bubbletea model copies.
type cancelHolder struct {
	cancel context.CancelFunc
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step       Step
	endpoint   textinput.Model
	key        textinput.Model
	filter     textinput.Model
	spinner    spinner.Model
	listModels ListModelsFn
	cancelCtx  *cancelHolder

	catalog    []string
	cursor     int
	model      string
	connectErr error
	quitting   bool
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// NewSetupModel creates a wizard pre-filled from existing settings.
func NewSetupModel(existing config.AIConfig) SetupModel {
	endpoint := textinput.New()
	endpoint.Placeholder = config.DefaultAPIURL
	endpoint.Width = 50
	endpoint.SetValue(existing.APIURL)
	endpoint.Focus()

	key := textinput.New()
	key.Placeholder = "sk-..."
	key.EchoMode = textinput.EchoPassword
	key.Width = 50
	key.SetValue(existing.APIKey)

	filter := textinput.New()
	filter.Placeholder = "type to filter, or a model name"
	filter.Width = 50

	s := spinner.New()
	s.Spinner = spinner.Dot

	model := existing.Model
	if model == "" {
		model = config.DefaultModel
	}

	return SetupModel{
		step:       StepEndpoint,
		endpoint:   endpoint,
		key:        key,
		filter:     filter,
		spinner:    s,
		listModels: ListModels,
		cancelCtx:  &cancelHolder{},
		model:      model,
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEscape {
			m.quitting = true
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		}
		switch m.step {
		case StepEndpoint:
			return m.updateEndpoint(msg)
		case StepKey:
			return m.updateKey(msg)
		case StepPickModel:
			return m.updatePicker(msg)
		case StepFailed:
			return m.updateFailed(msg)
		}

	case catalogMsg:
		m.cancelCtx.cancel = nil
		if msg.err != nil {
			m.connectErr = msg.err
			m.step = StepFailed
			return m, nil
		}
		m.catalog = msg.models
		m.cursor = max(0, slices.Index(m.catalog, m.model))
		m.step = StepPickModel
		m.filter.Focus()
		return m, textinput.Blink

	case spinner.TickMsg:
		if m.step == StepConnecting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m SetupModel) updateEndpoint(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.endpoint, cmd = m.endpoint.Update(msg)
		return m, cmd
	}
	val := strings.TrimRight(strings.TrimSpace(m.endpoint.Value()), "/")
	if val == "" {
		val = config.DefaultAPIURL
	}
	m.endpoint.SetValue(val)
	m.endpoint.Blur()
	m.key.Focus()
	m.step = StepKey
	return m, textinput.Blink
}

func (m SetupModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.key, cmd = m.key.Update(msg)
		return m, cmd
	}
	if m.apiKey() == "" {
		return m, nil
	}
	m.key.Blur()
	return m.connect()
}

func (m SetupModel) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.visibleModels()
	switch msg.Type {
	case tea.KeyUp, tea.KeyCtrlP:
		m.cursor = max(0, m.cursor-1)
		return m, nil
	case tea.KeyDown, tea.KeyCtrlN:
		m.cursor = max(0, min(len(visible)-1, m.cursor+1))
		return m, nil
	case tea.KeyEnter:
		custom := strings.TrimSpace(m.filter.Value())
		switch {
		case len(visible) > 0:
			m.model = visible[m.cursor]
		case custom != "":
			m.model = custom
		}
		m.filter.Blur()
		m.step = StepDone
		return m, tea.Quit
	}

	before := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.cursor = 0
	}
	return m, cmd
}

func (m SetupModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyRunes || len(msg.Runes) == 0 {
		return m, nil
	}
	switch msg.Runes[0] {
	case 'r':
		return m.connect()
	case 'e':
		m.connectErr = nil
		m.step = StepEndpoint
		m.endpoint.Focus()
		return m, textinput.Blink
	case 's':
		m.step = StepDone
		return m, tea.Quit
	case 'q':
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// connect starts fetching the model catalog with the entered credentials.
func (m SetupModel) connect() (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel
	m.connectErr = nil
	m.step = StepConnecting

	apiURL, apiKey, fn := m.endpoint.Value(), m.apiKey(), m.listModels
	fetch := func() tea.Msg {
		models, err := fn(ctx, apiURL, apiKey)
		return catalogMsg{models: models, err: err}
	}
	return m, tea.Batch(fetch, m.spinner.Tick)
}

func (m SetupModel) apiKey() string {
	return strings.TrimSpace(m.key.Value())
}

// visibleModels is the catalog narrowed by the case-insensitive filter text.
func (m SetupModel) visibleModels() []string {
	needle := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if needle == "" {
		return m.catalog
	}
	var out []string
	for _, id := range m.catalog {
		if strings.Contains(strings.ToLower(id), needle) {
			out = append(out, id)
		}
	}
	return out
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   FREEWRITE"))
	b.WriteString(titleStyle.Render(" - AI collaborator"))
	b.WriteString("\n\n")

	switch m.step {
	case StepEndpoint:
		b.WriteString("Where should entries be sent for insights?\n")
		b.WriteString(labelStyle.Render("OpenAI-compatible API URL (Enter keeps the default)"))
		b.WriteString("\n")
		b.WriteString(m.endpoint.View())
		b.WriteString("\n")

	case StepKey:
		fmt.Fprintf(&b, "  Endpoint: %s\n\n", m.endpoint.Value())
		b.WriteString(labelStyle.Render("API key"))
		b.WriteString("\n")
		b.WriteString(m.key.View())
		b.WriteString("\n")

	case StepConnecting:
		b.WriteString(m.spinner.View())
		fmt.Fprintf(&b, " Fetching models from %s...\n", m.endpoint.Value())

	case StepPickModel:
		m.viewPicker(&b)

	case StepDone:
		b.WriteString(successStyle.Render("✓ Ready, writing with " + m.model))
		b.WriteString("\n")

	case StepFailed:
		errMsg := "unknown error"
		if m.connectErr != nil {
			errMsg = m.connectErr.Error()
		}
		b.WriteString(errorStyle.Render("✗ Could not list models: " + errMsg))
		b.WriteString("\n\n")
		b.WriteString(labelStyle.Render("[r]etry  [e]dit endpoint  [s]ave anyway  [q]uit"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m SetupModel) viewPicker(b *strings.Builder) {
	if len(m.catalog) == 0 {
		fmt.Fprintf(b, "The endpoint listed no models. Enter keeps %s, or type another name.\n\n", m.model)
		b.WriteString(m.filter.View())
		b.WriteString("\n")
		return
	}

	visible := m.visibleModels()
	fmt.Fprintf(b, "Choose a model (%d of %d)\n", len(visible), len(m.catalog))
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	if len(visible) == 0 {
		fmt.Fprintf(b, "  No listed model matches. Enter uses %q as typed.\n", strings.TrimSpace(m.filter.Value()))
		return
	}
	end := min(len(visible), max(0, m.cursor-pickerRows/2)+pickerRows)
	start := max(0, end-pickerRows)
	for i := start; i < end; i++ {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + visible[i]))
		} else {
			b.WriteString("  " + visible[i])
		}
		b.WriteString("\n")
	}
	b.WriteString(labelStyle.Render("↑/↓ move  Enter choose"))
	b.WriteString("\n")
}

// Result returns the entered settings.
func (m SetupModel) Result() config.AIConfig {
	return config.AIConfig{
		APIURL: m.endpoint.Value(),
		Model:  m.model,
		APIKey: m.apiKey(),
	}
}

// ShouldSave reports whether the wizard finished, either with a chosen model
// or through "save anyway", without being cancelled.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
