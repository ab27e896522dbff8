package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var promptTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

// keyPromptModel is the minimal interactive prompt shown when no API key is
// configured anywhere.
type keyPromptModel struct {
	input     textinput.Model
	provider  string
	envVar    string
	done      bool
	cancelled bool
}

func newKeyPromptModel(provider, envVar string) keyPromptModel {
	ti := textinput.New()
	ti.Placeholder = "paste key"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = 256
	ti.Width = 48
	ti.Focus()

	return keyPromptModel{
		input:    ti,
		provider: provider,
		envVar:   envVar,
	}
}

func (m keyPromptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m keyPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m keyPromptModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s\n",
		promptTitleStyle.Render(fmt.Sprintf("API key for %s", m.provider)),
		m.input.View(),
		fmt.Sprintf("enter to confirm, esc to cancel (or set %s to skip this prompt)", m.envVar),
	)
}

// promptForAPIKey asks the user for a key interactively. The key is used for
// this run only; it is never written to the config file.
func promptForAPIKey(provider, envVar string) (string, error) {
	program := tea.NewProgram(newKeyPromptModel(provider, envVar))
	out, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("key prompt failed: %w", err)
	}

	m, ok := out.(keyPromptModel)
	if !ok || m.cancelled {
		return "", fmt.Errorf("no API key provided; set %s or api_key in config", envVar)
	}

	key := strings.TrimSpace(m.input.Value())
	if key == "" {
		return "", fmt.Errorf("no API key provided; set %s or api_key in config", envVar)
	}
	return key, nil
}
