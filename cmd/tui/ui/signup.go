package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasks-serverless/internal/session"
)

type signupSuccessMsg struct {
	user session.User
}

type signupErrorMsg struct {
	err error
}

type SignupModel struct {
	usernameInput string
	emailInput    string
	passwordInput string
	focusedInput  int
	loading       bool
	err           error
	client        *session.Client
}

func NewSignupModel(client *session.Client) *SignupModel {
	return &SignupModel{client: client}
}

func (m *SignupModel) Init() tea.Cmd {
	return nil
}

func signupCmd(c *session.Client, username, email, password string) tea.Cmd {
	return func() tea.Msg {
		user, err := c.Signup(context.Background(), username, email, password)
		if err != nil {
			return signupErrorMsg{err: err}
		}
		return signupSuccessMsg{user: user}
	}
}

func (m *SignupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case signupErrorMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}

		switch msg.String() {
		case "tab":
			m.focusedInput = (m.focusedInput + 1) % 3
		case "shift+tab":
			m.focusedInput = (m.focusedInput + 2) % 3
		case "enter":
			if m.usernameInput == "" {
				m.err = fmt.Errorf("name cannot be empty")
				return m, nil
			}
			if m.emailInput == "" {
				m.err = fmt.Errorf("email cannot be empty")
				return m, nil
			}
			if len(m.passwordInput) < 8 {
				m.err = fmt.Errorf("password must be at least 8 characters")
				return m, nil
			}

			m.loading = true
			m.err = nil
			return m, signupCmd(m.client, m.usernameInput, m.emailInput, m.passwordInput)
		case "backspace":
			switch m.focusedInput {
			case 0:
				if len(m.usernameInput) > 0 {
					m.usernameInput = m.usernameInput[:len(m.usernameInput)-1]
				}
			case 1:
				if len(m.emailInput) > 0 {
					m.emailInput = m.emailInput[:len(m.emailInput)-1]
				}
			case 2:
				if len(m.passwordInput) > 0 {
					m.passwordInput = m.passwordInput[:len(m.passwordInput)-1]
				}
			}
		case "ctrl+l":
			m.usernameInput = ""
			m.emailInput = ""
			m.passwordInput = ""
			m.err = nil
		default:
			if len(msg.String()) == 1 {
				switch m.focusedInput {
				case 0:
					m.usernameInput += msg.String()
				case 1:
					m.emailInput += msg.String()
				case 2:
					m.passwordInput += msg.String()
				}
			}
		}
	}
	return m, nil
}

func (m *SignupModel) View() string {
	var b strings.Builder

	title := lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true).
		Render("SIGN UP")

	subtitle := lipgloss.NewStyle().
		Foreground(Muted).
		Render("Create an account to start tracking tasks.")

	b.WriteString(lipgloss.NewStyle().
		Width(80).
		Align(lipgloss.Center).
		MarginTop(2).
		Render(title))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Width(80).
		Align(lipgloss.Center).
		MarginBottom(3).
		Render(subtitle))
	b.WriteString("\n\n")

	b.WriteString(renderField("Name:", m.usernameInput, m.focusedInput == 0))
	b.WriteString("\n\n")
	b.WriteString(renderField("Email:", m.emailInput, m.focusedInput == 1))
	b.WriteString("\n\n")
	b.WriteString(renderField("Password:", strings.Repeat("•", len(m.passwordInput)), m.focusedInput == 2))
	b.WriteString("\n\n")

	if m.loading {
		loading := InfoStyle.Render("Creating account...")
		b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).Render(loading))
		b.WriteString("\n")
	}

	if m.err != nil {
		errMsg := ErrorStyle.Render(m.err.Error())
		b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).Render(errMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := InfoStyle.Render("tab switch  •  enter sign up  •  ctrl+l clear  •  ctrl+s login  •  ctrl+c quit")
	b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).Render(help))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary).
		Padding(2, 4).
		Width(76).
		Render(b.String())
}
