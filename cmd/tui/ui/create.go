package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasks-serverless/internal/session"
	"tasks-serverless/internal/task"
)

type taskCreatedMsg struct {
	task task.Task
}

type createErrorMsg struct {
	err error
}

type CreateModel struct {
	titleInput       string
	descriptionInput string
	dueDateInput     string
	focusedInput     int
	loading          bool
	done             bool
	err              error
	client           *session.Client
}

func NewCreateModel(client *session.Client) *CreateModel {
	return &CreateModel{client: client}
}

func (m *CreateModel) Init() tea.Cmd {
	return nil
}

// Reset clears the form so a previous draft does not leak into the next one.
func (m *CreateModel) Reset() {
	m.titleInput = ""
	m.descriptionInput = ""
	m.dueDateInput = ""
	m.focusedInput = 0
	m.loading = false
	m.done = false
	m.err = nil
}

func createTaskCmd(c *session.Client, input task.CreateInput) tea.Cmd {
	return func() tea.Msg {
		created, err := c.CreateTask(context.Background(), input)
		if err != nil {
			return createErrorMsg{err: err}
		}
		return taskCreatedMsg{task: created}
	}
}

func (m *CreateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskCreatedMsg:
		m.loading = false
		m.done = true
		return m, nil

	case createErrorMsg:
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
			input, err := m.buildInput()
			if err != nil {
				m.err = err
				return m, nil
			}
			m.loading = true
			m.err = nil
			return m, createTaskCmd(m.client, input)
		case "backspace":
			switch m.focusedInput {
			case 0:
				if len(m.titleInput) > 0 {
					m.titleInput = m.titleInput[:len(m.titleInput)-1]
				}
			case 1:
				if len(m.descriptionInput) > 0 {
					m.descriptionInput = m.descriptionInput[:len(m.descriptionInput)-1]
				}
			case 2:
				if len(m.dueDateInput) > 0 {
					m.dueDateInput = m.dueDateInput[:len(m.dueDateInput)-1]
				}
			}
		case "ctrl+l":
			m.Reset()
		default:
			if len(msg.String()) == 1 {
				switch m.focusedInput {
				case 0:
					m.titleInput += msg.String()
				case 1:
					m.descriptionInput += msg.String()
				case 2:
					m.dueDateInput += msg.String()
				}
			}
		}
	}
	return m, nil
}

func (m *CreateModel) buildInput() (task.CreateInput, error) {
	if strings.TrimSpace(m.titleInput) == "" {
		return task.CreateInput{}, fmt.Errorf("title cannot be empty")
	}

	input := task.CreateInput{
		Title:       strings.TrimSpace(m.titleInput),
		Description: strings.TrimSpace(m.descriptionInput),
	}

	if m.dueDateInput != "" {
		due, err := time.Parse("2006-01-02", m.dueDateInput)
		if err != nil {
			return task.CreateInput{}, fmt.Errorf("due date must be YYYY-MM-DD")
		}
		input.DueDate = &due
	}

	return input, nil
}

func (m *CreateModel) View() string {
	var b strings.Builder

	title := lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true).
		Render("NEW TASK")

	subtitle := lipgloss.NewStyle().
		Foreground(Muted).
		Render("Add something to your list.")

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

	b.WriteString(renderField("Title:", m.titleInput, m.focusedInput == 0))
	b.WriteString("\n\n")
	b.WriteString(renderField("Description:", m.descriptionInput, m.focusedInput == 1))
	b.WriteString("\n\n")
	b.WriteString(renderField("Due date:", m.dueDateInput, m.focusedInput == 2))
	b.WriteString("\n\n")

	if m.loading {
		loading := InfoStyle.Render("Creating task...")
		b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).Render(loading))
		b.WriteString("\n")
	}

	if m.err != nil {
		errMsg := ErrorStyle.Render(m.err.Error())
		b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).Render(errMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := InfoStyle.Render("tab switch  •  enter create  •  ctrl+l clear  •  esc back")
	b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).Render(help))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary).
		Padding(2, 4).
		Width(76).
		Render(b.String())
}
