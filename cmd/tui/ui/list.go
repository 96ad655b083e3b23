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

type tasksLoadedMsg struct {
	tasks []task.Task
}

type tasksErrorMsg struct {
	err error
}

type taskUpdatedMsg struct {
	task task.Task
}

type taskDeletedMsg struct {
	id string
}

// ListModel renders the cached task collection. Toggles and deletes are folded
// back into the local view from the server response instead of refetching.
type ListModel struct {
	view      *session.TaskView
	cursor    int
	loading   bool
	loaded    bool
	searching bool
	err       error
	client    *session.Client
}

func NewListModel(client *session.Client) *ListModel {
	return &ListModel{
		view:   session.NewTaskView(),
		client: client,
	}
}

func (m *ListModel) Init() tea.Cmd {
	return nil
}

func loadTasksCmd(c *session.Client) tea.Cmd {
	return func() tea.Msg {
		tasks, err := c.ListTasks(context.Background(), "", nil)
		if err != nil {
			return tasksErrorMsg{err: err}
		}
		return tasksLoadedMsg{tasks: tasks}
	}
}

func toggleTaskCmd(c *session.Client, t task.Task) tea.Cmd {
	return func() tea.Msg {
		completed := !t.Completed
		updated, err := c.UpdateTask(context.Background(), t.ID, task.UpdateInput{Completed: &completed})
		if err != nil {
			return tasksErrorMsg{err: err}
		}
		return taskUpdatedMsg{task: updated}
	}
}

func deleteTaskCmd(c *session.Client, id string) tea.Cmd {
	return func() tea.Msg {
		if err := c.DeleteTask(context.Background(), id); err != nil {
			return tasksErrorMsg{err: err}
		}
		return taskDeletedMsg{id: id}
	}
}

func (m *ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksLoadedMsg:
		m.loading = false
		m.loaded = true
		m.err = nil
		m.view.Load(msg.tasks)
		m.clampCursor()
		return m, nil

	case tasksErrorMsg:
		m.loading = false
		m.loaded = true
		m.err = msg.err
		return m, nil

	case taskUpdatedMsg:
		m.view.ApplyUpdate(msg.task)
		return m, nil

	case taskDeletedMsg:
		m.view.ApplyDelete(msg.id)
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			switch msg.String() {
			case "enter", "esc":
				m.searching = false
			case "backspace":
				query := m.view.Query()
				if len(query) > 0 {
					m.view.SetQuery(query[:len(query)-1])
				}
			default:
				if len(msg.String()) == 1 {
					m.view.SetQuery(m.view.Query() + msg.String())
				}
			}
			m.clampCursor()
			return m, nil
		}

		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.view.Visible())-1 {
				m.cursor++
			}
		case "1":
			m.view.SetTab(session.TabAll)
			m.clampCursor()
		case "2":
			m.view.SetTab(session.TabPending)
			m.clampCursor()
		case "3":
			m.view.SetTab(session.TabCompleted)
			m.clampCursor()
		case "/":
			m.searching = true
		case " ":
			if t, ok := m.selectedTask(); ok && !m.loading {
				return m, toggleTaskCmd(m.client, t)
			}
		case "d":
			if t, ok := m.selectedTask(); ok && !m.loading {
				return m, deleteTaskCmd(m.client, t.ID)
			}
		case "r":
			if !m.loading {
				m.loading = true
				m.err = nil
				return m, loadTasksCmd(m.client)
			}
		}
	}

	if !m.loaded && !m.loading {
		m.loading = true
		return m, loadTasksCmd(m.client)
	}

	return m, nil
}

func (m *ListModel) selectedTask() (task.Task, bool) {
	visible := m.view.Visible()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return task.Task{}, false
	}
	return visible[m.cursor], true
}

func (m *ListModel) clampCursor() {
	if count := len(m.view.Visible()); m.cursor >= count {
		m.cursor = count - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *ListModel) View() string {
	var b strings.Builder

	header := TitleStyle.Render("YOUR TASKS")
	b.WriteString(lipgloss.NewStyle().
		Width(80).
		Align(lipgloss.Center).
		MarginTop(1).
		Render(header))
	b.WriteString("\n\n")

	all, pending, completed := m.view.Counts()
	tabs := []string{
		fmt.Sprintf("All (%d)", all),
		fmt.Sprintf("Pending (%d)", pending),
		fmt.Sprintf("Completed (%d)", completed),
	}
	var rendered []string
	for i, label := range tabs {
		style := TabStyle
		if session.Tab(i) == m.view.Tab() {
			style = ActiveTabStyle
		}
		rendered = append(rendered, style.Render(label))
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).Render(tabBar))
	b.WriteString("\n")

	if m.searching || m.view.Query() != "" {
		prompt := "/" + m.view.Query()
		if m.searching {
			prompt += "▌"
		}
		search := lipgloss.NewStyle().Foreground(Warning).Render(prompt)
		b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).Render(search))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	visible := m.view.Visible()
	switch {
	case m.loading:
		loading := InfoStyle.Render("Loading tasks...")
		b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).MarginTop(2).Render(loading))
		b.WriteString("\n")
	case m.err != nil:
		errMsg := ErrorStyle.Render(m.err.Error())
		b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).MarginTop(2).Render(errMsg))
		b.WriteString("\n")
	case len(visible) == 0:
		empty := lipgloss.NewStyle().
			Foreground(Muted).
			Render("No tasks here. Create one!")
		b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).MarginTop(2).Render(empty))
		b.WriteString("\n")
	default:
		for i, t := range visible {
			b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).Render(renderTaskCard(t, i == m.cursor)))
		}
	}

	b.WriteString("\n")
	help := InfoStyle.Render("↑/↓ navigate  •  1/2/3 tabs  •  / search  •  space toggle  •  d delete  •  r refresh  •  q back")
	b.WriteString(lipgloss.NewStyle().Width(80).Align(lipgloss.Center).Render(help))

	return BoxStyle.Width(76).Render(b.String())
}

func renderTaskCard(t task.Task, selected bool) string {
	borderColor := Muted
	if selected {
		borderColor = Accent
	}
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 2).
		Width(70).
		MarginBottom(1)

	check := lipgloss.NewStyle().Foreground(Muted).Render("[ ] ")
	titleStyle := lipgloss.NewStyle().Foreground(Text).Bold(true)
	if t.Completed {
		check = lipgloss.NewStyle().Foreground(Success).Render("[x] ")
		titleStyle = lipgloss.NewStyle().Foreground(Muted).Strikethrough(true)
	}
	titleLine := check + titleStyle.Render(t.Title)

	lines := []string{titleLine}
	if t.Description != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(Muted).Render(truncate(t.Description, 60)))
	}

	meta := "created " + humanAge(t.CreatedAt)
	if t.DueDate != nil {
		meta += " • due " + t.DueDate.Format("2006-01-02")
	}
	lines = append(lines, InfoStyle.Render(meta))

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func humanAge(at time.Time) string {
	ago := time.Since(at)
	switch {
	case ago < time.Hour:
		return fmt.Sprintf("%d min ago", int(ago.Minutes()))
	case ago < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(ago.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(ago.Hours()/24))
	}
}
