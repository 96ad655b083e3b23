package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasks-serverless/internal/session"
)

type View int

const (
	LoginView View = iota
	SignupView
	MenuView
	ListView
	CreateView
)

type sessionExpiredMsg struct{}

// SessionExpired builds the message the session client sends into the program
// when token renewal fails.
func SessionExpired() tea.Msg {
	return sessionExpiredMsg{}
}

type logoutDoneMsg struct{}

type Model struct {
	currentView View
	login       *LoginModel
	signup      *SignupModel
	menu        *MenuModel
	list        *ListModel
	create      *CreateModel
	client      *session.Client
	width       int
	height      int

	isAuthenticated bool
	user            session.User
}

func NewModel(client *session.Client) Model {
	return Model{
		currentView: LoginView,
		login:       NewLoginModel(client),
		signup:      NewSignupModel(client),
		menu:        NewMenuModel(),
		list:        NewListModel(client),
		create:      NewCreateModel(client),
		client:      client,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loginSuccessMsg:
		m.isAuthenticated = true
		m.user = msg.user
		m.currentView = MenuView
		return m, nil

	case signupSuccessMsg:
		m.isAuthenticated = true
		m.user = msg.user
		m.currentView = MenuView
		return m, nil

	case sessionExpiredMsg:
		m.isAuthenticated = false
		m.user = session.User{}
		m.currentView = LoginView
		return m, nil

	case logoutDoneMsg:
		m.isAuthenticated = false
		m.user = session.User{}
		m.currentView = LoginView
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		// "q" stays free for the text inputs; only the menu and the list
		// (outside search) treat it as navigation.
		case "q":
			if m.currentView == MenuView {
				return m, tea.Quit
			}
			if m.currentView == ListView && !m.list.searching {
				m.currentView = MenuView
				return m, nil
			}

		case "esc":
			if m.currentView == CreateView {
				m.currentView = MenuView
				return m, nil
			}
			if m.currentView == ListView && !m.list.searching {
				m.currentView = MenuView
				return m, nil
			}

		case "ctrl+s":
			if m.currentView == LoginView {
				m.currentView = SignupView
				return m, nil
			}
			if m.currentView == SignupView {
				m.currentView = LoginView
				return m, nil
			}
		}
	}

	switch m.currentView {
	case LoginView:
		updated, cmd := m.login.Update(msg)
		m.login = updated.(*LoginModel)
		return m, cmd

	case SignupView:
		updated, cmd := m.signup.Update(msg)
		m.signup = updated.(*SignupModel)
		return m, cmd

	case MenuView:
		updated, cmd := m.menu.Update(msg)
		m.menu = updated.(*MenuModel)
		if m.menu.selected != -1 {
			selected := m.menu.selected
			m.menu.selected = -1
			switch selected {
			case 0:
				m.currentView = ListView
				m.list.loaded = false
				m.list.loading = true
				return m, loadTasksCmd(m.client)
			case 1:
				m.currentView = CreateView
				m.create.Reset()
			case 2:
				return m, logoutCmd(m.client)
			}
		}
		return m, cmd

	case ListView:
		updated, cmd := m.list.Update(msg)
		m.list = updated.(*ListModel)
		return m, cmd

	case CreateView:
		updated, cmd := m.create.Update(msg)
		m.create = updated.(*CreateModel)
		if m.create.done {
			m.create.done = false
			m.currentView = ListView
			m.list.loaded = false
			m.list.loading = true
			return m, tea.Batch(cmd, loadTasksCmd(m.client))
		}
		return m, cmd
	}

	return m, nil
}

func logoutCmd(c *session.Client) tea.Cmd {
	return func() tea.Msg {
		_ = c.Logout(context.Background())
		return logoutDoneMsg{}
	}
}

func (m Model) View() string {
	var statusBar string
	if m.isAuthenticated && m.currentView != LoginView && m.currentView != SignupView {
		userInfo := lipgloss.NewStyle().
			Foreground(Success).
			Render(m.user.Username)

		emailInfo := lipgloss.NewStyle().
			Foreground(Muted).
			Render(" (" + m.user.Email + ")")

		statusBar = lipgloss.NewStyle().
			Width(80).
			Align(lipgloss.Left).
			Background(BgDark).
			Padding(0, 2).
			Render(userInfo + emailInfo)
	}

	var mainContent string
	switch m.currentView {
	case LoginView:
		mainContent = m.login.View()
	case SignupView:
		mainContent = m.signup.View()
	case MenuView:
		mainContent = m.menu.View()
	case ListView:
		mainContent = m.list.View()
	case CreateView:
		mainContent = m.create.View()
	}

	if statusBar != "" {
		return lipgloss.JoinVertical(lipgloss.Left, statusBar, "\n", mainContent)
	}
	return mainContent
}
