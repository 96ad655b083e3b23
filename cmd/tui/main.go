package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"tasks-serverless/cmd/tui/ui"
	"tasks-serverless/internal/session"
)

func main() {
	_ = godotenv.Load()

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client, err := session.NewClient(baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating api client: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(ui.NewModel(client), tea.WithAltScreen())

	client.OnSessionExpired(func() {
		p.Send(ui.SessionExpired())
	})

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error running program: %v\n", err)
		os.Exit(1)
	}
}
