package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

func printOK(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, successStyle.Render("✔ "+fmt.Sprintf(format, args...)))
}

func printMuted(w io.Writer, msg string) {
	_, _ = fmt.Fprintln(w, mutedStyle.Render(msg))
}
