package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/mpfront/mpfront/backend"
	"github.com/mpfront/mpfront/color"
	"github.com/mpfront/mpfront/constant"
	"github.com/mpfront/mpfront/icon"
	"github.com/mpfront/mpfront/key"
	"github.com/mpfront/mpfront/style"
	"github.com/spf13/viper"
)

// checkBackend exits with an install hint when the backend binary is missing.
func checkBackend(b *backend.Backend) {
	path := viper.GetString(key.PlayerPath)
	if path == "" {
		path = b.Binary
	}

	if _, err := exec.LookPath(path); err != nil {
		printMissingBackend(b, path)
		os.Exit(1)
	}
}

func printMissingBackend(b *backend.Backend, path string) {
	var installCmd string
	switch runtime.GOOS {
	case constant.Darwin:
		installCmd = "brew install " + b.Binary
	case constant.Linux:
		installCmd = "sudo apt install " + b.Binary
	case constant.Windows:
		installCmd = "scoop install " + b.Binary
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(color.HiRed).Render(fmt.Sprintf("%s Backend not found", icon.Get(icon.Fail)))
	body := fmt.Sprintf("The %s backend (%s) was not found.", b.Name, path)

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(color.Cyan).Bold(true).Render(installCmd))
	}
	suggestion += fmt.Sprintf("\n\nOr pick another one with %s", style.Fg(color.Yellow)("--backend"))

	fmt.Println(box.Render(lipgloss.JoinVertical(lipgloss.Left, title, "\n", body, suggestion)))
}
