package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/vodsync/vodsync/color"
	"github.com/vodsync/vodsync/icon"
	"github.com/vodsync/vodsync/style"
)

// checkMPV exits with install instructions when binary cannot be found.
func checkMPV(binary string) {
	if _, err := exec.LookPath(binary); err != nil {
		printMissingDependency(binary)
		os.Exit(1)
	}
}

func printMissingDependency(dep string) {
	var installCmd string
	switch runtime.GOOS {
	case "darwin":
		installCmd = "brew install mpv"
	case "linux":
		installCmd = "sudo apt install mpv"
	case "windows":
		installCmd = "scoop install mpv"
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(color.HiRed).Render(fmt.Sprintf("%s Missing player", icon.Get(icon.Fail)))
	body := fmt.Sprintf("The mpv transport needs '%s' but it is not in your PATH.", dep)

	hint := "\n\nOr switch back to the browser player:\n  " + style.Fg(color.Cyan)("vodsync config set player.transport embedded")
	if installCmd != "" {
		hint = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(color.Cyan).Bold(true).Render(installCmd)) + hint
	}

	fmt.Println(box.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, hint)))
}
