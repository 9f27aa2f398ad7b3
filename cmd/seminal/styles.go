package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Pastel / adaptive lipgloss styles. Users may disable color with NO_COLOR or
// SEMINAL_THEME=plain. Initialized via initStyles() in main.
var (
	styleBold     lipgloss.Style
	styleFaint    lipgloss.Style
	styleNumber   lipgloss.Style
	styleArgument lipgloss.Style
	styleFlag     lipgloss.Style
	styleCommand  lipgloss.Style
	styleHeader   lipgloss.Style
	styleInfo     lipgloss.Style
	styleSuccess  lipgloss.Style
	styleWarning  lipgloss.Style
	styleError    lipgloss.Style
	styleSubtle   lipgloss.Style
	styleArrow    lipgloss.Style
	stylePkg      lipgloss.Style
	styleRecv     lipgloss.Style
	styleMethod   lipgloss.Style
	stylePointer  lipgloss.Style
	styleVariable lipgloss.Style
)

func plainTheme() bool {
	return os.Getenv("NO_COLOR") != "" || strings.EqualFold(os.Getenv("SEMINAL_THEME"), "plain")
}

func initStyles() {
	if plainTheme() {
		reset := lipgloss.NewStyle()
		styleBold = lipgloss.NewStyle().Bold(true)
		styleFaint = reset
		styleNumber = reset
		styleArgument = reset
		styleFlag = reset
		styleCommand = lipgloss.NewStyle().Bold(true)
		styleHeader = lipgloss.NewStyle().Bold(true)
		styleInfo = reset
		styleSuccess = reset
		styleWarning = reset
		styleError = reset
		styleSubtle = reset
		styleArrow = reset
		stylePkg = reset
		styleRecv = reset
		styleMethod = reset
		stylePointer = reset
		styleVariable = reset
		return
	}

	pastelBlue := lipgloss.AdaptiveColor{Light: "#3366cc", Dark: "#8fb3ff"}
	pastelTeal := lipgloss.AdaptiveColor{Light: "#2b7a78", Dark: "#7ad1c4"}
	pastelLav := lipgloss.AdaptiveColor{Light: "#6d5fa6", Dark: "#b7a9ff"}
	pastelRose := lipgloss.AdaptiveColor{Light: "#ad5d7d", Dark: "#ffb3c9"}
	pastelGold := lipgloss.AdaptiveColor{Light: "#b58b00", Dark: "#ffd666"}
	pastelGreen := lipgloss.AdaptiveColor{Light: "#2f7d32", Dark: "#9ada9f"}
	pastelGray := lipgloss.AdaptiveColor{Light: "#6b6f76", Dark: "#9aa0aa"}
	pastelEdge := lipgloss.AdaptiveColor{Light: "#7a7f88", Dark: "#aab2bd"}
	pastelPkg := lipgloss.AdaptiveColor{Light: "#4a6892", Dark: "#87a7d9"}
	pastelRecv := lipgloss.AdaptiveColor{Light: "#7b5d8e", Dark: "#bfa3d6"}
	pastelPtr := lipgloss.AdaptiveColor{Light: "#9d7a00", Dark: "#d8b74a"}

	styleBold = lipgloss.NewStyle().Bold(true)
	styleFaint = lipgloss.NewStyle().Foreground(pastelGray)
	styleSubtle = lipgloss.NewStyle().Foreground(pastelGray)
	styleNumber = lipgloss.NewStyle().Foreground(pastelGold).Bold(true)
	styleArgument = lipgloss.NewStyle().Foreground(pastelTeal)
	styleFlag = lipgloss.NewStyle().Foreground(pastelLav)
	styleCommand = lipgloss.NewStyle().Foreground(pastelBlue).Bold(true)
	styleHeader = lipgloss.NewStyle().Foreground(pastelBlue).Bold(true)
	styleInfo = lipgloss.NewStyle().Foreground(pastelTeal)
	styleSuccess = lipgloss.NewStyle().Foreground(pastelGreen)
	styleWarning = lipgloss.NewStyle().Foreground(pastelGold).Bold(true)
	styleError = lipgloss.NewStyle().Foreground(pastelRose).Bold(true)
	styleArrow = lipgloss.NewStyle().Foreground(pastelEdge)
	stylePkg = lipgloss.NewStyle().Foreground(pastelPkg)
	styleRecv = lipgloss.NewStyle().Foreground(pastelRecv)
	styleMethod = lipgloss.NewStyle().Foreground(pastelTeal).Bold(true)
	stylePointer = lipgloss.NewStyle().Foreground(pastelPtr)
	styleVariable = lipgloss.NewStyle().Foreground(pastelRose)
}

// styleFunction colors a function name by its parts: package path, receiver
// and name. C function names have no package and are rendered whole.
func styleFunction(full string) string {
	if full == "" {
		return full
	}

	if strings.HasPrefix(full, "(") {
		end := strings.Index(full, ")")
		if end > 0 && end+1 < len(full) && full[end+1] == '.' {
			return styleReceiver(full[:end+1]) + "." + styleMethod.Render(full[end+2:])
		}
	}

	lastDot := strings.LastIndex(full, ".")
	if lastDot == -1 {
		return styleMethod.Render(full)
	}
	return stylePkg.Render(full[:lastDot]) + "." + styleMethod.Render(full[lastDot+1:])
}

func styleReceiver(recv string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(recv, "("), ")")

	ptr := strings.HasPrefix(inner, "*")
	inner = strings.TrimPrefix(inner, "*")

	colored := styleRecv.Render(inner)
	if lastDot := strings.LastIndex(inner, "."); lastDot != -1 {
		colored = stylePkg.Render(inner[:lastDot]) + "." + styleRecv.Render(inner[lastDot+1:])
	}

	if ptr {
		return "(" + stylePointer.Render("*") + colored + ")"
	}
	return "(" + colored + ")"
}
