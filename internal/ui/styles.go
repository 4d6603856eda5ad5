// Package ui renders CLI output: status glyphs, type badges and tables.
package ui

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var colorEnabled atomic.Bool

func init() {
	colorEnabled.Store(ShouldUseColor())
}

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

// typeColors follows the in-game type palette.
var typeColors = map[string]string{
	"normal":   "#A8A77A",
	"fire":     "#EE8130",
	"water":    "#6390F0",
	"electric": "#F7D02C",
	"grass":    "#7AC74C",
	"ice":      "#96D9D6",
	"fighting": "#C22E28",
	"poison":   "#A33EA1",
	"ground":   "#E2BF65",
	"flying":   "#A98FF3",
	"psychic":  "#F95587",
	"bug":      "#A6B91A",
	"rock":     "#B6A136",
	"ghost":    "#735797",
	"dragon":   "#6F35FC",
	"dark":     "#705746",
	"steel":    "#B7B7CE",
	"fairy":    "#D685AD",
}

// ShouldUseColor reports whether stdout should get ANSI styling.
// NO_COLOR disables it, CLICOLOR_FORCE forces it, otherwise stdout must be
// a terminal.
func ShouldUseColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if v := os.Getenv("CLICOLOR_FORCE"); v != "" && v != "0" {
		return true
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// SetColor overrides terminal detection.
func SetColor(enabled bool) {
	colorEnabled.Store(enabled)
}

// ColorEnabled reports whether styling is applied.
func ColorEnabled() bool {
	return colorEnabled.Load()
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled.Load() {
		return s
	}
	return style.Render(s)
}

// RenderAccent highlights headings and progress markers.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderPass marks success.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderWarn marks warnings.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderFail marks errors.
func RenderFail(s string) string { return render(failStyle, s) }

// RenderMuted dims secondary text.
func RenderMuted(s string) string { return render(mutedStyle, s) }

// RenderBold emphasises a value.
func RenderBold(s string) string { return render(boldStyle, s) }

// RenderTypes renders type names as colored badges separated by "/".
// Unknown types render unstyled.
func RenderTypes(types []string) string {
	badges := make([]string, 0, len(types))
	for _, t := range types {
		color, ok := typeColors[strings.ToLower(t)]
		if !ok {
			badges = append(badges, t)
			continue
		}
		badges = append(badges, render(lipgloss.NewStyle().Foreground(lipgloss.Color(color)), t))
	}
	return strings.Join(badges, "/")
}
