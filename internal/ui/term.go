package ui

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/johnh2o2/coparent-sub000/internal/block"
)

// Color definitions for consistent styling across the UI.
var (
	colorMom         = color.New(color.FgMagenta, color.Bold)
	colorDad         = color.New(color.FgCyan, color.Bold)
	colorNanny       = color.New(color.FgGreen)
	colorGrandparent = color.New(color.FgYellow)

	// Headers: bold
	colorHeader = color.New(color.Bold)

	// Stats: green for positive metrics
	colorStats = color.New(color.FgGreen)

	// Muted: for secondary information
	colorMuted = color.New(color.FgWhite, color.Faint)

	// Warnings: partial failures, skipped items
	colorWarn = color.New(color.FgYellow, color.Bold)
)

// termWidth returns the terminal width, or a default if detection fails.
func termWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // sensible default
	}
	return width
}

// DisableColor disables all color output.
func DisableColor() {
	color.NoColor = true
}

// EnableColor enables color output (if terminal supports it).
func EnableColor() {
	color.NoColor = false
}

// formatProvider colors a string with the provider's color.
func formatProvider(p block.Provider, s string) string {
	switch p {
	case block.ProviderMom:
		return colorMom.Sprint(s)
	case block.ProviderDad:
		return colorDad.Sprint(s)
	case block.ProviderNanny:
		return colorNanny.Sprint(s)
	case block.ProviderGrandparent:
		return colorGrandparent.Sprint(s)
	default:
		return colorMuted.Sprint(s)
	}
}

// formatHeader formats text as a header.
func formatHeader(s string) string {
	return colorHeader.Sprint(s)
}

// formatStats formats text for statistics.
func formatStats(s string) string {
	return colorStats.Sprint(s)
}

// formatMuted formats text as secondary/muted.
func formatMuted(s string) string {
	return colorMuted.Sprint(s)
}

// formatWarn formats text as a warning.
func formatWarn(s string) string {
	return colorWarn.Sprint(s)
}
