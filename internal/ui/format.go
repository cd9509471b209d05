package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/johnh2o2/coparent-sub000/internal/block"
)

// printOrder fixes how providers are listed in stats and bars.
var printOrder = []block.Provider{
	block.ProviderMom,
	block.ProviderDad,
	block.ProviderNanny,
	block.ProviderGrandparent,
	block.ProviderNone,
}

// PrintBlockRow prints a single care block row.
func PrintBlockRow(b *block.TimeBlock, maxNotesWidth int) {
	provider := formatProvider(b.Provider, fmt.Sprintf("%-11s", b.Provider))

	marker := "   "
	if b.IsTemplate() {
		marker = formatMuted(" ⟳ ")
	}

	notes := b.Notes
	if maxNotesWidth > 0 && len(notes) > maxNotesWidth {
		notes = notes[:maxNotesWidth-3] + "..."
	}

	duration := formatMuted(FormatDuration(b.DurationMinutes()))
	if notes != "" {
		fmt.Printf("  %s %s  %s  %s  %s\n", marker, b.TimeRange(), provider, duration, notes)
	} else {
		fmt.Printf("  %s %s  %s  %s\n", marker, b.TimeRange(), provider, duration)
	}
}

// PrintDayGrouped prints blocks grouped under a header per day.
func PrintDayGrouped(blocks []*block.TimeBlock, maxNotesWidth int) {
	var currentDate string
	for _, b := range blocks {
		date := b.Day.Format("2006-01-02")
		if date != currentDate {
			if currentDate != "" {
				fmt.Println()
			}
			fmt.Printf("  %s\n", formatHeader(b.Day.Format("Mon Jan 2")))
			currentDate = date
		}
		PrintBlockRow(b, maxNotesWidth)
	}
}

// PrintProviderStats prints one line per provider with its care total.
func PrintProviderStats(minutes map[block.Provider]int) {
	total := 0
	for _, m := range minutes {
		total += m
	}
	if total == 0 {
		return
	}

	parts := make([]string, 0, len(minutes))
	for _, p := range printOrder {
		m, ok := minutes[p]
		if !ok || m == 0 {
			continue
		}
		pct := (m * 100) / total
		parts = append(parts, formatProvider(p, fmt.Sprintf("%s: %s (%d%%)", p, FormatDuration(m), pct)))
	}
	fmt.Printf("  %s  |  Total: %s\n", strings.Join(parts, "  |  "), formatStats(FormatDuration(total)))
}

// ShareBar renders the mom/dad split of parental care time as a bar.
// Non-parent care is excluded; an even split reads as balanced.
func ShareBar(minutes map[block.Provider]int, width int) string {
	mom := minutes[block.ProviderMom]
	dad := minutes[block.ProviderDad]
	total := mom + dad
	if total == 0 {
		return "[" + strings.Repeat("░", width) + "] (no parental care)"
	}

	filled := (mom * width) / total
	bar := colorMom.Sprint(strings.Repeat("█", filled)) + colorDad.Sprint(strings.Repeat("█", width-filled))
	pct := (mom * 100) / total
	return fmt.Sprintf("[%s] %s", bar, formatStats(fmt.Sprintf("(mom %d%% / dad %d%%)", pct, 100-pct)))
}

// FormatDuration formats minutes as a human-readable duration.
func FormatDuration(minutes int) string {
	if minutes == 0 {
		return "0m"
	}
	hours := minutes / 60
	mins := minutes % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	if mins == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%dm", hours, mins)
}

// FormatDelta renders a provider->minutes delta map as a stable,
// signed, comma-separated list.
func FormatDelta(delta map[string]int) string {
	if len(delta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(delta))
	for k := range delta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		m := delta[k]
		sign := "+"
		if m < 0 {
			sign = "-"
			m = -m
		}
		parts = append(parts, fmt.Sprintf("%s %s%s", k, sign, FormatDuration(m)))
	}
	return strings.Join(parts, ", ")
}

// CalcMaxNotesWidth sizes the notes column from the terminal width.
func CalcMaxNotesWidth(defaultWidth int) int {
	// Base: "   ⟳  HH:MM-HH:MM  provider     XhYm  " = ~40 chars
	available := termWidth() - 40
	if available > defaultWidth {
		return available
	}
	return defaultWidth
}
