package tui

import "github.com/charmbracelet/lipgloss"

// Acid-inspired color scheme (303/acid aesthetic)
var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")
	dimGray    = lipgloss.Color("#666666")
	alertRed   = lipgloss.Color("#FF0000")
)

type styles struct {
	title    lipgloss.Style
	menu     lipgloss.Style
	selected lipgloss.Style
	detail   lipgloss.Style
	status   lipgloss.Style
	notes    lipgloss.Style
	rest     lipgloss.Style
	err      lipgloss.Style
	help     lipgloss.Style
	box      lipgloss.Style
	logo     lipgloss.Style
	spinner  lipgloss.Style
}

func newStyles(colors bool) styles {
	if !colors {
		plain := lipgloss.NewStyle()
		return styles{
			title:    plain.Bold(true).MarginBottom(1),
			menu:     plain.PaddingLeft(2),
			selected: plain.Bold(true).PaddingLeft(2),
			detail:   plain.PaddingLeft(4),
			status:   plain.PaddingTop(1),
			notes:    plain.Bold(true),
			rest:     plain,
			err:      plain.Bold(true),
			help:     plain.MarginTop(1),
			box:      plain.Border(lipgloss.NormalBorder()).Padding(1, 2),
			logo:     plain,
			spinner:  plain,
		}
	}

	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1),
		menu: lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2),
		selected: lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true).
			PaddingLeft(2),
		detail: lipgloss.NewStyle().
			Foreground(acidYellow).
			PaddingLeft(4),
		status: lipgloss.NewStyle().
			Foreground(acidYellow).
			PaddingTop(1),
		notes: lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true),
		rest: lipgloss.NewStyle().
			Foreground(dimGray),
		err: lipgloss.NewStyle().
			Foreground(alertRed).
			Bold(true),
		help: lipgloss.NewStyle().
			Foreground(dimGray).
			MarginTop(1),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(acidGreen).
			Padding(1, 2),
		logo:    lipgloss.NewStyle().Foreground(acidGreen),
		spinner: lipgloss.NewStyle().Foreground(acidGreen),
	}
}
