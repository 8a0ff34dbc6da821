package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the colour scheme used by the summary and the live view.
type Theme struct {
	Name    string
	Title   lipgloss.Color
	Border  lipgloss.Color
	Label   lipgloss.Color
	Value   lipgloss.Color
	Muted   lipgloss.Color
	Good    lipgloss.Color
	Warning lipgloss.Color
	Bad     lipgloss.Color
}

var (
	ThemePlasma = Theme{
		Name:    "plasma",
		Title:   lipgloss.Color("#ff79c6"),
		Border:  lipgloss.Color("#44475a"),
		Label:   lipgloss.Color("#8be9fd"),
		Value:   lipgloss.Color("#f8f8f2"),
		Muted:   lipgloss.Color("#6272a4"),
		Good:    lipgloss.Color("#50fa7b"),
		Warning: lipgloss.Color("#ffb86c"),
		Bad:     lipgloss.Color("#ff5555"),
	}

	ThemeMono = Theme{
		Name:    "mono",
		Title:   lipgloss.Color("#ffffff"),
		Border:  lipgloss.Color("#555555"),
		Label:   lipgloss.Color("#aaaaaa"),
		Value:   lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#777777"),
		Good:    lipgloss.Color("#dddddd"),
		Warning: lipgloss.Color("#bbbbbb"),
		Bad:     lipgloss.Color("#999999"),
	}

	ThemeCRT = Theme{
		Name:    "crt",
		Title:   lipgloss.Color("#33ff33"),
		Border:  lipgloss.Color("#115511"),
		Label:   lipgloss.Color("#22bb22"),
		Value:   lipgloss.Color("#66ff66"),
		Muted:   lipgloss.Color("#117711"),
		Good:    lipgloss.Color("#99ff99"),
		Warning: lipgloss.Color("#ffff33"),
		Bad:     lipgloss.Color("#ff3333"),
	}

	Themes = []Theme{ThemePlasma, ThemeMono, ThemeCRT}
)

// GetTheme looks a theme up by name, falling back to the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// next returns the theme after t in Themes.
func next(t Theme) Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}
