// Package theme defines the color palettes for the curstat monitor.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme maps the color roles the monitor draws with. Quota bars pick
// Green/Yellow/Orange/Red by utilization; Cyan marks countdowns.
type Theme struct {
	Name          string
	Background    lipgloss.Color
	Surface       lipgloss.Color // card and panel fill
	SurfaceBright lipgloss.Color // selected rows
	Border        lipgloss.Color
	BorderAccent  lipgloss.Color // focused elements
	TextDim       lipgloss.Color
	TextMuted     lipgloss.Color
	TextPrimary   lipgloss.Color
	Accent        lipgloss.Color
	AccentBright  lipgloss.Color
	Green         lipgloss.Color
	GreenBright   lipgloss.Color
	Yellow        lipgloss.Color
	Orange        lipgloss.Color
	Red           lipgloss.Color
	Cyan          lipgloss.Color
}

// Active is the theme all components render with.
var Active = FlexokiDark

// FlexokiDark is the default: warm, paper-inspired dark palette.
var FlexokiDark = Theme{
	Name:          "flexoki-dark",
	Background:    lipgloss.Color("#100F0F"),
	Surface:       lipgloss.Color("#1C1B1A"),
	SurfaceBright: lipgloss.Color("#343331"),
	Border:        lipgloss.Color("#403E3C"),
	BorderAccent:  lipgloss.Color("#3AA99F"),
	TextDim:       lipgloss.Color("#575653"),
	TextMuted:     lipgloss.Color("#878580"),
	TextPrimary:   lipgloss.Color("#FFFCF0"),
	Accent:        lipgloss.Color("#3AA99F"),
	AccentBright:  lipgloss.Color("#5BC8BE"),
	Green:         lipgloss.Color("#879A39"),
	GreenBright:   lipgloss.Color("#A3B859"),
	Yellow:        lipgloss.Color("#D0A215"),
	Orange:        lipgloss.Color("#DA702C"),
	Red:           lipgloss.Color("#D14D41"),
	Cyan:          lipgloss.Color("#24837B"),
}

// CatppuccinMocha is a soft pastel dark palette.
var CatppuccinMocha = Theme{
	Name:          "catppuccin-mocha",
	Background:    lipgloss.Color("#1E1E2E"),
	Surface:       lipgloss.Color("#313244"),
	SurfaceBright: lipgloss.Color("#585B70"),
	Border:        lipgloss.Color("#585B70"),
	BorderAccent:  lipgloss.Color("#89B4FA"),
	TextDim:       lipgloss.Color("#6C7086"),
	TextMuted:     lipgloss.Color("#A6ADC8"),
	TextPrimary:   lipgloss.Color("#CDD6F4"),
	Accent:        lipgloss.Color("#89B4FA"),
	AccentBright:  lipgloss.Color("#B4D0FB"),
	Green:         lipgloss.Color("#A6E3A1"),
	GreenBright:   lipgloss.Color("#C6F6C1"),
	Yellow:        lipgloss.Color("#F9E2AF"),
	Orange:        lipgloss.Color("#FAB387"),
	Red:           lipgloss.Color("#F38BA8"),
	Cyan:          lipgloss.Color("#94E2D5"),
}

// GruvboxDark is a retro earth-tone palette.
var GruvboxDark = Theme{
	Name:          "gruvbox-dark",
	Background:    lipgloss.Color("#1D2021"),
	Surface:       lipgloss.Color("#282828"),
	SurfaceBright: lipgloss.Color("#3C3836"),
	Border:        lipgloss.Color("#504945"),
	BorderAccent:  lipgloss.Color("#83A598"),
	TextDim:       lipgloss.Color("#665C54"),
	TextMuted:     lipgloss.Color("#A89984"),
	TextPrimary:   lipgloss.Color("#EBDBB2"),
	Accent:        lipgloss.Color("#83A598"),
	AccentBright:  lipgloss.Color("#8EC07C"),
	Green:         lipgloss.Color("#98971A"),
	GreenBright:   lipgloss.Color("#B8BB26"),
	Yellow:        lipgloss.Color("#D79921"),
	Orange:        lipgloss.Color("#FE8019"),
	Red:           lipgloss.Color("#FB4934"),
	Cyan:          lipgloss.Color("#689D6A"),
}

// Terminal sticks to the ANSI 16 palette for maximum compatibility.
var Terminal = Theme{
	Name:          "terminal",
	Background:    lipgloss.Color("0"),
	Surface:       lipgloss.Color("0"),
	SurfaceBright: lipgloss.Color("8"),
	Border:        lipgloss.Color("8"),
	BorderAccent:  lipgloss.Color("6"),
	TextDim:       lipgloss.Color("8"),
	TextMuted:     lipgloss.Color("7"),
	TextPrimary:   lipgloss.Color("15"),
	Accent:        lipgloss.Color("6"),
	AccentBright:  lipgloss.Color("14"),
	Green:         lipgloss.Color("2"),
	GreenBright:   lipgloss.Color("10"),
	Yellow:        lipgloss.Color("3"),
	Orange:        lipgloss.Color("3"),
	Red:           lipgloss.Color("1"),
	Cyan:          lipgloss.Color("6"),
}

// All available themes, default first.
var All = []Theme{FlexokiDark, CatppuccinMocha, GruvboxDark, Terminal}

// ByName returns the named theme, defaulting to FlexokiDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// SetActive switches the palette every component reads.
func SetActive(name string) {
	Active = ByName(name)
}
