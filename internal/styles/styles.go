// Package styles holds the lipgloss colours and styles shared by the prompt,
// the line renderer and the CLI tables.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Prompt colours use the 16 basic terminal colours so that prompts follow
	// the user's terminal theme.
	BlackColor   = lipgloss.Color("0")
	RedColor     = lipgloss.Color("1")
	GreenColor   = lipgloss.Color("2")
	YellowColor  = lipgloss.Color("3")
	BlueColor    = lipgloss.Color("4")
	MagentaColor = lipgloss.Color("5")
	CyanColor    = lipgloss.Color("6")
	WhiteColor   = lipgloss.Color("7")
	GrayColor    = lipgloss.Color("8")

	// UI colours
	PrimaryColor = lipgloss.Color("#A78BFA") // Purple (violet-400)
	WarningColor = lipgloss.Color("#F59E0B") // Amber
	ErrorColor   = lipgloss.Color("#F87171") // Red (red-400)
	MutedColor   = lipgloss.Color("#9CA3AF") // Gray

	// Convenience styles for colors
	Primary = lipgloss.NewStyle().Foreground(PrimaryColor)
	Warning = lipgloss.NewStyle().Foreground(WarningColor)
	Error   = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted   = lipgloss.NewStyle().Foreground(MutedColor)

	// SearchLabel styles the "(reverse-i-search)'query': " prefix.
	SearchLabel = lipgloss.NewStyle().Foreground(MutedColor)

	// SearchFailed styles the prefix when the query has no match.
	SearchFailed = lipgloss.NewStyle().Foreground(WarningColor)

	// TableHeader styles header cells of CLI tables.
	TableHeader = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).Padding(0, 1)

	// TableCell styles body cells of CLI tables.
	TableCell = lipgloss.NewStyle().Padding(0, 1)

	// TableIndex styles the index column of the history table.
	TableIndex = lipgloss.NewStyle().Foreground(MutedColor).Padding(0, 1).Align(lipgloss.Right)
)

// promptColors maps prompt template colour keys to terminal colours.
var promptColors = map[string]lipgloss.Color{
	"KBLK": BlackColor,
	"KRED": RedColor,
	"KGRN": GreenColor,
	"KYEL": YellowColor,
	"KBLU": BlueColor,
	"KMAG": MagentaColor,
	"KCYN": CyanColor,
	"KWHT": WhiteColor,
	"KGRY": GrayColor,
}

// PromptColor returns the colour for a prompt colour key such as "KRED".
func PromptColor(key string) (lipgloss.Color, bool) {
	c, ok := promptColors[key]
	return c, ok
}

// PromptColorKeys returns every colour key understood by PromptColor.
func PromptColorKeys() []string {
	return []string{"KBLK", "KRED", "KGRN", "KYEL", "KBLU", "KMAG", "KCYN", "KWHT", "KGRY"}
}
