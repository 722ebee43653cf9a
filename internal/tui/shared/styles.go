package shared

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Exported constants organized by category.
const (
	// ============================================================================
	// UI Layout & Display
	// ============================================================================

	// DefaultPadding is the default padding for UI elements
	DefaultPadding = 2
	// ProgressBarWidth is the default width of progress bars
	ProgressBarWidth = 40
	// MaxProgressBarWidth is the maximum width for progress bars
	MaxProgressBarWidth = 100
	// PathDisplayMargin is subtracted from the terminal width when truncating paths
	PathDisplayMargin = 20

	// ============================================================================
	// Time Intervals
	// ============================================================================

	// TickIntervalMs is the interval for tick messages in milliseconds
	TickIntervalMs = 250

	// ============================================================================
	// Display Limits & Formatting
	// ============================================================================

	// EllipsisLength is the length of the ellipsis for truncated paths
	EllipsisLength = 3
	// ProgressPercentageScale converts a 0..1 fraction into a percentage
	ProgressPercentageScale = 100
	// MaxLogEntries is how many log lines the job view keeps
	MaxLogEntries = 8

	// ============================================================================
	// Keys
	// ============================================================================

	KeyCtrlC  = "ctrl+c"
	KeyPause  = "p"
	KeyResume = "r"
	KeyStop   = "s"
	KeyQuit   = "q"
)

//nolint:gochecknoglobals // Terminal capability detected once at startup
var colorsDisabled = os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb"

// GetColorsDisabled reports whether styled output is turned off.
func GetColorsDisabled() bool { return colorsDisabled }

// SetColorsDisabledForTesting overrides terminal detection.
func SetColorsDisabledForTesting(disabled bool) { colorsDisabled = disabled }

func AccentColor() lipgloss.Color    { return lipgloss.Color(accentColorCode) }
func DimColor() lipgloss.Color       { return lipgloss.Color(dimColorCode) }
func ErrorColor() lipgloss.Color     { return lipgloss.Color(errorColorCode) }
func HighlightColor() lipgloss.Color { return lipgloss.Color(highlightColorCode) }
func PrimaryColor() lipgloss.Color   { return lipgloss.Color(primaryColorCode) }
func SuccessColor() lipgloss.Color   { return lipgloss.Color(successColorCode) }
func WarningColor() lipgloss.Color   { return lipgloss.Color(warningColorCode) }

// ============================================================================
// Styles
// ============================================================================

// BoxStyle returns the style for boxes with padding
func BoxStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AccentColor()).
		Padding(1, DefaultPadding)
}

// DimStyle returns the style for dimmed text
func DimStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(DimColor())
}

// ErrorStyle returns the style for error messages
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(ErrorColor()).
		Bold(true)
}

// LabelStyle returns the style for labels
func LabelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(HighlightColor()).
		Bold(true)
}

// SuccessStyle returns the style for success messages
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(SuccessColor()).
		Bold(true)
}

// TitleStyle returns the style for titles
func TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor()).
		MarginBottom(1)
}

// WarningStyle returns the style for warning messages
func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(WarningColor()).
		Bold(true)
}

// ============================================================================
// Helper Functions
// ============================================================================

// RenderBox renders content in a box with consistent styling
func RenderBox(content string) string {
	return render(BoxStyle(), content)
}

// RenderDim renders dimmed text with consistent styling
func RenderDim(text string) string {
	return render(DimStyle(), text)
}

// RenderError renders an error message with consistent styling
func RenderError(text string) string {
	return render(ErrorStyle(), text)
}

// RenderLabel renders a label with consistent styling
func RenderLabel(text string) string {
	return render(LabelStyle(), text)
}

// RenderSuccess renders a success message with consistent styling
func RenderSuccess(text string) string {
	return render(SuccessStyle(), text)
}

// RenderTitle renders a title with consistent styling
func RenderTitle(text string) string {
	return render(TitleStyle(), text)
}

// RenderWarning renders a warning message with consistent styling
func RenderWarning(text string) string {
	return render(WarningStyle(), text)
}

func render(style lipgloss.Style, text string) string {
	if colorsDisabled {
		return text
	}

	return style.Render(text)
}

// unexported constants.
const (
	accentColorCode    = "62"  // Blue
	dimColorCode       = "240" // Dark gray
	errorColorCode     = "196" // Red
	highlightColorCode = "86"  // Cyan
	primaryColorCode   = "205" // Pink/purple
	successColorCode   = "42"  // Green
	warningColorCode   = "226" // Yellow
)
