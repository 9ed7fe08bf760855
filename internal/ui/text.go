package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Formatter applies semantic formatting to text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...interface{}) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// noColor returns true if color output should be disabled.
func noColor() bool {
	// https://no-color.org/
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

// Semantic formatters for different types of CLI output.
var (
	// Code formats runnable commands. Yellow with color, `backticks` without.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats file or directory paths.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Env formats environment names. Cyan with color, 'single quotes' without.
	Env = Formatter{color.New(color.FgCyan), "'", "'"}

	// Key formats recipient public keys and variable names.
	Key = Formatter{color.New(color.FgMagenta), "", ""}

	Success = Formatter{color.New(color.FgGreen), "", ""}
	Error   = Formatter{color.New(color.FgRed), "", ""}
	Warning = Formatter{color.New(color.FgYellow), "", ""}
	Info    = Formatter{color.New(color.FgCyan), "", ""}

	// Heading formats section titles. Bold with color, undecorated without.
	Heading = Formatter{color.New(color.Bold), "", ""}

	// Muted formats secondary text. Gray with color, (parentheses) without.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)

// Status line markers.
const (
	markSuccess = "✓"
	markError   = "✗"
	markWarning = "⚠"
	markHint    = "→"
)

// SuccessLine renders "✓ msg".
func SuccessLine(msg string) string {
	return Success.Sprint(markSuccess) + " " + msg
}

// ErrorLine renders "✗ msg".
func ErrorLine(msg string) string {
	return Error.Sprint(markError) + " " + msg
}

// WarningLine renders "⚠ msg".
func WarningLine(msg string) string {
	return Warning.Sprint(markWarning) + " " + msg
}

// HintLine renders "→ msg".
func HintLine(msg string) string {
	return Info.Sprint(markHint) + " " + msg
}

// Lines joins non-empty lines with newlines.
func Lines(lines ...string) string {
	kept := lines[:0:0]
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// Bullets renders items as an indented list.
func Bullets(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("\n    • ")
		b.WriteString(item)
	}
	return b.String()
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}
