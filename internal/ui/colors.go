// Package ui renders update snapshots and messages on the terminal.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	// Colors for different message types
	Success = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Warning = color.New(color.FgYellow, color.Bold)
	Info    = color.New(color.FgCyan)
	Header  = color.New(color.FgMagenta, color.Bold)
	Muted   = color.New(color.FgHiBlack)

	// Colors for update rows
	PackageName = color.New(color.FgWhite, color.Bold)
	OldVersion  = color.New(color.FgRed)
	NewVersion  = color.New(color.FgGreen)
	Repository  = color.New(color.FgCyan)
	Flagged     = color.New(color.FgYellow)
)

// UseColors represents whether colors should be used.
var UseColors = true

// UseUnicode represents whether unicode symbols should be used.
var UseUnicode = true

// Symbols for status indicators
var (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "!"
	SymbolInfo    = "→"
	SymbolArrow   = "→"
	SymbolStale   = "~"
)

// Init initializes the UI settings based on configuration.
func Init(useColors, useUnicode bool) {
	UseColors = useColors
	UseUnicode = useUnicode

	color.NoColor = !useColors || os.Getenv("NO_COLOR") != ""

	if useUnicode {
		SymbolSuccess = "✓"
		SymbolError = "✗"
		SymbolWarning = "!"
		SymbolInfo = "→"
		SymbolArrow = "→"
		SymbolStale = "~"
		return
	}
	SymbolSuccess = "[OK]"
	SymbolError = "[ERROR]"
	SymbolWarning = "[WARN]"
	SymbolInfo = "->"
	SymbolArrow = "->"
	SymbolStale = "[stale]"
}

// SuccessMsg prints a success message.
func SuccessMsg(format string, args ...any) {
	Success.Printf(SymbolSuccess+" "+format+"\n", args...)
}

// ErrorMsg prints an error message to stderr.
func ErrorMsg(format string, args ...any) {
	Error.Fprintf(os.Stderr, SymbolError+" "+format+"\n", args...)
}

// WarningMsg prints a warning message to stderr.
func WarningMsg(format string, args ...any) {
	Warning.Fprintf(os.Stderr, SymbolWarning+" "+format+"\n", args...)
}

// InfoMsg prints an info message.
func InfoMsg(format string, args ...any) {
	Info.Printf(SymbolInfo+" "+format+"\n", args...)
}

// HeaderMsg prints a header message.
func HeaderMsg(format string, args ...any) {
	Header.Printf("\n"+format+"\n", args...)
}

// MutedMsg prints a muted (dim) message.
func MutedMsg(format string, args ...any) {
	Muted.Printf(format+"\n", args...)
}

// Println prints a plain line with formatting.
func Println(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// Bold returns a bold string.
func Bold(s string) string {
	return color.New(color.Bold).Sprint(s)
}

// Cyan returns a cyan string.
func Cyan(s string) string {
	return color.CyanString(s)
}
