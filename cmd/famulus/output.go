package main

import (
	"fmt"
	"os"
)

// Status output goes to stderr so stdout stays clean for piped chat
// transcripts. Colors honor the --no-color flag.

type tint string

const (
	tintRed    tint = "\033[31m"
	tintGreen  tint = "\033[32m"
	tintYellow tint = "\033[33m"
	tintBold   tint = "\033[1m"
)

func (c tint) wrap(text string) string {
	if noColor {
		return text
	}
	return string(c) + text + "\033[0m"
}

func emit(c tint, mark, format string, args ...any) {
	fmt.Fprintln(os.Stderr, c.wrap(mark+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { emit(tintGreen, "✓", format, args...) }
func printError(format string, args ...any)   { emit(tintRed, "✗", format, args...) }
func printWarning(format string, args ...any) { emit(tintYellow, "⚠", format, args...) }

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", tintBold.wrap(label+":"), fmt.Sprintf(format, args...))
}
