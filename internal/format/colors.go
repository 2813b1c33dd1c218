// Package format renders values and tables for the console.
package format

import (
	"fmt"
	"regexp"
	"time"

	"github.com/fatih/color"
)

var (
	Green   = color.New(color.FgGreen).SprintFunc()
	Red     = color.New(color.FgRed).SprintFunc()
	Yellow  = color.New(color.FgYellow).SprintFunc()
	Cyan    = color.New(color.FgCyan).SprintFunc()
	Magenta = color.New(color.FgMagenta).SprintFunc()
	Bold    = color.New(color.Bold).SprintFunc()
	Dim     = color.New(color.Faint).SprintFunc()

	// Attention marks errors raised by evaluated code.
	Attention = Red
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// stripANSI removes ANSI escape codes to get actual visible length
func stripANSI(str string) string {
	return ansiRegex.ReplaceAllString(str, "")
}

// VisibleLen is the printed width of str, ignoring colour codes.
func VisibleLen(str string) int {
	return len([]rune(stripANSI(str)))
}

// ColorLatency colours a call latency by how slow it was.
func ColorLatency(d time.Duration) string {
	ms := d.Milliseconds()
	switch {
	case d == 0:
		return Dim("-")
	case ms < 100:
		return Green(fmt.Sprintf("%dms", ms))
	case ms < 300:
		return Yellow(fmt.Sprintf("%dms", ms))
	default:
		return Red(fmt.Sprintf("%dms", ms))
	}
}

// ColorFailures highlights a non-zero failure count.
func ColorFailures(failures, total int) string {
	str := fmt.Sprintf("%d/%d", failures, total)
	switch {
	case failures == 0:
		return Green(str)
	case failures*5 < total:
		return Yellow(str)
	default:
		return Red(str)
	}
}
