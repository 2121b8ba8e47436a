package formatter

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/socialhub/socialhub-cli/pkg/output"
)

var (
	Bold    = color.New(color.Bold)
	Success = color.New(color.FgGreen)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Warning = color.New(color.FgYellow)
	Muted   = color.New(color.FgHiBlack)
)

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	output.PrintSuccess(format, args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	output.PrintError(format, args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	output.PrintInfo(format, args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	output.PrintWarning(format, args...)
}

// PrintKeyValue prints key-value pairs using the centralized output service
func PrintKeyValue(data map[string]interface{}) {
	_ = output.PrintRecord("", data)
}

// Printf writes to the shared output writer
func Printf(format string, args ...interface{}) {
	fmt.Fprintf(output.Writer, format, args...)
}

// Separator prints the rule used between sections
func Separator() {
	fmt.Fprintln(output.Writer, strings.Repeat("─", 60))
}

// Header prints a bold title over a separator
func Header(title string) {
	fmt.Fprintln(output.Writer)
	Bold.Fprintln(output.Writer, title)
	Separator()
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis
func Truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}

// Pluralize returns "1 comment" or "3 comments"
func Pluralize(count int, word string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, word)
	}
	return fmt.Sprintf("%d %ss", count, word)
}

// TimeAgo renders a timestamp relative to now
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t)
}

// Bytes renders a byte count with binary units
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Count renders large counts with separators, e.g. 12,345
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Clock renders a playback position as m:ss or h:mm:ss
func Clock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

var reactionEmoji = map[string]string{
	"like":  "👍",
	"love":  "❤️",
	"haha":  "😂",
	"wow":   "😮",
	"sad":   "😢",
	"angry": "😠",
}

// ReactionEmoji maps a reaction type to its emoji
func ReactionEmoji(reaction string) string {
	if e, ok := reactionEmoji[reaction]; ok {
		return e
	}
	return "•"
}

// Check renders a boolean as a tick or blank
func Check(b bool) string {
	if b {
		return "✓"
	}
	return ""
}
