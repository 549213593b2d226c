package printer

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/finleyb/corkboard/pkg/board"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	// Color definitions
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Error creates a formatted error message with title, explanation, and suggestions
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	// Print title in red to stderr
	red.Fprintf(os.Stderr, "%s\n\n", title)

	// Print explanation
	fmt.Fprintf(os.Stderr, "%s\n", explanation)

	// Print suggestions
	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Event prints one live board delta, color-coded by what happened:
// creates in green, updates in cyan, deletes in red, presence faint.
func Event(d *board.Delta) {
	switch d.Kind {
	case board.EventTaskCreated:
		green.Printf("+ task %s %q\n", d.Task.ID, d.Task.Title)
	case board.EventTaskUpdated:
		cyan.Printf("~ task %s %q (%.0f,%.0f) %s\n", d.Task.ID, d.Task.Title, d.Task.Position.X, d.Task.Position.Y, d.Task.Status)
	case board.EventTaskDeleted:
		red.Printf("- task %s\n", d.EntityID)
	case board.EventGroupCreated:
		green.Printf("+ group %s %q\n", d.Group.ID, d.Group.Name)
	case board.EventGroupUpdated:
		cyan.Printf("~ group %s %q\n", d.Group.ID, d.Group.Name)
	case board.EventGroupDeleted:
		red.Printf("- group %s\n", d.EntityID)
	case board.EventConnectionCreated:
		green.Printf("+ connection %s → %s\n", d.Connection.FromID, d.Connection.ToID)
	case board.EventConnectionUpdated:
		cyan.Printf("~ connection %s → %s\n", d.Connection.FromID, d.Connection.ToID)
	case board.EventConnectionDeleted:
		red.Printf("- connection %s\n", d.EntityID)
	case board.EventPresenceChanged:
		if d.Presence.IsOnline {
			faint.Printf("· %s is online\n", d.Presence.UserID)
		} else {
			faint.Printf("· %s went offline\n", d.Presence.UserID)
		}
	}
}

// Println prints a plain message (for output that doesn't need coloring)
func Println(a ...any) {
	fmt.Println(a...)
}

// Printf prints a plain formatted message (for output that doesn't need coloring)
func Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}
