// Package format renders the user-facing confirmation for an applied command.
// The HTTP API and the messaging webhook both use it, so their wording never differs.
package format

import (
	"fmt"
	"strings"

	"github.com/starford/pagebot/internal/color"
	"github.com/starford/pagebot/internal/command"
	"github.com/starford/pagebot/internal/state"
)

const (
	// HelpMessage answers instructions that matched no intent.
	HelpMessage = `I couldn't understand that instruction. Try something like "Add a link to google.com in red color" or "Update text to "Welcome to my website""`
	// FailureMessage answers instructions whose interpretation failed.
	FailureMessage = "Sorry, I couldn't process that instruction right now. Please try again in a moment."

	successGlyph = "✅"
	failureGlyph = "❌"
)

// Message returns the confirmation for cmd given the store's result.
func Message(cmd command.Command, res state.Result) string {
	switch c := cmd.(type) {
	case command.AddButton:
		// A result that appended nothing was not applied.
		if len(res.Buttons) == 0 {
			return FailureMessage
		}
		b := res.Buttons[0]
		return fmt.Sprintf("Added a %s button linking to %s", color.Name(b.Color), b.URL)
	case command.AddButtons:
		if len(res.Buttons) == 0 {
			return FailureMessage
		}
		lines := make([]string, len(res.Buttons))
		for i, b := range res.Buttons {
			lines[i] = fmt.Sprintf("• %s → %s (%s)", b.Text, b.URL, color.Name(b.Color))
		}
		return strings.Join(lines, "\n")
	case command.UpdateText:
		return "Text content updated"
	case command.UpdateLogo:
		if c.URL == "" {
			return "Logo unchanged (no URL found)"
		}
		return "Logo updated"
	case command.UpdateBanner:
		if c.URL == "" {
			return "Banner unchanged (no URL found)"
		}
		return "Banner updated"
	case command.Unknown:
		return HelpMessage
	default:
		return FailureMessage
	}
}

// Succeeded reports whether cmd is reported to the user as a success.
func Succeeded(cmd command.Command) bool {
	return command.Actionable(cmd)
}

// Reply prefixes message with the success or failure glyph for the messaging channel.
func Reply(cmd command.Command, message string) string {
	if Succeeded(cmd) {
		return successGlyph + " " + message
	}
	return failureGlyph + " " + message
}
