package interpreter

import (
	"context"
	"regexp"
	"strings"

	"github.com/starford/pagebot/internal/color"
	"github.com/starford/pagebot/internal/command"
)

// ReasonTextNeedsQuotes is the Unknown reason for an unquoted text update in
// strict mode.
const ReasonTextNeedsQuotes = "text update requires a quoted argument"

var (
	urlRe    = regexp.MustCompile(`(?i)\b(https?://\S+|www\.\S+\.\S+|\S+\.(?:com|org|net|edu)\S*)\b`)
	colorRe  = regexp.MustCompile(`(?i)\b(` + strings.Join(color.Names(), "|") + `)\b`)
	quotedRe = regexp.MustCompile(`"([^"]*)"`)
	toRe     = regexp.MustCompile(`(?i)to "([^"]*)"`)
	withRe   = regexp.MustCompile(`(?i)with "([^"]*)"`)

	curlyQuotes = strings.NewReplacer("“", `"`, "”", `"`, "„", `"`)
)

// intents in priority order; the first whose keyword occurs wins.
var intents = []struct {
	action   command.Action
	keywords []string
}{
	{command.ActionAddButton, []string{"add a link", "add link"}},
	{command.ActionUpdateText, []string{"update text", "change text"}},
	{command.ActionUpdateLogo, []string{"change logo", "update logo"}},
	{command.ActionUpdateBanner, []string{"change banner", "update banner"}},
}

// Pattern interprets instructions with keyword and regular-expression matching.
type Pattern struct {
	// StrictText makes an update-text instruction without a quoted argument
	// Unknown instead of storing the whole instruction as the new text.
	StrictText bool
}

// NewPattern creates the pattern-matching interpreter.
func NewPattern(strictText bool) *Pattern {
	return &Pattern{StrictText: strictText}
}

// Interpret implements Interpreter. It never blocks.
func (p *Pattern) Interpret(_ context.Context, instruction string) command.Command {
	if strings.TrimSpace(instruction) == "" {
		return command.Unknown{Reason: command.ReasonNoInstruction}
	}
	text := curlyQuotes.Replace(instruction)
	lower := strings.ToLower(text)

	switch matchIntent(lower) {
	case command.ActionAddButton:
		return command.AddButton{Button: command.ButtonSpec{
			URL:   orDefault(extractURL(text), "#"),
			Text:  buttonLabel(text, lower),
			Color: extractColor(text),
		}}
	case command.ActionUpdateText:
		if t, ok := quotedArgument(text, lower); ok {
			return command.UpdateText{Text: t}
		}
		if p.StrictText {
			return command.Unknown{Reason: ReasonTextNeedsQuotes}
		}
		return command.UpdateText{Text: instruction}
	case command.ActionUpdateLogo:
		return command.UpdateLogo{URL: extractURL(text)}
	case command.ActionUpdateBanner:
		return command.UpdateBanner{URL: extractURL(text)}
	default:
		return command.Unknown{Reason: command.ReasonUnrecognized}
	}
}

func matchIntent(lower string) command.Action {
	for _, in := range intents {
		for _, kw := range in.keywords {
			if strings.Contains(lower, kw) {
				return in.action
			}
		}
	}
	return command.ActionUnknown
}

// extractURL returns the first URL-like token, or "" when there is none.
// A bare www. host gets an https:// scheme.
func extractURL(text string) string {
	u := urlRe.FindString(text)
	if strings.HasPrefix(strings.ToLower(u), "www.") {
		u = "https://" + u
	}
	return u
}

func extractColor(text string) string {
	return color.Resolve(colorRe.FindString(text))
}

func buttonLabel(text, lower string) string {
	if strings.Contains(lower, "text") {
		if m := quotedRe.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return "Link"
}

// quotedArgument extracts the text of `to "..."` or, failing that, `with "..."`.
func quotedArgument(text, lower string) (string, bool) {
	var re *regexp.Regexp
	switch {
	case strings.Contains(lower, `to "`):
		re = toRe
	case strings.Contains(lower, `with "`):
		re = withRe
	default:
		return "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
