package interpreter

import (
	"strings"
)

const promptTemplate = `You convert instructions for editing a simple webpage into a single JSON command.

The page has a list of link buttons, one text box, a logo image and a banner image.

Supported actions and their parameters:
- "addButton": {"url": string, "text": string (optional), "color": string (optional, a color name or #hex)}
- "addButtons": {"buttons": [{"url": string, "text": string (optional), "color": string (optional)}]}
- "updateText": {"text": string}
- "updateLogo": {"url": string}
- "updateBanner": {"url": string}
- "unknown": {} when the instruction is not a page edit

Respond with exactly one JSON object of the form {"action": ..., "parameters": {...}, "message": ...}.
Do not add explanations, prose or Markdown.

Examples:
Instruction: Add a link to google.com in red color
{"action": "addButton", "parameters": {"url": "https://google.com", "text": "Link", "color": "red"}, "message": "Added a red button linking to https://google.com"}

Instruction: Change the text to say we are open on Sundays
{"action": "updateText", "parameters": {"text": "We are open on Sundays"}, "message": "Text content updated"}

Instruction: Use https://example.com/logo.png as our logo
{"action": "updateLogo", "parameters": {"url": "https://example.com/logo.png"}, "message": "Logo updated"}

Instruction: Add buttons for our Instagram (instagram.com/shop) in pink and our blog at blog.shop.com
{"action": "addButtons", "parameters": {"buttons": [{"url": "https://instagram.com/shop", "text": "Instagram", "color": "pink"}, {"url": "https://blog.shop.com", "text": "Blog"}]}, "message": "Added 2 buttons"}

Instruction: {{instruction}}
`

// Prompt returns the fixed model prompt with instruction embedded.
func Prompt(instruction string) string {
	return strings.Replace(promptTemplate, "{{instruction}}", strings.TrimSpace(instruction), 1)
}

// StripCodeFence removes a surrounding Markdown code fence, with or without a
// language tag, from a model reply.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
