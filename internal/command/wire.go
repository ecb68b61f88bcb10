package command

import (
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/pagebot/internal/apperr"
	"github.com/starford/pagebot/internal/color"
)

// wireCommand is the JSON object a remote model is asked to emit.
type wireCommand struct {
	Action     Action         `json:"action"`
	Parameters wireParameters `json:"parameters"`
	Message    string         `json:"message,omitempty"`
}

type wireParameters struct {
	URL     string       `json:"url,omitempty"`
	Text    string       `json:"text,omitempty"`
	Color   string       `json:"color,omitempty"`
	Buttons []wireButton `json:"buttons,omitempty"`
}

type wireButton struct {
	URL   string `json:"url"`
	Text  string `json:"text,omitempty"`
	Color string `json:"color,omitempty"`
}

func (b wireButton) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.URL, validation.Required),
	)
}

func (w *wireCommand) Validate() error {
	if err := validation.ValidateStruct(w,
		validation.Field(&w.Action, validation.Required, validation.In(
			ActionAddButton, ActionAddButtons, ActionUpdateText,
			ActionUpdateLogo, ActionUpdateBanner, ActionUnknown,
		)),
	); err != nil {
		return err
	}
	p := &w.Parameters
	switch w.Action {
	case ActionAddButton:
		return validation.ValidateStruct(p, validation.Field(&p.URL, validation.Required))
	case ActionAddButtons:
		return validation.ValidateStruct(p, validation.Field(&p.Buttons, validation.Required))
	case ActionUpdateText:
		return validation.ValidateStruct(p, validation.Field(&p.Text, validation.Required))
	}
	return nil
}

// Decode parses the wire form of a command. Errors wrap apperr.ErrInvalidCommand.
func Decode(raw []byte) (Command, error) {
	var w wireCommand
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidCommand, err)
	}
	w.Action = Action(strings.TrimSpace(string(w.Action)))
	w.Parameters.URL = strings.TrimSpace(w.Parameters.URL)
	for i := range w.Parameters.Buttons {
		w.Parameters.Buttons[i].URL = strings.TrimSpace(w.Parameters.Buttons[i].URL)
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidCommand, err)
	}

	p := w.Parameters
	switch w.Action {
	case ActionAddButton:
		return AddButton{Button: ButtonSpec{URL: p.URL, Text: p.Text, Color: normalizeColor(p.Color)}}, nil
	case ActionAddButtons:
		specs := make([]ButtonSpec, len(p.Buttons))
		for i, b := range p.Buttons {
			specs[i] = ButtonSpec{URL: b.URL, Text: b.Text, Color: normalizeColor(b.Color)}
		}
		return AddButtons{Buttons: specs}, nil
	case ActionUpdateText:
		return UpdateText{Text: p.Text}, nil
	case ActionUpdateLogo:
		return UpdateLogo{URL: p.URL}, nil
	case ActionUpdateBanner:
		return UpdateBanner{URL: p.URL}, nil
	default:
		reason := strings.TrimSpace(w.Message)
		if reason == "" {
			reason = ReasonUnrecognized
		}
		return Unknown{Reason: reason}, nil
	}
}

func normalizeColor(c string) string {
	if strings.TrimSpace(c) == "" {
		return ""
	}
	return color.Normalize(c)
}
