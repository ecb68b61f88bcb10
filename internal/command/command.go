// Package command defines the structured commands an instruction is interpreted into.
package command

// Action is the wire and JSON tag of a command.
type Action string

const (
	ActionAddButton    Action = "addButton"
	ActionAddButtons   Action = "addButtons"
	ActionUpdateText   Action = "updateText"
	ActionUpdateLogo   Action = "updateLogo"
	ActionUpdateBanner Action = "updateBanner"
	ActionUnknown      Action = "unknown"
	ActionError        Action = "error"
)

// Reasons carried by Unknown and Error.
const (
	ReasonNoInstruction = "no instruction provided"
	ReasonUnrecognized  = "instruction not recognized"
	ReasonAIFailed      = "AI processing failed"
	ReasonPersistFailed = "state could not be saved"
)

// Command is the interpreted form of one instruction. The set of
// implementations is closed to this package.
type Command interface {
	Action() Action
	command()
}

// ButtonSpec describes a button to add. Empty Text or Color means the field was
// not given and the store fills in its default.
type ButtonSpec struct {
	URL   string `json:"url"`
	Text  string `json:"text,omitempty"`
	Color string `json:"color,omitempty"`
}

// AddButton appends a single button.
type AddButton struct {
	Button ButtonSpec
}

// AddButtons appends several buttons in order.
type AddButtons struct {
	Buttons []ButtonSpec
}

// UpdateText replaces the text content.
type UpdateText struct {
	Text string
}

// UpdateLogo replaces the logo URL. An empty URL keeps the current logo.
type UpdateLogo struct {
	URL string
}

// UpdateBanner replaces the banner URL. An empty URL keeps the current banner.
type UpdateBanner struct {
	URL string
}

// Unknown is an instruction that matched no intent.
type Unknown struct {
	Reason string
}

// Error is an instruction whose interpretation failed.
type Error struct {
	Reason string
}

func (AddButton) Action() Action    { return ActionAddButton }
func (AddButtons) Action() Action   { return ActionAddButtons }
func (UpdateText) Action() Action   { return ActionUpdateText }
func (UpdateLogo) Action() Action   { return ActionUpdateLogo }
func (UpdateBanner) Action() Action { return ActionUpdateBanner }
func (Unknown) Action() Action      { return ActionUnknown }
func (Error) Action() Action        { return ActionError }

func (AddButton) command()    {}
func (AddButtons) command()   {}
func (UpdateText) command()   {}
func (UpdateLogo) command()   {}
func (UpdateBanner) command() {}
func (Unknown) command()      {}
func (Error) command()        {}

// Actionable reports whether cmd mutates the webpage state.
func Actionable(cmd Command) bool {
	switch cmd.(type) {
	case AddButton, AddButtons, UpdateText, UpdateLogo, UpdateBanner:
		return true
	default:
		return false
	}
}
