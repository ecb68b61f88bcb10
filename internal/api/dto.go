package api

import (
	"github.com/starford/pagebot/internal/command"
	"github.com/starford/pagebot/internal/history"
	"github.com/starford/pagebot/internal/state"
)

// UpdateRequest is the JSON body of POST /api/update.
type UpdateRequest struct {
	Instruction string `json:"instruction" example:"Add a link to google.com in red color"`
}

// UpdateResponse reports the outcome of one instruction.
type UpdateResponse struct {
	Success bool           `json:"success"`
	Action  command.Action `json:"action" example:"addButton"`
	Message string         `json:"message" example:"Added a red button linking to google.com"`
	State   state.Document `json:"state"`
}

// HistoryResponse wraps the audit log.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}
