package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/pagebot/internal/apperr"
	"github.com/starford/pagebot/internal/history"
	"github.com/starford/pagebot/internal/pageservice"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *pageservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *pageservice.Service) *Handler {
	return &Handler{svc: svc}
}

// GetState handles GET /api/state.
//
//	@Summary		Current webpage document
//	@Tags			state
//	@Produce		json
//	@Success		200	{object}	state.Document
//	@Router			/state [get]
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	doc := h.svc.State()
	etag := `"` + doc.Checksum() + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Update handles POST /api/update.
//
//	@Summary		Apply a natural-language instruction
//	@Tags			state
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			body	body		UpdateRequest	true	"Instruction"
//	@Success		200		{object}	UpdateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		429		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/update [post]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	instruction, err := readInstruction(w, r)
	if err != nil {
		if errors.Is(err, apperr.ErrNoInstruction) {
			writeJSON(w, http.StatusBadRequest, errorBody("No instruction provided"))
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		}
		return
	}

	out, err := h.svc.Process(r.Context(), instruction, history.SourceAPI)
	if err != nil {
		slog.Error("update failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, UpdateResponse{
		Success: out.Success(),
		Action:  out.Command.Action(),
		Message: out.Message,
		State:   out.State,
	})
}

// History handles GET /api/history.
//
//	@Summary		Recently processed instructions
//	@Tags			history
//	@Produce		json
//	@Param			limit	query		int	false	"Max entries"
//	@Success		200		{object}	HistoryResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.History(r.Context(), limit)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("history disabled"))
		} else {
			slog.Error("history failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

// readInstruction accepts a JSON body or a urlencoded form. A missing or
// blank instruction yields apperr.ErrNoInstruction.
func readInstruction(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var instruction string
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		var req UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		instruction = req.Instruction
	} else {
		if err := r.ParseForm(); err != nil {
			return "", err
		}
		instruction = r.PostForm.Get("instruction")
	}
	if strings.TrimSpace(instruction) == "" {
		return "", apperr.ErrNoInstruction
	}
	return instruction, nil
}
