package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/pagebot/internal/history"
	"github.com/starford/pagebot/internal/messaging"
	"github.com/starford/pagebot/internal/pageservice"
)

const sendTimeout = 10 * time.Second

// WebhookHandler receives Twilio WhatsApp messages.
type WebhookHandler struct {
	svc    *pageservice.Service
	mode   string
	sender messaging.Sender
}

// NewWebhookHandler creates a webhook handler. ReplyModeAPI without a sender
// falls back to inline TwiML replies.
func NewWebhookHandler(svc *pageservice.Service, mode string, sender messaging.Sender) *WebhookHandler {
	if mode != ReplyModeAPI || sender == nil {
		mode = ReplyModeTwiML
	}
	return &WebhookHandler{svc: svc, mode: mode, sender: sender}
}

// Receive handles POST /api/whatsapp-webhook. Twilio always gets a 200 TwiML
// response, even when the instruction fails.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		slog.Warn("webhook: bad form", slog.String("error", err.Error()))
	}
	body := r.PostForm.Get("Body")
	from := r.PostForm.Get("From")

	slog.Info("webhook: message received", slog.String("from", from), slog.String("body", body))

	out, err := h.svc.Process(r.Context(), body, history.SourceWhatsApp)
	if err != nil {
		slog.Error("webhook: process failed", slog.String("from", from), slog.String("error", err.Error()))
	}
	reply := out.Reply()

	if h.mode == ReplyModeAPI && from != "" {
		go h.send(from, reply)
		writeTwiML(w, "")
		return
	}
	writeTwiML(w, reply)
}

func (h *WebhookHandler) send(to, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := h.sender.Send(ctx, to, body); err != nil {
		slog.Error("webhook: reply send failed", slog.String("to", to), slog.String("error", err.Error()))
	}
}

func writeTwiML(w http.ResponseWriter, message string) {
	out, err := messaging.TwiML(message)
	if err != nil {
		slog.Error("twiml encode failed", slog.String("error", err.Error()))
		out, _ = messaging.TwiML("")
	}
	w.Header().Set("Content-Type", messaging.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
