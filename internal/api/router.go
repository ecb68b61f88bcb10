package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pagebot/internal/messaging"
	"github.com/starford/pagebot/internal/pageservice"
)

// Reply modes of the WhatsApp webhook.
const (
	ReplyModeTwiML = "twiml"
	ReplyModeAPI   = "api"
)

// Options configures the API router.
type Options struct {
	// AuthEnabled enforces Bearer token auth on /update and /history.
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events.
	Events http.Handler
	// ReplyMode selects how webhook replies reach the sender.
	ReplyMode string
	// Sender delivers out-of-band replies in ReplyModeAPI.
	Sender messaging.Sender
	// RateLimit limits the instruction endpoints. Zero RPS disables it.
	RateLimit RateLimit
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *pageservice.Service, opts Options) chi.Router {
	h := NewHandler(svc)
	wh := NewWebhookHandler(svc, opts.ReplyMode, opts.Sender)
	limit := RateLimitMiddleware(opts.RateLimit)
	auth := AuthMiddleware(opts.AuthEnabled, opts.Token)

	r := chi.NewRouter()

	r.Get("/state", h.GetState)

	r.With(limit).Post("/whatsapp-webhook", wh.Receive)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.With(limit).Post("/update", h.Update)
		r.Get("/history", h.History)
	})

	if opts.Events != nil {
		r.Get("/events", opts.Events.ServeHTTP)
	}

	return r
}
