package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/starford/pagebot/internal/apperr"
	"github.com/starford/pagebot/internal/color"
	"github.com/starford/pagebot/internal/command"
	"github.com/starford/pagebot/internal/storage"
)

// Result describes the outcome of applying one command.
type Result struct {
	Action command.Action `json:"action"`
	// Applied is true when the command was an actionable variant.
	Applied bool `json:"applied"`
	// Changed is true when the document differs from before.
	Changed bool `json:"changed"`
	// Buttons holds the buttons appended by this command.
	Buttons []Button `json:"buttons,omitempty"`
}

// Store is the single owner of the webpage document. Mutations are serialized;
// reads never wait on them.
type Store struct {
	backend storage.Provider
	logger  *slog.Logger

	mu      sync.Mutex // serializes Apply and Reload, including the backend write
	current atomic.Pointer[Document]

	// notifyMu is taken before mu is released, so listeners see documents
	// in commit order.
	notifyMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []func(Document)
}

// New creates a store holding the default document. A nil backend disables
// persistence.
func New(backend storage.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{backend: backend, logger: logger}
	doc := Default()
	s.current.Store(&doc)
	return s
}

// Load replaces the current document with the persisted one. A backend with
// nothing saved yet leaves the default document in place.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.logger.Info("state: no persisted document, using default", slog.String("backend", s.backend.Name()))
			return nil
		}
		return err
	}
	s.current.Store(&doc)
	s.logger.Info("state: loaded", slog.String("backend", s.backend.Name()), slog.Int("buttons", len(doc.Buttons)))
	return nil
}

// Snapshot returns a copy of the last committed document.
func (s *Store) Snapshot() Document {
	return s.current.Load().Clone()
}

// OnChange registers fn to be called with the new document after every
// committed change. Calls happen one at a time in commit order; fn must not
// call Apply or Reload.
func (s *Store) OnChange(fn func(Document)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Apply mutates the document according to cmd and persists the result before
// making it visible. Unknown and Error commands leave the document untouched.
func (s *Store) Apply(ctx context.Context, cmd command.Command) (Result, error) {
	res := Result{Action: cmd.Action()}
	if !command.Actionable(cmd) {
		return res, nil
	}

	s.mu.Lock()
	prev := s.current.Load()
	next := prev.Clone()

	switch c := cmd.(type) {
	case command.AddButton:
		b := NewButton(c.Button)
		next.Buttons = append(next.Buttons, b)
		res.Buttons = []Button{b}
	case command.AddButtons:
		for _, spec := range c.Buttons {
			b := NewButton(spec)
			next.Buttons = append(next.Buttons, b)
			res.Buttons = append(res.Buttons, b)
		}
	case command.UpdateText:
		next.TextContent = WrapParagraph(c.Text)
	case command.UpdateLogo:
		if c.URL != "" {
			next.LogoURL = c.URL
		}
	case command.UpdateBanner:
		if c.URL != "" {
			next.BannerURL = c.URL
		}
	default:
		s.mu.Unlock()
		return res, fmt.Errorf("state: unhandled command %T", cmd)
	}
	res.Applied = true
	res.Changed = !equal(*prev, next)

	if !res.Changed {
		s.mu.Unlock()
		return res, nil
	}
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		return Result{Action: cmd.Action()}, err
	}
	s.current.Store(&next)
	s.commit(next)
	return res, nil
}

// Reload re-reads the backend and adopts its document when it differs from the
// current one. It reports whether the document changed.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	if s.backend == nil {
		return false, nil
	}
	s.mu.Lock()
	doc, err := s.read(ctx)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if doc.Checksum() == s.current.Load().Checksum() {
		s.mu.Unlock()
		return false, nil
	}
	s.current.Store(&doc)
	s.logger.Info("state: reloaded from backend", slog.String("backend", s.backend.Name()))
	s.commit(doc)
	return true, nil
}

func (s *Store) read(ctx context.Context) (Document, error) {
	data, err := s.backend.Load(ctx)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("state: decode %s: %w", s.backend.Name(), err)
	}
	doc.normalize()
	return doc, nil
}

func (s *Store) persist(ctx context.Context, doc Document) error {
	if s.backend == nil {
		return nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("state: persist: %w", err)
	}
	return nil
}

// commit hands doc to the listeners and releases mu. Listeners run outside
// mu, so they may read Snapshot, but they must not call Apply or Reload.
func (s *Store) commit(doc Document) {
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	s.notify(doc)
}

func (s *Store) notify(doc Document) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, fn := range s.listeners {
		fn(doc.Clone())
	}
}

// NewButton builds a Button from spec, filling the default text and color.
func NewButton(spec command.ButtonSpec) Button {
	b := Button{URL: spec.URL, Text: spec.Text, Color: spec.Color}
	if b.Text == "" {
		b.Text = DefaultButtonText
	}
	if b.Color == "" {
		b.Color = color.Resolve("")
	}
	return b
}

func equal(a, b Document) bool {
	if a.TextContent != b.TextContent || a.LogoURL != b.LogoURL || a.BannerURL != b.BannerURL {
		return false
	}
	if len(a.Buttons) != len(b.Buttons) {
		return false
	}
	for i := range a.Buttons {
		if a.Buttons[i] != b.Buttons[i] {
			return false
		}
	}
	return true
}
