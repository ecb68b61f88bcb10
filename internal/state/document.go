// Package state owns the webpage state document and serializes every mutation of it.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/starford/pagebot/internal/color"
)

// Defaults of a fresh document.
const (
	DefaultButtonText = "New Button"
	DefaultLogoURL    = "https://placehold.co/200x80?text=Your+Logo"
	DefaultBannerURL  = "https://placehold.co/800x200?text=Your+Banner"
	DefaultText       = "This is a sample text box. Content can be added or modified here."
)

// Button is one link rendered on the page.
type Button struct {
	URL   string `json:"url"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Document is the full webpage state served to the rendering front end.
type Document struct {
	Buttons     []Button `json:"buttons"`
	TextContent string   `json:"textContent"`
	LogoURL     string   `json:"logoUrl"`
	BannerURL   string   `json:"bannerUrl"`
}

// Default returns the seed document used when nothing has been persisted.
func Default() Document {
	return Document{
		Buttons: []Button{
			{URL: "#", Text: "Sample Button", Color: color.Default},
		},
		TextContent: WrapParagraph(DefaultText),
		LogoURL:     DefaultLogoURL,
		BannerURL:   DefaultBannerURL,
	}
}

// WrapParagraph wraps text in a paragraph element.
func WrapParagraph(text string) string {
	return "<p>" + text + "</p>"
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := d
	out.Buttons = make([]Button, len(d.Buttons))
	copy(out.Buttons, d.Buttons)
	return out
}

// Checksum returns the hex SHA-256 of the document's JSON encoding.
func (d Document) Checksum() string {
	data, _ := json.Marshal(d)
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// normalize fills absent fields so the document always re-serializes whole.
func (d *Document) normalize() {
	if d.Buttons == nil {
		d.Buttons = []Button{}
	}
	if d.TextContent == "" {
		d.TextContent = WrapParagraph(DefaultText)
	}
	if d.LogoURL == "" {
		d.LogoURL = DefaultLogoURL
	}
	if d.BannerURL == "" {
		d.BannerURL = DefaultBannerURL
	}
}
