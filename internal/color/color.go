// Package color maps the small vocabulary of button color names to hex codes.
package color

import (
	"regexp"
	"strings"
)

// Default is returned for any name outside the vocabulary.
const Default = "#3498db"

var names = []string{"red", "blue", "green", "yellow", "purple", "black", "orange", "pink"}

var hexByName = map[string]string{
	"red":    "#e74c3c",
	"blue":   "#3498db",
	"green":  "#2ecc71",
	"yellow": "#f1c40f",
	"purple": "#9b59b6",
	"black":  "#000000",
	"orange": "#e67e22",
	"pink":   "#e84393",
}

var hexRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Resolve returns the hex code for name, or Default when name is not recognized.
func Resolve(name string) string {
	if hex, ok := hexByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return hex
	}
	return Default
}

// Names returns the recognized color names in a fixed order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Name returns the vocabulary name for hex, or hex itself when it has none.
func Name(hex string) string {
	h := strings.ToLower(strings.TrimSpace(hex))
	for _, n := range names {
		if hexByName[n] == h {
			return n
		}
	}
	return hex
}

// Normalize accepts either a literal hex code or a color name.
func Normalize(value string) string {
	v := strings.TrimSpace(value)
	if hexRe.MatchString(v) {
		return strings.ToLower(v)
	}
	return Resolve(v)
}
