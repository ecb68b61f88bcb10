package internal

import (
	"io"
	"os"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	version string
	logOut  io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithLogOutput redirects the primary JSON log stream. The MCP stdio
// transport owns stdout, so RunMCP logs to stderr unless told otherwise.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

func newApplication(defaultLogOut io.Writer, opts ...Option) *application {
	app := &application{version: "dev", logOut: defaultLogOut}
	for _, opt := range opts {
		opt(app)
	}
	if app.logOut == nil {
		app.logOut = os.Stdout
	}
	return app
}
