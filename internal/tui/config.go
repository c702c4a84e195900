package tui

import (
	"context"
	"time"

	"github.com/Veraticus/recon/internal/model"
	"github.com/Veraticus/recon/internal/tui/themes"
)

// ExportFunc writes the results of a completed session and returns a summary for
// display.
type ExportFunc func(ctx context.Context, s model.Session) (string, error)

// Config holds TUI configuration.
type Config struct {
	Theme      themes.Theme
	Export     ExportFunc
	Bank       *model.FileCandidate
	Invoices   *model.FileCandidate
	BackendURL string
	Timeout    time.Duration
	Width      int
	Height     int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:  themes.Default,
		Width:  80,
		Height: 24,
	}
}

// WithTheme sets the color theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithFiles sets the bank and invoice files offered for upload.
func WithFiles(bank, invoices *model.FileCandidate) Option {
	return func(c *Config) {
		c.Bank = bank
		c.Invoices = invoices
	}
}

// WithExporter sets the function run by the export key.
func WithExporter(fn ExportFunc) Option {
	return func(c *Config) {
		c.Export = fn
	}
}

// WithBackend sets the connection settings shown in the progress panel.
func WithBackend(url string, timeout time.Duration) Option {
	return func(c *Config) {
		c.BackendURL = url
		c.Timeout = timeout
	}
}
