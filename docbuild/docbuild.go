// Package docbuild is the batch in-memory document assembly engine.
//
// A caller hands it a structured content description (title, headings,
// paragraphs, tables, images) and gets back a finished Word document. All
// edits are applied to a single in-memory document object; serialization
// happens exactly once, at the end of the run. N logical edits cost one
// write instead of N.
//
// The engine tolerates the payload shapes that model-driven callers actually
// produce: content nested under stray "content"/"filename" wrappers is
// recovered by the normalizer before the batch runs, and each applied
// correction is logged and audited so operators can see which upstream
// callers misbehave.
//
// Usage:
//
//	eng := docbuild.New(docbuild.Config{})
//	filename, raw, err := eng.Normalize(ctx, "report.docx", payload)
//	res, err := eng.Run(ctx, filename, raw, docbuild.RunOptions{Save: true})
package docbuild

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomrobin33/docforge/audit"
	"github.com/tomrobin33/docforge/storage"
)

// Engine builds documents from content specs. Safe for concurrent use: each
// run allocates its own builder; no state is shared between invocations.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// Config configures the engine.
type Config struct {
	// OutputDir receives locally saved documents (default: "out").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// MaxImageBytes caps individual image downloads (default: 20 MB).
	MaxImageBytes int64 `json:"max_image_bytes" yaml:"max_image_bytes"`

	// FetchTimeout bounds a single remote image fetch (default: 30 s).
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`

	// HTTPClient performs remote image fetches.
	HTTPClient *http.Client `json:"-" yaml:"-"`

	// Store receives finalized bytes on upload paths. Optional; tools that
	// upload fail with a configuration error when unset.
	Store storage.Store `json:"-" yaml:"-"`

	// Audit receives normalization-correction and tool-invocation records.
	// Optional.
	Audit *audit.Recorder `json:"-" yaml:"-"`

	// Logger for diagnostics.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = 20 * 1024 * 1024
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.FetchTimeout}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates an Engine with the given configuration.
func New(cfg Config) *Engine {
	cfg.defaults()
	return &Engine{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// EnsureDocxExtension appends ".docx" when the filename has no such suffix.
// Matching is case-insensitive; an existing ".DOCX" is left alone.
func EnsureDocxExtension(filename string) string {
	if strings.EqualFold(filepath.Ext(filename), ".docx") {
		return filename
	}
	return filename + ".docx"
}
