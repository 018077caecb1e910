// Entry point for the docforge MCP server: document generation, processing,
// conversion, and image extraction tools over stdio or streamable HTTP.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/tomrobin33/docforge/audit"
	"github.com/tomrobin33/docforge/dbopen"
	"github.com/tomrobin33/docforge/docbuild"
	"github.com/tomrobin33/docforge/docconvert"
	"github.com/tomrobin33/docforge/docread"
	"github.com/tomrobin33/docforge/idgen"
	"github.com/tomrobin33/docforge/imgextract"
	"github.com/tomrobin33/docforge/kit"
	"github.com/tomrobin33/docforge/storage"
)

const version = "1.0.0"

// fileConfig is the optional YAML config file. Environment variables override
// its values.
type fileConfig struct {
	Port       string `yaml:"port"`
	OutputDir  string `yaml:"output_dir"`
	AuditDB    string `yaml:"audit_db"`
	BaseURL    string `yaml:"base_url"`
	UploadBase string `yaml:"upload_base"`
	PublicBase string `yaml:"public_base"`
	LogLevel   string `yaml:"log_level"`

	// AuditRetentionDays bounds how long audit rows are kept (default 90).
	AuditRetentionDays int `yaml:"audit_retention_days"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return &fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

func main() {
	fc, err := loadFileConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config file", "error", err)
		os.Exit(1)
	}

	port := env("PORT", or(fc.Port, "8086"))
	outputDir := env("OUTPUT_DIR", or(fc.OutputDir, "out"))
	auditPath := env("AUDIT_DB", or(fc.AuditDB, "db/audit.db"))
	baseURL := env("BASE_URL", or(fc.BaseURL, "http://localhost:"+port))
	uploadBase := env("UPLOAD_BASE", fc.UploadBase)
	publicBase := env("PUBLIC_BASE", fc.PublicBase)
	mcpTransport := env("MCP_TRANSPORT", "http")
	logLevel := env("LOG_LEVEL", or(fc.LogLevel, "info"))
	retentionDays := envInt("AUDIT_RETENTION_DAYS", fc.AuditRetentionDays, 90)

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	// On stdio the protocol owns stdout; logs go to stderr either way.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Audit DB.
	auditDB, err := dbopen.Open(auditPath, dbopen.WithMkdirAll(), dbopen.WithSchema(audit.Schema))
	if err != nil {
		slog.Error("audit db", "error", err)
		os.Exit(1)
	}
	defer auditDB.Close()
	recorder := audit.NewRecorder(auditDB)
	go retainAudit(ctx, auditDB, retentionDays)

	// Upload store: remote when an upload endpoint is configured, local
	// file serving otherwise.
	var store storage.Store
	var local *storage.LocalStore
	if uploadBase != "" {
		store = storage.NewHTTPStore(uploadBase, publicBase)
	} else {
		local, err = storage.NewLocalStore(outputDir, baseURL)
		if err != nil {
			slog.Error("local store", "error", err)
			os.Exit(1)
		}
		store = local
	}

	// Engines.
	engine := docbuild.New(docbuild.Config{
		OutputDir: outputDir,
		Store:     store,
		Audit:     recorder,
		Logger:    logger,
	})
	reader := docread.New(docread.Config{Logger: logger, Audit: recorder})
	converter := docconvert.New(reader, engine, docconvert.Config{
		OutputDir: outputDir,
		Logger:    logger,
		Audit:     recorder,
	})
	extractor := imgextract.New(imgextract.Config{Logger: logger, Audit: recorder})

	// MCP server.
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "docforge",
		Version: version,
	}, nil)
	engine.RegisterMCP(srv)
	reader.RegisterMCP(srv)
	converter.RegisterMCP(srv)
	extractor.RegisterMCP(srv, store)

	if mcpTransport == "stdio" {
		slog.Info("docforge starting on stdio", "version", version)
		ctx := kit.WithTransport(ctx, "mcp_stdio")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("mcp stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	// HTTP: health, generated-file serving, streamable MCP.
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	if local != nil {
		r.Handle("/files/*", local.Handler())
	}
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return srv
	}, nil)
	newReqID := idgen.Prefixed("req_", idgen.Default)
	r.Handle("/mcp", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := kit.WithTransport(req.Context(), "mcp_http")
		ctx = kit.WithRequestID(ctx, newReqID())
		if sid := req.Header.Get("Mcp-Session-Id"); sid != "" {
			ctx = kit.WithSessionID(ctx, sid)
		}
		mcpHandler.ServeHTTP(w, req.WithContext(ctx))
	}))

	httpSrv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()
		httpSrv.Shutdown(shutCtx)
	}()

	slog.Info("docforge starting", "addr", httpSrv.Addr, "version", version)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server", "error", err)
		os.Exit(1)
	}
}

// retainAudit enforces audit retention at startup and then once a day.
func retainAudit(ctx context.Context, db *sql.DB, days int) {
	cfg := audit.RetentionConfig{InvocationsDays: days, CorrectionsDays: days}
	run := func() {
		if err := audit.Cleanup(ctx, db, cfg); err != nil && ctx.Err() == nil {
			slog.Warn("audit cleanup", "error", err)
		}
	}
	run()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func envInt(key string, fileVal, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if fileVal > 0 {
		return fileVal
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
