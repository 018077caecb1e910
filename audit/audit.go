// Package audit records tool invocations and payload-normalization
// corrections in an SQLite store.
//
// Normalization corrections are the operator-facing trail for diagnosing
// misbehaving upstream callers: every time the schema normalizer has to
// unwrap or strip a mis-nested payload, a row lands here saying which rule
// fired and what filename/shape came out.
//
// Recording is best-effort: a failing audit store logs via slog and never
// blocks or fails the request being audited.
package audit

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/tomrobin33/docforge/dbopen"
	"github.com/tomrobin33/docforge/idgen"
)

// Schema holds the audit tables. Pass to dbopen.WithSchema at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS tool_invocations (
	invocation_id TEXT PRIMARY KEY,
	tool_name     TEXT NOT NULL,
	transport     TEXT NOT NULL,
	filename      TEXT,
	success       INTEGER NOT NULL,
	detail        TEXT,
	duration_ms   INTEGER NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tool_invocations_created ON tool_invocations(created_at);

CREATE TABLE IF NOT EXISTS normalization_corrections (
	correction_id TEXT PRIMARY KEY,
	rule          TEXT NOT NULL,
	filename      TEXT,
	detail        TEXT,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_normalization_corrections_created ON normalization_corrections(created_at);
`

// Invocation is one tool call.
type Invocation struct {
	ToolName  string
	Transport string
	Filename  string
	Success   bool
	Detail    string
	Duration  time.Duration
}

// Correction is one recognized payload-shape fix applied by the normalizer.
type Correction struct {
	Rule     string // "filename_and_content", "sole_content_key", "strip_meta_keys"
	Filename string
	Detail   string
}

// Recorder writes audit rows.
type Recorder struct {
	db    *sql.DB
	newID idgen.Generator
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithIDGenerator sets a custom ID generator for audit rows.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(r *Recorder) { r.newID = gen }
}

// NewRecorder creates a Recorder backed by the given database.
// The Schema must already be applied.
func NewRecorder(db *sql.DB, opts ...Option) *Recorder {
	r := &Recorder{
		db:    db,
		newID: idgen.Prefixed("aud_", idgen.Default),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RecordInvocation records a completed tool call. Writes retry on
// SQLITE_BUSY so a concurrent cleanup never drops an audit row.
func (r *Recorder) RecordInvocation(ctx context.Context, inv Invocation) {
	_, err := dbopen.Exec(ctx, r.db, `
		INSERT INTO tool_invocations (
			invocation_id, tool_name, transport, filename, success, detail, duration_ms, created_at
		) VALUES (?,?,?,?,?,?,?,?)`,
		r.newID(), inv.ToolName, inv.Transport, inv.Filename, inv.Success, inv.Detail,
		inv.Duration.Milliseconds(), time.Now().Unix())
	if err != nil {
		slog.Error("audit invocation record failed", "error", err, "tool", inv.ToolName)
	}
}

// RecordCorrection records a normalization correction.
func (r *Recorder) RecordCorrection(ctx context.Context, c Correction) {
	_, err := dbopen.Exec(ctx, r.db, `
		INSERT INTO normalization_corrections (
			correction_id, rule, filename, detail, created_at
		) VALUES (?,?,?,?,?)`,
		r.newID(), c.Rule, c.Filename, c.Detail, time.Now().Unix())
	if err != nil {
		slog.Error("audit correction record failed", "error", err, "rule", c.Rule)
	}
}

// RetentionConfig specifies per-table retention in days. Zero means no cleanup.
type RetentionConfig struct {
	InvocationsDays int
	CorrectionsDays int
	RunVacuumAfter  bool
}

// Cleanup deletes records exceeding the retention thresholds. The deletes
// run in one transaction with busy retry.
func Cleanup(ctx context.Context, db *sql.DB, cfg RetentionConfig) error {
	now := time.Now().Unix()

	type target struct {
		table string
		days  int
	}
	targets := []target{
		{"tool_invocations", cfg.InvocationsDays},
		{"normalization_corrections", cfg.CorrectionsDays},
	}

	err := dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		for _, t := range targets {
			if t.days <= 0 {
				continue
			}
			cutoff := now - int64(t.days*86400)
			// Table names come from the fixed list above, never from input.
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.table+" WHERE created_at < ?", cutoff); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if cfg.RunVacuumAfter {
		// VACUUM cannot run inside a transaction.
		if _, err := dbopen.Exec(ctx, db, "VACUUM"); err != nil {
			return err
		}
	}
	return nil
}
