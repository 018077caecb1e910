package docbuild

import (
	"context"
	"fmt"

	"github.com/tomrobin33/docforge/audit"
)

// Normalization rule names, as recorded in diagnostics and audit rows.
const (
	RuleFilenameAndContent = "filename_and_content" // payload carried both keys; filename adopted, content unwrapped
	RuleSoleContentKey     = "sole_content_key"     // payload was {"content": {...}} and nothing else
	RuleStripMetaKeys      = "strip_meta_keys"      // stray filename/file_name/name keys removed from a flat spec
)

// Keys that identify a wrapper or stray metadata rather than spec content.
var metaKeys = []string{"filename", "file_name", "name"}

// Keys that identify a ContentSpec-shaped mapping.
var specKeys = []string{"title", "author", "headings", "paragraphs", "tables", "images", "page_breaks"}

// maxUnwrapDepth bounds wrapper recursion. Real callers mis-nest one or two
// levels; anything deeper is a malformed payload, not a fixable one.
const maxUnwrapDepth = 4

// Normalize recovers the canonical content mapping from a possibly mis-nested
// caller payload. It resolves structural nesting only; field-level validation
// happens later, when the orchestrator decodes the mapping.
//
// Rules, in priority order (first match wins, re-applied after each unwrap):
//
//  1. mapping with both "filename" and "content": adopt the payload filename
//     (overriding the argument) and normalize the nested content.
//  2. mapping whose only key is "content": unwrap one level.
//  3. mapping with stray filename/file_name/name keys next to spec keys:
//     strip exactly those keys; flat cleanup, no recursion.
//  4. anything else is assumed to already be spec-shaped.
//
// Every applied correction is logged and, when an audit recorder is
// configured, persisted as a diagnostic record.
func (e *Engine) Normalize(ctx context.Context, rawFilename string, raw any) (string, map[string]any, error) {
	filename := rawFilename
	cur := raw

	for range maxUnwrapDepth {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", nil, &NormalizationError{
				Kind:     TypeMismatch,
				Expected: "mapping",
				Got:      typeName(cur),
			}
		}

		content, hasContent := m["content"]

		// Rule 1: wrapper carrying both the true filename and the spec.
		if fn, hasFilename := m["filename"]; hasFilename && hasContent {
			if s, ok := fn.(string); ok && s != "" {
				filename = s
			}
			e.recordCorrection(ctx, RuleFilenameAndContent, filename,
				fmt.Sprintf("adopted filename %q from payload, unwrapped content", filename))
			cur = content
			continue
		}

		// Rule 2: bare {"content": {...}} wrapper.
		if hasContent && len(m) == 1 {
			e.recordCorrection(ctx, RuleSoleContentKey, filename, "unwrapped sole content key")
			cur = content
			continue
		}

		// Rule 3: stray metadata keys polluting a flat spec.
		if hasAny(m, metaKeys) && hasAny(m, specKeys) {
			out := make(map[string]any, len(m))
			stripped := make([]string, 0, len(metaKeys))
			for k, v := range m {
				if isMetaKey(k) {
					stripped = append(stripped, k)
					continue
				}
				out[k] = v
			}
			e.recordCorrection(ctx, RuleStripMetaKeys, filename,
				fmt.Sprintf("stripped keys %v", stripped))
			return filename, out, nil
		}

		// Rule 4: already spec-shaped.
		return filename, m, nil
	}

	return "", nil, &NormalizationError{
		Kind:   UnrecognizedShape,
		Detail: fmt.Sprintf("content nested more than %d wrapper levels deep", maxUnwrapDepth),
	}
}

func (e *Engine) recordCorrection(ctx context.Context, rule, filename, detail string) {
	e.logger.Info("payload shape corrected", "rule", rule, "filename", filename, "detail", detail)
	if e.cfg.Audit != nil {
		e.cfg.Audit.RecordCorrection(ctx, audit.Correction{
			Rule:     rule,
			Filename: filename,
			Detail:   detail,
		})
	}
}

func hasAny(m map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func isMetaKey(k string) bool {
	for _, mk := range metaKeys {
		if k == mk {
			return true
		}
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []any:
		return "sequence"
	case map[string]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}
