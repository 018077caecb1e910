package docbuild

import (
	"fmt"
	"strconv"
)

// Top-level field accessors. These run before any append: a wrong-typed
// top-level field is fatal to the whole run (SpecError), while individual
// elements inside a well-typed sequence fail per-element during iteration.

func optString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &SpecError{Field: key, Detail: "must be a string, got " + typeName(v)}
	}
	return s, nil
}

func optSeq(m map[string]any, key string) ([]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	seq, ok := v.([]any)
	if !ok {
		return nil, &SpecError{Field: key, Detail: "must be a sequence, got " + typeName(v)}
	}
	return seq, nil
}

// pageBreakCount accepts either a sequence (count of entries, the shape the
// original callers send) or a bare number.
func pageBreakCount(m map[string]any) (int, error) {
	v, ok := m["page_breaks"]
	if !ok || v == nil {
		return 0, nil
	}
	switch t := v.(type) {
	case []any:
		return len(t), nil
	case float64:
		if t < 0 {
			return 0, &SpecError{Field: "page_breaks", Detail: "must not be negative"}
		}
		return int(t), nil
	default:
		return 0, &SpecError{Field: "page_breaks", Detail: "must be a sequence or a number, got " + typeName(v)}
	}
}

// Element decoders. Failures here are per-element, recorded and skipped.

func decodeHeading(v any) (Heading, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Heading{}, fmt.Errorf("heading must be a mapping, got %s", typeName(v))
	}
	text, ok := m["text"].(string)
	if !ok {
		return Heading{}, fmt.Errorf("heading missing text")
	}
	level := 1
	if lv, ok := m["level"].(float64); ok {
		level = int(lv)
	}
	return Heading{Text: text, Level: level}, nil
}

func decodeParagraph(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("paragraph must be a string, got %s", typeName(v))
	}
	return s, nil
}

func decodeTable(v any) (TableSpec, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return TableSpec{}, fmt.Errorf("table must be a mapping, got %s", typeName(v))
	}
	rawData, ok := m["data"].([]any)
	if !ok {
		return TableSpec{}, fmt.Errorf("table missing data sequence")
	}
	if len(rawData) == 0 {
		return TableSpec{}, fmt.Errorf("table data is empty")
	}
	data := make([][]string, 0, len(rawData))
	for i, rawRow := range rawData {
		row, ok := rawRow.([]any)
		if !ok {
			return TableSpec{}, fmt.Errorf("table row %d must be a sequence, got %s", i, typeName(rawRow))
		}
		cells := make([]string, 0, len(row))
		for _, c := range row {
			cells = append(cells, cellString(c))
		}
		data = append(data, cells)
	}
	return TableSpec{Data: data}, nil
}

func decodeImage(v any) (ImageRef, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return ImageRef{}, fmt.Errorf("image must be a mapping, got %s", typeName(v))
	}
	// "source" is canonical; "path" is the legacy caller field.
	source, _ := m["source"].(string)
	if source == "" {
		source, _ = m["path"].(string)
	}
	if source == "" {
		return ImageRef{}, fmt.Errorf("image missing source")
	}
	ref := ImageRef{Source: source}
	if c, ok := m["caption"].(string); ok {
		ref.Caption = c
	}
	if w, ok := m["width"].(float64); ok && w > 0 {
		ref.WidthInches = w
	}
	return ref, nil
}

// cellString renders a scalar cell value the way callers expect it printed.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
