// Package docconvert implements cross-format conversions: document to PDF,
// Word tables to Excel workbooks, Excel workbooks to Word documents.
//
// Reading goes through docread, Word output through the docbuild engine, so
// conversions inherit their format handling and error semantics.
package docconvert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/tomrobin33/docforge/audit"
	"github.com/tomrobin33/docforge/docbuild"
	"github.com/tomrobin33/docforge/docread"
)

// Converter performs cross-format conversions.
type Converter struct {
	reader *docread.Reader
	engine *docbuild.Engine
	cfg    Config
	logger *slog.Logger
}

// Config configures the converter.
type Config struct {
	// OutputDir receives converted files (default: "out").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Logger for diagnostics.
	Logger *slog.Logger `json:"-" yaml:"-"`

	// Audit records tool invocations when set.
	Audit *audit.Recorder `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates a Converter on top of an existing reader and build engine.
func New(reader *docread.Reader, engine *docbuild.Engine, cfg Config) *Converter {
	cfg.defaults()
	return &Converter{
		reader: reader,
		engine: engine,
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// ConvertResult reports one completed conversion.
type ConvertResult struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int    `json:"size"`

	// Data holds the converted bytes. Not part of the JSON payload.
	Data []byte `json:"-"`
}

// ToPDF converts a readable document (docx, md, txt, html) into a PDF.
// Headings keep their hierarchy via font sizing; tables render as
// pipe-delimited rows. An empty output name derives one from the source.
func (c *Converter) ToPDF(ctx context.Context, source, output string) (*ConvertResult, error) {
	doc, err := c.reader.Process(ctx, source)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Helvetica", "B", 18)
		pdf.MultiCell(0, 8, doc.Title, "", "L", false)
		pdf.Ln(4)
	}

	for _, b := range doc.Blocks {
		switch b.Type {
		case "heading":
			if b.Text == doc.Title {
				continue
			}
			renderPDFHeading(pdf, b.Text, b.Level)
		case "table":
			pdf.SetFont("Courier", "", 9)
			pdf.SetFillColor(245, 245, 245)
			for _, line := range strings.Split(b.Text, "\n") {
				pdf.MultiCell(0, 4.5, line, "", "L", true)
			}
			pdf.Ln(3)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, b.Text, "", "L", false)
			pdf.Ln(3)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	return c.save(outputName(output, source, ".pdf"), buf.Bytes())
}

func renderPDFHeading(pdf *gofpdf.Fpdf, text string, level int) {
	sizes := map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}
	size, ok := sizes[level]
	if !ok {
		size = 10
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, text, "", "L", false)
	pdf.Ln(2)
}

// WordToExcel extracts the tables of a Word document into an Excel workbook,
// one sheet per table. A document without tables is an error.
func (c *Converter) WordToExcel(ctx context.Context, source, output string) (*ConvertResult, error) {
	doc, err := c.reader.Process(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("no tables found in %s", source)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, t := range doc.Tables {
		sheet := t.Name
		if sheet == "" {
			sheet = fmt.Sprintf("Table%d", i+1)
		}
		if i == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, fmt.Errorf("sheet %s: %w", sheet, err)
			}
		}
		for rowIdx, row := range t.Rows {
			cell, err := excelize.CoordinatesToCellName(1, rowIdx+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return nil, fmt.Errorf("row %d: %w", rowIdx+1, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return c.save(outputName(output, source, ".xlsx"), buf.Bytes())
}

// ExcelToWord renders an Excel workbook as a Word document: one heading per
// sheet followed by its table.
func (c *Converter) ExcelToWord(ctx context.Context, source, output string) (*ConvertResult, error) {
	doc, err := c.reader.Process(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("no data found in %s", source)
	}

	spec := &docbuild.ContentSpec{Title: doc.Title}
	for _, t := range doc.Tables {
		if t.Name != "" {
			spec.Headings = append(spec.Headings, docbuild.Heading{Text: t.Name, Level: 1})
		}
		spec.Tables = append(spec.Tables, docbuild.TableSpec{Data: t.Rows})
	}

	filename := outputName(output, source, ".docx")
	res, err := c.engine.RunSpec(ctx, filename, spec, docbuild.RunOptions{Save: true})
	if err != nil {
		return nil, err
	}
	if res.Stats.ErrorsCount > 0 {
		c.logger.Warn("conversion completed with element errors",
			"source", source, "errors", res.Stats.ErrorsCount)
	}

	return c.save(res.Filename, res.Doc)
}

// save writes data into the output directory and returns the result record.
func (c *Converter) save(filename string, data []byte) (*ConvertResult, error) {
	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	dest := filepath.Join(c.cfg.OutputDir, filepath.Base(filename))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, fmt.Errorf("save %s: %w", dest, err)
	}
	c.logger.Info("conversion saved", "path", dest, "bytes", len(data))
	return &ConvertResult{
		Filename: filepath.Base(filename),
		Path:     dest,
		Size:     len(data),
		Data:     data,
	}, nil
}

// outputName picks the caller's output name when given, forcing the right
// extension, and otherwise derives one from the source.
func outputName(output, source, ext string) string {
	if output == "" {
		return replaceExt(source, ext)
	}
	return replaceExt(output, ext)
}

// replaceExt swaps the extension of the source's base name.
func replaceExt(source, ext string) string {
	base := source
	if i := strings.IndexAny(base, "?#"); i >= 0 && strings.Contains(base, "://") {
		base = base[:i]
	}
	base = filepath.Base(base)
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base + ext
}
