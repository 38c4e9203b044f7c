package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Export formats.
const (
	FormatHTML     = "html"
	FormatEPUB     = "epub"
	FormatMarkdown = "markdown"
)

// ExportResult is a finished export ready to be written or served.
type ExportResult struct {
	Filename    string // including extension
	Format      string
	ContentType string
	Data        []byte
	// Fallback is set when a package was requested but an HTML document
	// was produced because packaging is unavailable.
	Fallback bool
}

// Exporter turns articles into downloadable documents.
type Exporter struct {
	embedder  *ImageEmbedder
	assembler *PackageAssembler
	log       zerolog.Logger
}

func NewExporter(embedder *ImageEmbedder, assembler *PackageAssembler, log zerolog.Logger) *Exporter {
	return &Exporter{embedder: embedder, assembler: assembler, log: log}
}

// ExportHTML renders a as a standalone HTML document. With inline set,
// remote images are fetched and embedded as data: URLs.
func (x *Exporter) ExportHTML(ctx context.Context, a *Article, filename string, inline bool) (*ExportResult, error) {
	name, err := ValidateFilename(filename)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return x.exportHTML(ctx, a, name, inline)
}

func (x *Exporter) exportHTML(ctx context.Context, a *Article, name string, inline bool) (*ExportResult, error) {
	body := a.Content
	if inline && x.embedder != nil {
		res, err := x.embedder.EmbedInline(ctx, body)
		if err != nil {
			return nil, fmt.Errorf("embed images: %w", err)
		}
		body = res.Body
	}
	return &ExportResult{
		Filename:    name + ".html",
		Format:      FormatHTML,
		ContentType: "text/html; charset=utf-8",
		Data:        []byte(renderArticleHTML(a, body)),
	}, nil
}

// ExportPackage renders a as an EPUB package with its images embedded. When
// no archiver is configured it falls back to the HTML export.
func (x *Exporter) ExportPackage(ctx context.Context, a *Article, filename string) (*ExportResult, error) {
	name, err := ValidateFilename(filename)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if !x.assembler.Available() {
		return x.fallback(ctx, a, name)
	}

	body := a.Content
	var images []EmbeddedImage
	if x.embedder != nil {
		res, err := x.embedder.Embed(ctx, body)
		if err != nil {
			return nil, fmt.Errorf("embed images: %w", err)
		}
		body, images = res.Body, res.Images
	}

	xhtml, err := NormalizeXHTML(body)
	if err != nil {
		return nil, fmt.Errorf("normalize xhtml: %w", err)
	}

	var buf bytes.Buffer
	err = x.assembler.Assemble(&buf, packageMetaFor(a), xhtml, images)
	if errors.Is(err, ErrNoArchiver) {
		return x.fallback(ctx, a, name)
	}
	if err != nil {
		return nil, fmt.Errorf("assemble package: %w", err)
	}

	x.log.Info().Str("file", name+".epub").Int("images", len(images)).
		Str("size", humanSize(int64(buf.Len()))).Msg("built package")
	return &ExportResult{
		Filename:    name + ".epub",
		Format:      FormatEPUB,
		ContentType: epubMIMEType,
		Data:        buf.Bytes(),
	}, nil
}

// PackageFormat reports what ExportPackage produces: FormatEPUB, or
// FormatHTML when packaging is unavailable.
func (x *Exporter) PackageFormat() string {
	if x == nil || !x.assembler.Available() {
		return FormatHTML
	}
	return FormatEPUB
}

// extensionFor returns the file extension used for format.
func extensionFor(format string) string {
	if format == FormatMarkdown {
		return "md"
	}
	return format
}

func (x *Exporter) fallback(ctx context.Context, a *Article, name string) (*ExportResult, error) {
	x.log.Warn().Msg("package compression unavailable, exporting HTML instead")
	res, err := x.exportHTML(ctx, a, name, false)
	if err != nil {
		return nil, err
	}
	res.Fallback = true
	return res, nil
}

// ExportMarkdown converts the article body to Markdown with a title header.
func (x *Exporter) ExportMarkdown(a *Article, filename string) (*ExportResult, error) {
	name, err := ValidateFilename(filename)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	md, err := articleToMarkdown(a)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    name + ".md",
		Format:      FormatMarkdown,
		ContentType: "text/markdown; charset=utf-8",
		Data:        []byte(md),
	}, nil
}

// exportGuard allows at most one export in flight per session.
type exportGuard struct {
	mu     sync.Mutex
	active map[string]bool
}

func newExportGuard() *exportGuard {
	return &exportGuard{active: make(map[string]bool)}
}

// Acquire marks an export for id as running. It fails with
// ErrExportInFlight while another export for id holds the guard.
func (g *exportGuard) Acquire(id string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[id] {
		return nil, ErrExportInFlight
	}
	g.active[id] = true
	return func() {
		g.mu.Lock()
		delete(g.active, id)
		g.mu.Unlock()
	}, nil
}
