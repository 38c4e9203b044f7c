package main

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"codeberg.org/readeck/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// defaultCharThreshold is the minimum amount of readable text, in
// characters, for a page to count as having an article.
const defaultCharThreshold = 500

// Extractor finds the main readable content of a page.
type Extractor interface {
	Extract(ctx context.Context, page []byte, pageURL *url.URL) (*Article, error)
}

var (
	_ Extractor = (*ReadabilityExtractor)(nil)
	_ Extractor = (*TrafilaturaExtractor)(nil)
)

// ReadabilityExtractor wraps go-readability.
type ReadabilityExtractor struct {
	CharThreshold int
}

func (e *ReadabilityExtractor) Extract(ctx context.Context, page []byte, pageURL *url.URL) (*Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(page)) == 0 {
		return nil, ErrNoArticle
	}
	parsed, err := readability.FromReader(bytes.NewReader(page), pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: readability: %v", ErrNoArticle, err)
	}
	if strings.TrimSpace(parsed.Content) == "" || utf8.RuneCountInString(strings.TrimSpace(parsed.TextContent)) < e.CharThreshold {
		return nil, ErrNoArticle
	}
	return &Article{
		Title:         strings.TrimSpace(parsed.Title),
		Byline:        strings.TrimSpace(parsed.Byline),
		Content:       parsed.Content,
		TextContent:   parsed.TextContent,
		Length:        parsed.Length,
		Excerpt:       parsed.Excerpt,
		SiteName:      parsed.SiteName,
		Language:      parsed.Language,
		PublishedTime: parsed.PublishedTime,
		SourceURL:     pageURL.String(),
		SourceFavicon: parsed.Favicon,
	}, nil
}

// TrafilaturaExtractor wraps go-trafilatura with its readability fallback
// enabled.
type TrafilaturaExtractor struct {
	CharThreshold int
}

func (e *TrafilaturaExtractor) Extract(ctx context.Context, page []byte, pageURL *url.URL) (*Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(page)) == 0 {
		return nil, ErrNoArticle
	}
	result, err := trafilatura.Extract(bytes.NewReader(page), trafilatura.Options{
		EnableFallback: true,
		OriginalURL:    pageURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: trafilatura: %v", ErrNoArticle, err)
	}
	if result.ContentNode == nil {
		return nil, ErrNoArticle
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, result.ContentNode); err != nil {
		return nil, fmt.Errorf("render content: %w", err)
	}
	text := strings.TrimSpace(result.ContentText)
	n := utf8.RuneCountInString(text)
	if n < e.CharThreshold {
		return nil, ErrNoArticle
	}

	a := &Article{
		Title:       strings.TrimSpace(result.Metadata.Title),
		Byline:      strings.TrimSpace(result.Metadata.Author),
		Content:     buf.String(),
		TextContent: text,
		Length:      n,
		Excerpt:     result.Metadata.Description,
		SiteName:    result.Metadata.Sitename,
		Language:    result.Metadata.Language,
		SourceURL:   pageURL.String(),
	}
	if !result.Metadata.Date.IsZero() {
		d := result.Metadata.Date
		a.PublishedTime = &d
	}
	return a, nil
}

// newExtractor returns the extractor configured by cfg.
func newExtractor(cfg ExtractConfig) Extractor {
	if cfg.Engine == engineTrafilatura {
		return &TrafilaturaExtractor{CharThreshold: cfg.CharThreshold}
	}
	return &ReadabilityExtractor{CharThreshold: cfg.CharThreshold}
}

// Pipeline turns page HTML into a sanitized Article: URL normalization,
// extraction, then sanitization.
type Pipeline struct {
	extractor Extractor
	log       zerolog.Logger
}

func NewPipeline(extractor Extractor, log zerolog.Logger) *Pipeline {
	return &Pipeline{extractor: extractor, log: log}
}

// Process extracts an article from page, which was served from pageURL.
// Any failure to find content is reported as ErrNoArticle.
func (p *Pipeline) Process(ctx context.Context, page []byte, pageURL *url.URL) (*Article, error) {
	normalized, err := NormalizePageURLs(page, pageURL)
	if err != nil {
		return nil, fmt.Errorf("normalize urls: %w", err)
	}

	article, err := p.extractor.Extract(ctx, normalized, pageURL)
	if err != nil {
		return nil, err
	}

	// Extractors may emit references relative to the page again.
	content, err := NormalizeFragmentURLs(article.Content, pageURL)
	if err != nil {
		return nil, fmt.Errorf("normalize content urls: %w", err)
	}

	clean, err := SanitizeContent(content)
	if err != nil {
		return nil, fmt.Errorf("sanitize: %w", err)
	}
	article.Content = clean
	if err := article.Validate(); err != nil {
		return nil, err
	}

	p.log.Info().
		Str("title", article.DisplayTitle()).
		Int("length", article.Length).
		Str("url", article.SourceURL).
		Msg("extracted article")
	return article, nil
}
