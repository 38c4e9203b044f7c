// Anthology output: several articles combined into one epub with a table
// of contents and a generated cover.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	gohtml "html"
	"regexp"
	"strconv"
	"strings"

	epub "github.com/go-shiori/go-epub"
	"github.com/rs/zerolog"
)

const bundleStylesheet = `body { margin: 1em; line-height: 1.5; }
img { max-width: 100%; height: auto; }
pre, code { font-size: 0.85em; }
blockquote { margin-left: 1em; padding-left: 0.5em; border-left: 2px solid #999; }
.byline { font-size: 0.85em; color: #666; margin-top: -0.5em; margin-bottom: 1.5em; }
.byline a { color: #666; }
.source-link { font-size: 0.85em; }
.toc { list-style-type: none; padding-left: 0; }
.toc li { margin-bottom: 1.2em; }
.toc a { text-decoration: none; }
.toc-meta { font-size: 0.85em; color: #666; margin-top: 0.1em; }
.toc-meta a { color: #666; }`

// Bundler builds multi-article epubs.
type Bundler struct {
	embedder *ImageEmbedder
	log      zerolog.Logger
}

func NewBundler(embedder *ImageEmbedder, log zerolog.Logger) *Bundler {
	return &Bundler{embedder: embedder, log: log}
}

// Build writes an epub containing articles, in order, to outputPath.
func (b *Bundler) Build(ctx context.Context, articles []*Article, title, outputPath string) error {
	if len(articles) == 0 {
		return ErrNoArticle
	}
	e, err := epub.NewEpub(title)
	if err != nil {
		return fmt.Errorf("creating epub: %w", err)
	}
	e.SetLang(bundleLanguage(articles))
	e.SetAuthor(packagePublisher)

	cssDataURI := "data:text/css;base64," + base64.StdEncoding.EncodeToString([]byte(bundleStylesheet))
	cssPath, err := e.AddCSS(cssDataURI, "styles.css")
	if err != nil {
		b.log.Warn().Err(err).Msg("could not add stylesheet")
		cssPath = ""
	}

	if cover, err := generateCover(title, len(articles)); err != nil {
		b.log.Warn().Err(err).Msg("could not generate cover")
	} else {
		coverURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(cover)
		if coverPath, err := e.AddImage(coverURI, "cover.png"); err != nil {
			b.log.Warn().Err(err).Msg("could not add cover")
		} else {
			e.SetCover(coverPath, "")
		}
	}

	if _, err := e.AddSection(buildTOCBody(articles), "Contents", "contents.xhtml", cssPath); err != nil {
		b.log.Warn().Err(err).Msg("could not add table of contents")
	}

	added := 0
	for i, a := range articles {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := b.chapterBody(ctx, e, a, i+1)
		if err != nil {
			b.log.Warn().Err(err).Str("url", a.SourceURL).Msg("skipping article")
			continue
		}
		if _, err := e.AddSection(body, a.DisplayTitle(), chapterFilename(i+1), cssPath); err != nil {
			b.log.Warn().Err(err).Str("title", a.DisplayTitle()).Msg("could not add section")
			continue
		}
		added++
	}
	if added == 0 {
		return errors.New("no articles could be added")
	}

	if err := e.Write(outputPath); err != nil {
		return fmt.Errorf("writing epub: %w", err)
	}
	return nil
}

// chapterBody renders one article as XHTML with its images stored in the
// epub under chapter-prefixed names.
func (b *Bundler) chapterBody(ctx context.Context, e *epub.Epub, a *Article, chapter int) (string, error) {
	body := a.Content
	var images []EmbeddedImage
	if b.embedder != nil {
		res, err := b.embedder.Embed(ctx, body)
		if err != nil {
			return "", err
		}
		body, images = res.Body, res.Images
	}

	body = shiftHeadings(body)

	var head strings.Builder
	head.WriteString("<h1>" + gohtml.EscapeString(a.DisplayTitle()) + "</h1>\n")
	if a.Byline != "" {
		head.WriteString(`<p class="byline">By ` + gohtml.EscapeString(a.Byline) + "</p>\n")
	}
	if a.SourceURL != "" {
		head.WriteString(`<p class="source-link"><a href="` + gohtml.EscapeString(a.SourceURL) + `">View Original Article</a></p>` + "\n")
	}

	xhtml, err := NormalizeXHTML(head.String() + body)
	if err != nil {
		return "", err
	}

	for _, img := range images {
		name := fmt.Sprintf("ch%03d_%s", chapter, img.AssetName)
		internal, err := e.AddImage("data:"+img.MIMEType+";base64,"+img.Base64(), name)
		if err != nil {
			b.log.Warn().Err(err).Str("image", name).Msg("could not add image")
			continue
		}
		xhtml = strings.ReplaceAll(xhtml, `"`+img.Path()+`"`, `"`+internal+`"`)
	}
	return xhtml, nil
}

var headingRe = regexp.MustCompile(`(?i)<(/?)h([1-6])([^>]*)>`)

// shiftHeadings moves every heading down one level (h1 to h2, clamped at
// h6) so the chapter title is the only h1.
func shiftHeadings(text string) string {
	return headingRe.ReplaceAllStringFunc(text, func(match string) string {
		parts := headingRe.FindStringSubmatch(match)
		level, _ := strconv.Atoi(parts[2])
		level = min(level+1, 6)
		if parts[1] == "/" {
			return fmt.Sprintf("</h%d>", level)
		}
		return fmt.Sprintf("<h%d%s>", level, parts[3])
	})
}

func chapterFilename(n int) string {
	return fmt.Sprintf("article%03d.xhtml", n)
}

// bundleLanguage returns the language shared by every article, or the
// default when they disagree or none is known.
func bundleLanguage(articles []*Article) string {
	lang := ""
	for _, a := range articles {
		if a.Language == "" {
			continue
		}
		if lang != "" && lang != a.Language {
			return defaultLanguage
		}
		lang = a.Language
	}
	if lang == "" {
		return defaultLanguage
	}
	return lang
}

// buildTOCBody generates the front matter table of contents.
func buildTOCBody(articles []*Article) string {
	var b strings.Builder
	b.WriteString("<h1>Contents</h1>\n<ol class=\"toc\">\n")
	for i, a := range articles {
		b.WriteString("<li>\n")
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, chapterFilename(i+1), gohtml.EscapeString(a.DisplayTitle()))
		b.WriteByte('\n')

		var meta []string
		if d := publishedDate(a.PublishedTime); d != "" {
			meta = append(meta, gohtml.EscapeString(d))
		}
		if a.Byline != "" {
			meta = append(meta, gohtml.EscapeString(a.Byline))
		}
		if a.SiteName != "" {
			meta = append(meta, gohtml.EscapeString(a.SiteName))
		}
		metaLine := strings.Join(meta, " · ")

		if a.SourceURL != "" {
			display := a.SourceURL
			for _, prefix := range []string{"https://", "http://"} {
				display = strings.TrimPrefix(display, prefix)
			}
			display = strings.TrimSuffix(display, "/")
			link := fmt.Sprintf(`<a href="%s">%s</a>`, gohtml.EscapeString(a.SourceURL), gohtml.EscapeString(display))
			if metaLine != "" {
				metaLine += "<br/>" + link
			} else {
				metaLine = link
			}
		}
		if metaLine != "" {
			fmt.Fprintf(&b, `<p class="toc-meta">%s</p>`, metaLine)
			b.WriteByte('\n')
		}
		b.WriteString("</li>\n")
	}
	b.WriteString("</ol>\n")
	return b.String()
}

// bundleTitle picks the book title: explicit title, then the list file's
// name, then the first article's title.
func bundleTitle(explicit, listName string, articles []*Article) string {
	switch {
	case explicit != "":
		return explicit
	case listName != "":
		return listName
	case len(articles) > 1:
		return articles[0].DisplayTitle() + " & more"
	case len(articles) == 1:
		return articles[0].DisplayTitle()
	}
	return "lectern"
}
