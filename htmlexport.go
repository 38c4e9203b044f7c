package main

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// exportStylesheet is embedded in every standalone HTML export.
const exportStylesheet = `
    * {
      margin: 0;
      padding: 0;
      box-sizing: border-box;
    }
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Roboto', 'Oxygen', 'Ubuntu', 'Cantarell', sans-serif;
      font-size: 18px;
      line-height: 1.6;
      color: #1a1a1a;
      background-color: #ffffff;
      padding: 40px 20px;
    }
    .container { max-width: 720px; margin: 0 auto; }
    .article-header {
      margin-bottom: 40px;
      padding-bottom: 30px;
      border-bottom: 1px solid #e0e0e0;
    }
    h1 { font-size: 2.5em; font-weight: 700; line-height: 1.2; margin-bottom: 16px; }
    .byline, .site-name { color: #666666; font-size: 0.9em; margin-bottom: 8px; }
    .source-link { color: #0066cc; text-decoration: none; font-size: 0.9em; }
    .source-link:hover { text-decoration: underline; }
    .article-body { font-size: 1em; line-height: 1.6; }
    .article-body > * { margin-bottom: 1.5em; }
    .article-body h2 { font-size: 1.75em; font-weight: 600; margin-top: 1.5em; margin-bottom: 0.75em; }
    .article-body h3 { font-size: 1.5em; font-weight: 600; margin-top: 1.5em; margin-bottom: 0.75em; }
    .article-body h4 { font-size: 1.25em; font-weight: 600; margin-top: 1.5em; margin-bottom: 0.75em; }
    .article-body p { margin-bottom: 1.5em; }
    .article-body a {
      color: #0066cc;
      text-decoration: underline;
      text-decoration-color: #0066cc;
      text-underline-offset: 2px;
    }
    .article-body a:hover { text-decoration-thickness: 2px; }
    .article-body img {
      max-width: 100%;
      height: auto;
      border-radius: 8px;
      margin: 2em 0;
      display: block;
    }
    .article-body figure { margin: 2em 0; }
    .article-body figcaption {
      font-size: 0.85em;
      color: #666666;
      text-align: center;
      margin-top: 0.5em;
      font-style: italic;
    }
    .article-body blockquote {
      border-left: 4px solid #e0e0e0;
      padding-left: 1.5em;
      margin: 2em 0;
      color: #666666;
      font-style: italic;
    }
    .article-body code {
      background-color: #f5f5f5;
      padding: 2px 6px;
      border-radius: 3px;
      font-family: 'Courier New', monospace;
      font-size: 0.9em;
    }
    .article-body pre {
      background-color: #f5f5f5;
      padding: 1em;
      border-radius: 6px;
      overflow-x: auto;
      margin: 2em 0;
    }
    .article-body pre code { background: none; padding: 0; }
    .article-body ul, .article-body ol { padding-left: 2em; margin-bottom: 1.5em; }
    .article-body li { margin-bottom: 0.5em; }
    .article-body table { width: 100%; border-collapse: collapse; margin: 2em 0; }
    .article-body th, .article-body td { border: 1px solid #e0e0e0; padding: 0.75em; text-align: left; }
    .article-body th { background-color: #f8f9fa; font-weight: 600; }
    .article-body hr { border: none; border-top: 1px solid #e0e0e0; margin: 3em 0; }
    .footer {
      margin-top: 60px;
      padding-top: 30px;
      border-top: 1px solid #e0e0e0;
      color: #666666;
      font-size: 0.85em;
      text-align: center;
    }
    @media print {
      body { padding: 20px; }
      .footer { page-break-before: avoid; }
    }
`

// RenderHTMLDocument wraps an article body in a complete, self-contained
// HTML document. The byline and site name blocks are omitted when empty.
func RenderHTMLDocument(title, byline, siteName, body, sourceURL string) string {
	var header strings.Builder
	if byline != "" {
		fmt.Fprintf(&header, "\n      <div class=\"byline\">By %s</div>", html.EscapeString(byline))
	}
	if siteName != "" {
		fmt.Fprintf(&header, "\n      <div class=\"site-name\">%s</div>", html.EscapeString(siteName))
	}

	var headExtra strings.Builder
	if byline != "" {
		fmt.Fprintf(&headExtra, "  <meta name=\"author\" content=\"%s\">\n", html.EscapeString(byline))
	}

	src := html.EscapeString(sourceURL)
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>%s</title>
%s  <style>%s  </style>
</head>
<body>
  <div class="container">
    <header class="article-header">
      <h1>%s</h1>%s
      <a href="%s" class="source-link" target="_blank">View Original Article</a>
    </header>

    <main class="article-body">
      %s
    </main>

    <footer class="footer">
      <p>Downloaded with lectern</p>
      <p>Original source: <a href="%s" target="_blank">%s</a></p>
    </footer>
  </div>
</body>
</html>
`, html.EscapeString(title), headExtra.String(), exportStylesheet,
		html.EscapeString(title), header.String(),
		src, body, src, src)
}

// renderArticleHTML renders a whole Article with RenderHTMLDocument.
func renderArticleHTML(a *Article, body string) string {
	byline := a.Byline
	if d := publishedDate(a.PublishedTime); d != "" && byline != "" {
		byline += " · " + d
	}
	return RenderHTMLDocument(a.DisplayTitle(), byline, a.SiteName, body, a.SourceURL)
}

// publishedDate formats t for display, or "" when unknown.
func publishedDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("January 2, 2006")
}
