package main

import (
	"net/url"
	"strings"
	"time"
)

// Article is one extracted article. Content is sanitized HTML and is never
// empty for a stored article.
type Article struct {
	Title         string     `json:"title,omitempty"`
	Byline        string     `json:"byline,omitempty"`
	Content       string     `json:"content"`
	TextContent   string     `json:"textContent"`
	Length        int        `json:"length"`
	Excerpt       string     `json:"excerpt,omitempty"`
	SiteName      string     `json:"siteName,omitempty"`
	Language      string     `json:"language,omitempty"`
	PublishedTime *time.Time `json:"publishedTime,omitempty"`
	SourceURL     string     `json:"sourceUrl"`
	SourceFavicon string     `json:"sourceFavicon,omitempty"`
}

// Validate reports whether the record is usable: non-empty content and an absolute
// source URL.
func (a *Article) Validate() error {
	if a == nil || strings.TrimSpace(a.Content) == "" {
		return ErrNoArticle
	}
	u, err := url.Parse(a.SourceURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return invalidf("sourceUrl", "must be an absolute URL, got %q", a.SourceURL)
	}
	return nil
}

// DisplayTitle returns the title or "Untitled" when there is none.
func (a *Article) DisplayTitle() string {
	if t := strings.TrimSpace(a.Title); t != "" {
		return t
	}
	return "Untitled"
}
