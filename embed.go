package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/vincent-petithory/dataurl"
	"golang.org/x/sync/errgroup"
)

// ResourceFetcher downloads a single resource. The returned MIME type may
// be empty when the server did not declare one.
type ResourceFetcher interface {
	FetchResource(ctx context.Context, rawURL string) ([]byte, string, error)
}

// EmbeddedImage is one image fetched for embedding in an export.
type EmbeddedImage struct {
	OriginalURL string
	AssetName   string // image_<index>.<ext>
	Data        []byte
	MIMEType    string
}

// Base64 returns the image payload in standard base64.
func (img EmbeddedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// Path is the package-relative reference used in rewritten markup.
func (img EmbeddedImage) Path() string {
	return "images/" + img.AssetName
}

// EmbedResult is the outcome of embedding the images of one body.
type EmbedResult struct {
	Body   string
	Images []EmbeddedImage
	Failed int
}

// ImageEmbedder fetches every remote image of an article body and rewrites
// references to the fetched copies.
type ImageEmbedder struct {
	fetcher     ResourceFetcher
	concurrency int
	optimize    *optimizeOpts
	log         zerolog.Logger
}

func NewImageEmbedder(fetcher ResourceFetcher, cfg ImageConfig, log zerolog.Logger) *ImageEmbedder {
	return &ImageEmbedder{
		fetcher:     fetcher,
		concurrency: cfg.Concurrency,
		optimize:    optimizeOptsFrom(cfg),
		log:         log,
	}
}

// Embed fetches the images of body and rewrites every occurrence of each
// embedded URL to images/<assetName>. Images that fail to fetch keep their
// original URL.
func (e *ImageEmbedder) Embed(ctx context.Context, body string) (*EmbedResult, error) {
	return e.embed(ctx, body, EmbeddedImage.Path)
}

// EmbedInline is like Embed but rewrites references to data: URLs, for
// single-file exports.
func (e *ImageEmbedder) EmbedInline(ctx context.Context, body string) (*EmbedResult, error) {
	return e.embed(ctx, body, func(img EmbeddedImage) string {
		return dataurl.New(img.Data, img.MIMEType).String()
	})
}

type fetchedImage struct {
	data []byte
	mime string
	ok   bool
}

func (e *ImageEmbedder) embed(ctx context.Context, body string, ref func(EmbeddedImage) string) (*EmbedResult, error) {
	doc, root, err := fragmentDoc(body)
	if err != nil {
		return nil, fmt.Errorf("parse body: %w", err)
	}

	urls := collectImageURLs(doc)
	if len(urls) == 0 {
		return &EmbedResult{Body: body}, nil
	}

	results := make([]fetchedImage, len(urls))
	g := new(errgroup.Group)
	g.SetLimit(max(e.concurrency, 1))
	for i, u := range urls {
		g.Go(func() error {
			results[i] = e.fetchOne(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	res := &EmbedResult{}
	rewrites := make(map[string]string)
	for i, r := range results {
		if !r.ok {
			res.Failed++
			continue
		}
		img := EmbeddedImage{
			OriginalURL: urls[i],
			AssetName:   fmt.Sprintf("image_%d.%s", len(res.Images), extensionForMIME(r.mime)),
			Data:        r.data,
			MIMEType:    r.mime,
		}
		res.Images = append(res.Images, img)
		rewrites[img.OriginalURL] = ref(img)
	}

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		for i, a := range n.Attr {
			if to, ok := rewrites[strings.TrimSpace(a.Val)]; ok {
				n.Attr[i].Val = to
			}
		}
	})

	res.Body, err = renderChildren(root)
	if err != nil {
		return nil, err
	}
	e.log.Info().Int("embedded", len(res.Images)).Int("failed", res.Failed).Msg("embedded images")
	return res, nil
}

// collectImageURLs returns the distinct remote <img> sources in document
// order. Sources that are already embedded (data:) are skipped.
func collectImageURLs(doc *goquery.Document) []string {
	var urls []string
	seen := make(map[string]bool)
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" || seen[src] || strings.HasPrefix(strings.ToLower(src), "data:") {
			return
		}
		u, err := url.Parse(src)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		seen[src] = true
		urls = append(urls, src)
	})
	return urls
}

func (e *ImageEmbedder) fetchOne(ctx context.Context, src string) fetchedImage {
	data, mime, err := e.fetcher.FetchResource(ctx, src)
	if err != nil {
		e.log.Warn().Err(err).Str("url", src).Msg("could not fetch image")
		return fetchedImage{}
	}
	mime = detectImageMIME(data, mime)
	if mime == "" {
		e.log.Warn().Str("url", src).Msg("not an image, leaving reference")
		return fetchedImage{}
	}
	if e.optimize != nil {
		if out, ok := optimizeImage(data, mime, *e.optimize, e.log); ok {
			e.log.Debug().Str("url", src).
				Str("before", humanSize(int64(len(data)))).
				Str("after", humanSize(int64(len(out)))).
				Msg("optimized image")
			data, mime = out, "image/jpeg"
		}
	}
	return fetchedImage{data: data, mime: mime, ok: true}
}

// detectImageMIME prefers the declared type and falls back to sniffing.
// It returns "" when the content is not an image.
func detectImageMIME(data []byte, declared string) string {
	declared = mediaType(declared)
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	sniffed := mediaType(mimetype.Detect(data).String())
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return ""
}

var imageExtensions = map[string]string{
	"image/jpeg":               "jpg",
	"image/jpg":                "jpg",
	"image/png":                "png",
	"image/gif":                "gif",
	"image/webp":               "webp",
	"image/svg+xml":            "svg",
	"image/avif":               "avif",
	"image/bmp":                "bmp",
	"image/tiff":               "tiff",
	"image/x-icon":             "ico",
	"image/vnd.microsoft.icon": "ico",
}

// extensionForMIME maps an image MIME type to a file extension, "png" when
// the type is unknown.
func extensionForMIME(mime string) string {
	mime = mediaType(mime)
	if ext, ok := imageExtensions[mime]; ok {
		return ext
	}
	if mt := mimetype.Lookup(mime); mt != nil {
		if ext := strings.TrimPrefix(mt.Extension(), "."); ext != "" {
			return ext
		}
	}
	return "png"
}
