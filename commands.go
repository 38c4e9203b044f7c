package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// fetchArticle downloads rawURL and runs it through the extraction
// pipeline.
func fetchArticle(ctx context.Context, deps *Dependencies, rawURL string) (*Article, error) {
	page, finalURL, err := deps.Fetcher.FetchPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return deps.Pipeline.Process(ctx, page, finalURL)
}

// writeExport writes res to output, or to stdout when output is empty.
func writeExport(deps *Dependencies, res *ExportResult, output string) error {
	if output == "" {
		_, err := deps.Stdout.Write(res.Data)
		return err
	}
	if err := os.WriteFile(output, res.Data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	deps.Log.Info().Str("file", output).Str("size", humanSize(int64(len(res.Data)))).Msg("wrote export")
	return nil
}

// exportName returns the requested filename or one derived from the title.
func exportName(requested string, a *Article) string {
	if requested != "" {
		return requested
	}
	return DeriveFilename(a.Title)
}

// Run executes the view command.
func (c *ViewCmd) Run(deps *Dependencies) error {
	a, err := fetchArticle(deps.Ctx, deps, c.URL)
	if err != nil {
		return err
	}
	id, err := deps.Sessions.Put(deps.Ctx, a)
	if err != nil {
		return err
	}

	srv := newDepsServer(deps)
	ln, err := net.Listen("tcp", deps.Config.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", deps.Config.Server.Addr, err)
	}
	viewURL := "http://" + ln.Addr().String() + "/view/" + id
	fmt.Fprintln(deps.Stdout, viewURL)

	if !c.NoOpen && deps.Launcher != nil {
		if err := deps.Launcher.Open(deps.Ctx, viewURL); err != nil {
			deps.Log.Warn().Err(err).Msg("could not open browser")
		}
	}
	return srv.Serve(deps.Ctx, ln)
}

// Run executes the html command.
func (c *HTMLCmd) Run(deps *Dependencies) error {
	a, err := fetchArticle(deps.Ctx, deps, c.URL)
	if err != nil {
		return err
	}
	res, err := deps.Exporter.ExportHTML(deps.Ctx, a, exportName(c.Filename, a), c.InlineImages)
	if err != nil {
		return err
	}
	return writeExport(deps, res, c.Output)
}

// Run executes the epub command.
func (c *EPUBCmd) Run(deps *Dependencies) error {
	a, err := fetchArticle(deps.Ctx, deps, c.URL)
	if err != nil {
		return err
	}
	res, err := deps.Exporter.ExportPackage(deps.Ctx, a, exportName(c.Filename, a))
	if err != nil {
		return err
	}
	output := c.Output
	if output == "" || res.Fallback {
		output = res.Filename
	}
	return writeExport(deps, res, output)
}

// Run executes the markdown command.
func (c *MarkdownCmd) Run(deps *Dependencies) error {
	a, err := fetchArticle(deps.Ctx, deps, c.URL)
	if err != nil {
		return err
	}
	res, err := deps.Exporter.ExportMarkdown(a, DeriveFilename(a.Title))
	if err != nil {
		return err
	}
	return writeExport(deps, res, c.Output)
}

// Run executes the email command. The package is written to the working
// directory for the user to attach, then the mail composer is opened.
func (c *EmailCmd) Run(deps *Dependencies) error {
	to, err := ValidateRecipient(c.To)
	if err != nil {
		return err
	}
	a, err := fetchArticle(deps.Ctx, deps, c.URL)
	if err != nil {
		return err
	}
	res, err := deps.Exporter.ExportPackage(deps.Ctx, a, exportName(c.Filename, a))
	if err != nil {
		return err
	}
	if err := writeExport(deps, res, res.Filename); err != nil {
		return err
	}

	link := ComposeMailto(to, a.DisplayTitle(), res.Format)
	if c.NoOpen || deps.Launcher == nil {
		fmt.Fprintln(deps.Stdout, link)
		return nil
	}
	if err := deps.Launcher.Open(deps.Ctx, link); err != nil {
		return err
	}
	fmt.Fprintf(deps.Stdout, "Attach %s to the new message.\n", res.Filename)
	return nil
}

// Run executes the bundle command. Articles are fetched one at a time and
// failures are skipped.
func (c *BundleCmd) Run(deps *Dependencies) error {
	urls, listName, err := collectSources(c.Sources)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("no URLs provided")
	}

	var articles []*Article
	for i, u := range urls {
		if err := deps.Ctx.Err(); err != nil {
			return err
		}
		deps.Log.Info().Msgf("[%d/%d] %s", i+1, len(urls), shortURL(u))
		a, err := fetchArticle(deps.Ctx, deps, u)
		if err != nil {
			deps.Log.Warn().Err(err).Str("url", u).Msg("skipping")
			continue
		}
		articles = append(articles, a)
	}
	if len(articles) == 0 {
		return errors.New("no articles converted")
	}

	title := bundleTitle(c.Title, listName, articles)
	if err := deps.Bundler.Build(deps.Ctx, articles, title, c.Output); err != nil {
		return fmt.Errorf("building epub: %w", err)
	}
	fmt.Fprintf(deps.Stdout, "%s (%d articles)\n", c.Output, len(articles))
	return nil
}

// collectSources expands .txt arguments into their URLs. listName is the
// base name of the first list file.
func collectSources(sources []string) (urls []string, listName string, err error) {
	for _, src := range sources {
		if !strings.HasSuffix(src, ".txt") {
			urls = append(urls, src)
			continue
		}
		fileURLs, err := readURLFile(src)
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", src, err)
		}
		urls = append(urls, fileURLs...)
		if listName == "" {
			listName = strings.TrimSuffix(filepath.Base(src), ".txt")
		}
	}
	return urls, listName, nil
}

// readURLFile reads a file containing one URL per line, skipping blanks and comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readURLs(f)
}

func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// Run executes the prefs command. With no flags it prints the stored
// preferences.
func (c *PrefsCmd) Run(deps *Dependencies) error {
	p, _, err := deps.Prefs.Load(deps.Ctx)
	if err != nil {
		return err
	}

	changed := false
	if c.Theme != "" {
		switch t := Theme(strings.TrimSuffix(c.Theme, "-theme")); t {
		case ThemeLight, ThemeSepia, ThemeDark:
			p.Theme = t
		default:
			return invalidf("theme", "unknown theme %q", c.Theme)
		}
		changed = true
	}
	if c.Font >= 0 {
		if c.Font > maxFontLevel {
			return invalidf("font", "font level must be between %d and %d", minFontLevel, maxFontLevel)
		}
		p.FontSizeLevel = c.Font
		changed = true
	}
	if c.Wide || c.Narrow {
		p.WideWidth = c.Wide
		changed = true
	}
	if changed {
		if err := deps.Prefs.Save(deps.Ctx, p); err != nil {
			return err
		}
	}

	wide := "normal"
	if p.WideWidth {
		wide = "wide"
	}
	fmt.Fprintf(deps.Stdout, "theme: %s\nfont: %d (%s)\nwidth: %s\n", p.Theme, p.FontSizeLevel, FontClass(p.FontSizeLevel), wide)
	return nil
}

// Run executes the serve command.
func (c *ServeCmd) Run(deps *Dependencies) error {
	addr := c.Addr
	if addr == "" {
		addr = deps.Config.Server.Addr
	}
	return newDepsServer(deps).ListenAndServe(deps.Ctx, addr)
}

func newDepsServer(deps *Dependencies) *Server {
	return NewServer(ServerDeps{
		Pipeline:       deps.Pipeline,
		Fetcher:        deps.Fetcher,
		Sessions:       deps.Sessions,
		Prefs:          deps.Prefs,
		Exporter:       deps.Exporter,
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		SessionTTL:     deps.Config.Session.TTL,
		Log:            deps.Log,
	})
}

// shortURL returns host and path without the scheme, truncated to 60
// characters.
func shortURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	display := strings.TrimSuffix(u.Host+u.Path, "/")
	if len(display) > 60 {
		display = display[:57] + "..."
	}
	return display
}
