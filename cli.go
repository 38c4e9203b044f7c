package main

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Dependencies holds the wired services handed to each command.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Config   Config
	Log      zerolog.Logger
	Fetcher  *Fetcher
	Pipeline *Pipeline
	Sessions *SessionStore
	Prefs    *PreferenceStore
	Exporter *Exporter
	Bundler  *Bundler
	Launcher Launcher
}

// Globals are flags accepted by every command.
type Globals struct {
	Config    string        `short:"c" type:"path" help:"Config file (YAML or JSON)"`
	Verbose   bool          `short:"v" help:"Debug logging"`
	Silent    bool          `short:"s" help:"Only log warnings and errors"`
	Timeout   time.Duration `help:"HTTP fetch timeout"`
	UserAgent string        `name:"user-agent" help:"HTTP User-Agent header"`
	Proxy     string        `help:"HTTP proxy URL (disables the browser TLS fingerprint)"`
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Globals

	View     ViewCmd     `cmd:"" help:"Extract an article and open it in the reader view"`
	HTML     HTMLCmd     `cmd:"" name:"html" help:"Export an article as a standalone HTML document"`
	EPUB     EPUBCmd     `cmd:"" name:"epub" help:"Export an article as an EPUB package"`
	Markdown MarkdownCmd `cmd:"" help:"Export an article as Markdown"`
	Email    EmailCmd    `cmd:"" help:"Export an article and compose an email sharing it"`
	Bundle   BundleCmd   `cmd:"" help:"Combine several articles into one EPUB"`
	Prefs    PrefsCmd    `cmd:"" help:"Show or change reader preferences"`
	Serve    ServeCmd    `cmd:"" help:"Run the HTTP backend for the browser extension"`
}

// ViewCmd is the "view" subcommand.
type ViewCmd struct {
	URL    string `arg:"" help:"Article URL"`
	NoOpen bool   `name:"no-open" help:"Print the viewer URL without opening a browser"`
}

// HTMLCmd is the "html" subcommand.
type HTMLCmd struct {
	URL          string `arg:"" help:"Article URL"`
	Output       string `short:"o" type:"path" help:"Output file (default: stdout)"`
	Filename     string `help:"Export filename without extension (default: derived from the title)"`
	InlineImages bool   `name:"inline-images" help:"Embed images as data: URLs"`
}

// EPUBCmd is the "epub" subcommand.
type EPUBCmd struct {
	URL      string `arg:"" help:"Article URL"`
	Output   string `short:"o" type:"path" help:"Output file (default: <filename>.epub)"`
	Filename string `help:"Export filename without extension (default: derived from the title)"`
}

// MarkdownCmd is the "markdown" subcommand.
type MarkdownCmd struct {
	URL    string `arg:"" help:"Article URL"`
	Output string `short:"o" type:"path" help:"Output file (default: stdout)"`
}

// EmailCmd is the "email" subcommand.
type EmailCmd struct {
	URL      string `arg:"" help:"Article URL"`
	To       string `required:"" help:"Recipient email address"`
	Filename string `help:"Attachment filename without extension"`
	NoOpen   bool   `name:"no-open" help:"Print the mailto: link instead of opening the mail client"`
}

// BundleCmd is the "bundle" subcommand.
type BundleCmd struct {
	Sources []string `arg:"" help:"Article URLs or .txt files with one URL per line"`
	Output  string   `short:"o" required:"" type:"path" help:"Output epub file"`
	Title   string   `help:"Book title"`
}

// PrefsCmd is the "prefs" subcommand.
type PrefsCmd struct {
	Theme  string `help:"Theme (light, sepia, dark)"`
	Font   int    `default:"-1" help:"Font size level 0-4"`
	Wide   bool   `xor:"width" help:"Use the wide reading column"`
	Narrow bool   `xor:"width" help:"Use the normal reading column"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr string `help:"Listen address (default from config)"`
}
