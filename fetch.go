package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

const defaultUA = "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0"

// Fetcher downloads pages and page resources. HTTPS requests use a browser
// TLS fingerprint unless a proxy is configured, in which case standard TLS is
// used so the request can tunnel through the proxy.
type Fetcher struct {
	browser   *http.Client
	plain     *http.Client
	userAgent string
	maxBytes  int64
	limiter   *hostLimiter
	log       zerolog.Logger
}

// NewFetcher builds a Fetcher from cfg. rps limits resource requests per
// host; zero disables the limit.
func NewFetcher(cfg FetchConfig, rps float64, log zerolog.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUA
	}
	f := &Fetcher{
		plain:     newProxyClient(cfg.Proxy, timeout, cfg.AllowPrivate),
		userAgent: ua,
		maxBytes:  cfg.MaxResponseBytes,
		limiter:   newHostLimiter(rps),
		log:       log,
	}
	if cfg.Proxy == "" {
		f.browser = newBrowserClient(timeout, cfg.AllowPrivate)
	}
	return f
}

func (f *Fetcher) clientFor(u *url.URL) *http.Client {
	if u.Scheme == "https" && f.browser != nil {
		return f.browser
	}
	return f.plain
}

// FetchPage downloads a document and returns its body along with the final
// URL after redirects, which is the base for resolving relative references.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) ([]byte, *url.URL, error) {
	parsed, err := parseHTTPURL(rawURL)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")

	resp, err := f.clientFor(parsed).Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
	}

	body, err := readLimited(resp.Body, f.maxBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}

	final := parsed
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	f.log.Info().Str("url", rawURL).Str("size", humanSize(int64(len(body)))).Msg("fetched page")
	return body, final, nil
}

// FetchResource downloads a single resource such as an image. The returned
// MIME type comes from the Content-Type header with parameters removed and
// may be empty.
func (f *Fetcher) FetchResource(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := parseHTTPURL(rawURL)
	if err != nil {
		return nil, "", err
	}
	if err := f.limiter.Wait(ctx, parsed.Hostname()); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/svg+xml,image/*;q=0.8,*/*;q=0.5")
	req.Header.Set("Sec-Fetch-Dest", "image")

	resp, err := f.clientFor(parsed).Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	data, err := readLimited(resp.Body, f.maxBytes)
	if err != nil {
		return nil, "", err
	}
	return data, mediaType(resp.Header.Get("Content-Type")), nil
}

func parseHTTPURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL %q: scheme must be http or https", rawURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	return parsed, nil
}

// mediaType strips parameters from a Content-Type value.
func mediaType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// newProxyClient creates an HTTP client that routes through the given proxy
// address using standard TLS. If proxyAddr is empty, it creates a direct
// (no-proxy) client with standard TLS.
func newProxyClient(proxyAddr string, timeout time.Duration, allowPrivate bool) *http.Client {
	transport := &http.Transport{
		DialContext: safeDialContext(&net.Dialer{Timeout: timeout}, allowPrivate),
	}
	if proxyAddr != "" {
		if proxyURL, err := url.Parse(proxyAddr); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// readLimited reads up to limit bytes from r. If the response exceeds the
// limit, it returns an error. A limit of 0 reads without limit.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	// Read limit+1 bytes so we can detect overflow without a custom reader.
	lr := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeds maximum allowed size (%s)", humanSize(limit))
	}
	return data, nil
}

func humanSize(n int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	f := float64(n)
	for _, u := range units {
		if math.Abs(f) < 1024 {
			return fmt.Sprintf("%.1f%s", f, u)
		}
		f /= 1024
	}
	return fmt.Sprintf("%.1f%s", f, units[len(units)-1])
}

// utlsConn wraps a utls.UConn and satisfies net.Conn + the
// ConnectionState interface that net/http2 needs.
type utlsConn struct {
	*utls.UConn
}

func (c *utlsConn) ConnectionState() tls.ConnectionState {
	cs := c.UConn.ConnectionState()
	return tls.ConnectionState{
		Version:                    cs.Version,
		HandshakeComplete:          cs.HandshakeComplete,
		CipherSuite:                cs.CipherSuite,
		NegotiatedProtocol:         cs.NegotiatedProtocol,
		NegotiatedProtocolIsMutual: cs.NegotiatedProtocolIsMutual,
		ServerName:                 cs.ServerName,
		PeerCertificates:           cs.PeerCertificates,
		VerifiedChains:             cs.VerifiedChains,
		OCSPResponse:               cs.OCSPResponse,
		TLSUnique:                  cs.TLSUnique,
	}
}

// newBrowserClient creates an HTTP client that mimics a real browser's
// TLS fingerprint using utls. Supports both HTTP/1.1 and HTTP/2.
func newBrowserClient(timeout time.Duration, allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: timeout}
	dial := safeDialContext(dialer, allowPrivate)

	rt := &browserTransport{
		dial: dial,
		h1:   &http.Transport{DialContext: dial},
		h2:   &http2.Transport{},
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}
}

type browserTransport struct {
	dial func(context.Context, string, string) (net.Conn, error)
	h1   *http.Transport
	h2   *http2.Transport
}

func (bt *browserTransport) dialUTLS(ctx context.Context, network, addr string) (net.Conn, string, error) {
	conn, err := bt.dial(ctx, network, addr)
	if err != nil {
		return nil, "", err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
	}, utls.HelloFirefox_120)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, "", err
	}

	alpn := tlsConn.ConnectionState().NegotiatedProtocol
	return &utlsConn{tlsConn}, alpn, nil
}

func (bt *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return bt.h1.RoundTrip(req)
	}

	addr := req.URL.Host
	if !hasPort(addr) {
		addr = addr + ":443"
	}

	conn, alpn, err := bt.dialUTLS(req.Context(), "tcp", addr)
	if err != nil {
		return nil, err
	}

	if alpn == "h2" {
		h2conn, err := bt.h2.NewClientConn(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return h2conn.RoundTrip(req)
	}

	// HTTP/1.1: hand the established TLS conn to a one-shot transport.
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return conn, nil
		},
	}
	return transport.RoundTrip(req)
}

func hasPort(host string) bool {
	_, _, err := net.SplitHostPort(host)
	return err == nil
}
