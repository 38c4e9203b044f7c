package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// testFetcher returns a Fetcher that may reach httptest servers on loopback.
func testFetcher(maxBytes int64) *Fetcher {
	return NewFetcher(FetchConfig{
		Timeout:          5 * time.Second,
		MaxResponseBytes: maxBytes,
		AllowPrivate:     true,
	}, 0, zerolog.Nop())
}

func TestFetchPage_Success(t *testing.T) {
	expected := "<html><body>Hello</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(expected))
	}))
	defer srv.Close()

	body, u, err := testFetcher(0).FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != expected {
		t.Errorf("got %q, want %q", string(body), expected)
	}
	if u.Host == "" {
		t.Error("expected parsed URL with host")
	}
}

func TestFetchPage_FinalURLAfterRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/posts/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/posts/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, u, err := testFetcher(0).FetchPage(context.Background(), srv.URL+"/old")
	if err != nil {
		t.Fatal(err)
	}
	if u.Path != "/posts/new" {
		t.Errorf("final path = %q, want /posts/new", u.Path)
	}
}

func TestFetchPage_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer srv.Close()

	_, _, err := testFetcher(0).FetchPage(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("expected 404 in error, got: %v", err)
	}
}

func TestFetchPage_UserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewFetcher(FetchConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "my-custom-agent/2.0",
		AllowPrivate: true,
	}, 0, zerolog.Nop())
	if _, _, err := f.FetchPage(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}
	if gotUA != "my-custom-agent/2.0" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "my-custom-agent/2.0")
	}
}

func TestFetchPage_BrowserHeaders(t *testing.T) {
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if _, _, err := testFetcher(0).FetchPage(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}

	required := map[string]string{
		"Sec-Fetch-Dest": "document",
		"Sec-Fetch-Mode": "navigate",
		"Sec-Fetch-Site": "none",
		"Accept":         "text/html",
	}
	for header, wantSubstr := range required {
		got := headers.Get(header)
		if got == "" {
			t.Errorf("missing header %s", header)
		} else if !strings.Contains(got, wantSubstr) {
			t.Errorf("%s = %q, want substring %q", header, got, wantSubstr)
		}
	}
}

func TestFetchPage_InvalidURL(t *testing.T) {
	for _, raw := range []string{"://bad-url", "ftp://example.com/file", "https://"} {
		if _, _, err := testFetcher(0).FetchPage(context.Background(), raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestFetchPage_ExceedsSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("x"), 200))
	}))
	defer srv.Close()

	_, _, err := testFetcher(100).FetchPage(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error when response exceeds size limit")
	}
	if !strings.Contains(err.Error(), "exceeds maximum allowed size") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFetchResource_MediaType(t *testing.T) {
	var accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "Image/PNG; charset=binary")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	data, mime, err := testFetcher(0).FetchResource(context.Background(), srv.URL+"/a.png")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("data = %q", data)
	}
	if mime != "image/png" {
		t.Errorf("mime = %q, want image/png", mime)
	}
	if !strings.HasPrefix(accept, "image/") {
		t.Errorf("Accept = %q, want image types first", accept)
	}
}

func TestFetchResource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, _, err := testFetcher(0).FetchResource(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestMediaType(t *testing.T) {
	tests := map[string]string{
		"text/html; charset=utf-8": "text/html",
		"IMAGE/JPEG":               "image/jpeg",
		"":                         "",
		" image/webp ":             "image/webp",
	}
	for in, want := range tests {
		if got := mediaType(in); got != want {
			t.Errorf("mediaType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHasPort(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"example.com:443", true},
		{"example.com:80", true},
		{"[::1]:8080", true},
		{"example.com", false},
		{"localhost", false},
	}
	for _, tt := range tests {
		got := hasPort(tt.host)
		if got != tt.want {
			t.Errorf("hasPort(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestNewFetcher_ProxyDisablesBrowserClient(t *testing.T) {
	f := NewFetcher(FetchConfig{Proxy: "http://127.0.0.1:3128"}, 0, zerolog.Nop())
	if f.browser != nil {
		t.Error("expected no browser client when a proxy is configured")
	}
	transport, ok := f.plain.Transport.(*http.Transport)
	if !ok {
		t.Fatal("expected *http.Transport")
	}
	if transport.Proxy == nil {
		t.Error("expected proxy to be set on transport")
	}
}

func TestReadLimited(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		limit   int64
		wantErr bool
	}{
		{"under limit", 100, 200, false},
		{"exactly at limit", 200, 200, false},
		{"exceeds limit", 201, 200, true},
		{"zero means unlimited", 10000, 0, false},
		{"negative means unlimited", 5000, -1, false},
		{"empty reader", 0, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readLimited(bytes.NewReader(bytes.Repeat([]byte("a"), tt.size)), tt.limit)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "exceeds maximum allowed size") {
					t.Fatalf("expected size error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.size {
				t.Errorf("got %d bytes, want %d", len(got), tt.size)
			}
		})
	}
}

func TestHumanSize(t *testing.T) {
	if got := humanSize(512); !strings.Contains(got, "512") {
		t.Errorf("humanSize(512) = %q", got)
	}
	if got := humanSize(3 * 1024 * 1024); !strings.Contains(got, "3") {
		t.Errorf("humanSize(3MiB) = %q", got)
	}
}
