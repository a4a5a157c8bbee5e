package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/parafrasa/internal/model"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Document is a source split into paragraphs
type Document struct {
	Source     string
	Title      string
	Paragraphs []string
}

// Loader reads documents from local files or http(s) URLs
type Loader struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *RobotsChecker
}

// NewLoader creates a Loader. Robots.txt is only consulted when cfg.RespectRobots is set.
func NewLoader(cfg model.FetchConfig) *Loader {
	l := &Loader{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
	}
	if l.maxBytes <= 0 {
		l.maxBytes = 5 << 20
	}
	if cfg.RespectRobots {
		l.robots = NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}
	return l
}

// Load reads src, which is either a URL or a file path
func (l *Loader) Load(ctx context.Context, src string) (*Document, error) {
	if isURL(src) {
		return l.fetch(ctx, src)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	doc, err := parse(data, kindFromExt(src))
	if err != nil {
		return nil, err
	}
	doc.Source = src
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}
	return doc, nil
}

// LoadReader reads a document from r; name's extension selects the format
func (l *Loader) LoadReader(r io.Reader, name string) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	doc, err := parse(data, kindFromExt(name))
	if err != nil {
		return nil, err
	}
	doc.Source = name
	return doc, nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (*Document, error) {
	if l.robots != nil {
		allowed, _, err := l.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,application/pdf;q=0.8,*/*;q=0.5")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	kind := kindFromContentType(resp.Header.Get("Content-Type"), resp.Request.URL.Path)
	doc, err := parse(body, kind)
	if err != nil {
		return nil, err
	}
	doc.Source = resp.Request.URL.String()
	if doc.Title == "" {
		doc.Title = subjectFromURL(doc.Source)
	}
	return doc, nil
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Li: true, atom.Blockquote: true, atom.Pre: true,
}

var skippedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Nav: true, atom.Footer: true,
	atom.Header: true, atom.Noscript: true, atom.Aside: true,
}

// parseHTML keeps the text of block elements, one paragraph each
func parseHTML(data []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &Document{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case skippedElements[n.DataAtom]:
				return
			case n.DataAtom == atom.Title && doc.Title == "":
				doc.Title = strings.TrimSpace(textOf(n))
				return
			case blockElements[n.DataAtom] && !hasBlockChild(n):
				if text := strings.Join(strings.Fields(textOf(n)), " "); text != "" {
					doc.Paragraphs = append(doc.Paragraphs, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return doc, nil
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (blockElements[c.DataAtom] || hasBlockChild(c)) {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && skippedElements[n.DataAtom] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}

func isURL(src string) bool {
	u, err := url.Parse(src)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// subjectFromURL turns the last path segment into a readable title
func subjectFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	last = strings.NewReplacer("_", " ", "-", " ").Replace(last)
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	return last
}
