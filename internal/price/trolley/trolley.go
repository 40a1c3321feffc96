// Package trolley implements a price source that scrapes the search results
// page of a grocery price comparison site.
package trolley

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/fairyhunter13/pantry-inventory-service/internal/model"
	"golang.org/x/net/html"
)

// DefaultBaseURL is the site queried when no override is configured.
const DefaultBaseURL = "https://www.trolley.co.uk"

// StatusError is returned for non-200 search responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, http.StatusText(e.Code))
}

// Source queries the search endpoint. One Source shares a single HTTP client,
// so a batch of lookups reuses pooled connections.
type Source struct {
	base      string
	client    *http.Client
	userAgent string
	maxBody   int64
}

// NewClient returns an HTTP client tuned for a burst of requests to one host.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// New returns a Source for base. A nil client gets NewClient(10s).
func New(base string, client *http.Client, userAgent string, maxBody int64) *Source {
	if base == "" {
		base = DefaultBaseURL
	}
	if client == nil {
		client = NewClient(10 * time.Second)
	}
	if maxBody <= 0 {
		maxBody = 4 << 20
	}
	return &Source{
		base:      strings.TrimRight(base, "/"),
		client:    client,
		userAgent: userAgent,
		maxBody:   maxBody,
	}
}

// SearchURL returns the search page address for name.
func (s *Source) SearchURL(name string) string {
	return s.base + "/search/?q=" + url.QueryEscape(strings.ToLower(name))
}

// Query fetches the search page for name and returns every parsable listing.
func (s *Source) Query(ctx context.Context, name string) ([]model.Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.SearchURL(name), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{Code: resp.StatusCode}
	}
	body := io.LimitReader(resp.Body, s.maxBody+1)
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > s.maxBody {
		return nil, fmt.Errorf("response too large (exceeds %d bytes)", s.maxBody)
	}
	return Parse(s.base, bytes.NewReader(data))
}

// Parse extracts listings from a search results page. Each
// div.product-listing contributes its first link and the price text of the
// div._price inside that link, e.g. "£0.69". Listings without a readable
// price are skipped.
func Parse(base string, r io.Reader) ([]model.Quote, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base = strings.TrimRight(base, "/")

	var quotes []model.Quote
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "product-listing") {
			if q, ok := parseListing(base, n); ok {
				quotes = append(quotes, q)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return quotes, nil
}

func parseListing(base string, listing *html.Node) (model.Quote, bool) {
	a := find(listing, func(n *html.Node) bool { return n.Data == "a" })
	if a == nil {
		return model.Quote{}, false
	}
	href := attr(a, "href")
	if href == "" {
		return model.Quote{}, false
	}
	priceDiv := find(a, func(n *html.Node) bool { return n.Data == "div" && hasClass(n, "_price") })
	if priceDiv == nil {
		return model.Quote{}, false
	}
	var text string
	if c := priceDiv.FirstChild; c != nil && c.Type == html.TextNode {
		text = strings.TrimSpace(c.Data)
	}
	currency, price, ok := ParsePrice(text)
	if !ok {
		return model.Quote{}, false
	}
	return model.Quote{Link: resolve(base, href), Price: price, Currency: currency}, true
}

// ParsePrice splits "£1.25" into its currency symbol and amount.
func ParsePrice(text string) (string, float64, bool) {
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError || unicode.IsDigit(r) || size >= len(text) {
		return "", 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(text[size:], ",", ""), 64)
	if err != nil || v < 0 {
		return "", 0, false
	}
	return string(r), v, true
}

func resolve(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}

func find(root *html.Node, match func(*html.Node) bool) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
