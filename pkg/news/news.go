// Package news fetches the distribution news feed.
package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"archupdates/internal/logger"
)

const (
	// DefaultURL is the Arch Linux news RSS feed
	DefaultURL = "https://archlinux.org/feeds/news/"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 30 * time.Second

	// maxFeedSize bounds how much of a response is read.
	maxFeedSize = 8 << 20
)

// ErrMalformedFeed is returned when the feed cannot be parsed.
var ErrMalformedFeed = errors.New("malformed news feed")

// Item is one dated news entry.
type Item struct {
	Title       string    `json:"title" yaml:"title"`
	Link        string    `json:"link" yaml:"link"`
	Published   time.Time `json:"published" yaml:"published"`
	Author      string    `json:"author,omitempty" yaml:"author,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// Client fetches and parses a news feed.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a client for feedURL. An empty URL selects DefaultURL.
func NewClient(feedURL string, timeout time.Duration) *Client {
	if feedURL == "" {
		feedURL = DefaultURL
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:        feedURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the feed location.
func (c *Client) URL() string {
	return c.url
}

// Fetch downloads the feed and returns its dated entries in feed order.
// Entries without a parseable date are skipped.
func (c *Client) Fetch(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "archupdates/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news feed returned status %d", resp.StatusCode)
	}

	return Parse(io.LimitReader(resp.Body, maxFeedSize))
}

// Parse reads a feed document and returns its dated entries in feed order.
func Parse(r io.Reader) ([]Item, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}

	items := make([]Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		published := entry.PublishedParsed
		if published == nil {
			published = entry.UpdatedParsed
		}
		if published == nil {
			logger.Debug("skipping news entry %q without a date", entry.Title)
			continue
		}
		items = append(items, Item{
			Title:       strings.TrimSpace(entry.Title),
			Link:        entry.Link,
			Published:   *published,
			Author:      authorNames(entry),
			Description: entry.Description,
		})
	}
	return items, nil
}

// Since returns the items published strictly after since, preserving order.
// A zero since returns every item.
func Since(items []Item, since time.Time) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if since.IsZero() || item.Published.After(since) {
			out = append(out, item)
		}
	}
	return out
}

func authorNames(entry *gofeed.Item) string {
	var names []string
	for _, p := range entry.Authors {
		if p != nil && p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, ", ")
}

// PlainText converts an HTML news description to text, one paragraph or
// list item per line.
func PlainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("p, li, pre, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
