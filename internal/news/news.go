// Package news polls debate news feeds and extracts article text for
// the news command and the web UI.
package news

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

const maxPerFeed = 15

// FeedConfig identifies one RSS/Atom feed to poll.
type FeedConfig struct {
	URL  string
	Name string
}

// Entry is one feed item.
type Entry struct {
	URL           string
	Title         string
	PublishedDate string // YYYY-MM-DD or empty
	Summary       string
	Source        string
}

// Browser polls configured feeds and fetches full article text on
// demand.
type Browser struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
	client *http.Client
}

// NewBrowser creates a Browser for the given feeds.
func NewBrowser(feeds []FeedConfig) *Browser {
	return &Browser{
		feeds:  feeds,
		parser: gofeed.NewParser(),
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Entries parses all configured feeds and returns items published
// within daysBack, newest first. Feeds that fail to parse are logged
// and skipped.
func (b *Browser) Entries(ctx context.Context, daysBack int) []Entry {
	cutoff := time.Now().AddDate(0, 0, -daysBack)
	var all []Entry

	for _, fc := range b.feeds {
		name := fc.Name
		if name == "" {
			name = sourceName(fc.URL)
		}

		entries, err := b.parseFeed(ctx, fc.URL, name, cutoff)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}
		all = append(all, entries...)
	}

	// Dates are YYYY-MM-DD, so lexicographic order is date order.
	// Undated entries sink to the end.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishedDate > all[j].PublishedDate
	})
	return all
}

func (b *Browser) parseFeed(ctx context.Context, feedURL, source string, cutoff time.Time) ([]Entry, error) {
	feed, err := b.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}
		entry := entryFromItem(item, source)
		if entry == nil {
			continue
		}
		if withinWindow(entry.PublishedDate, cutoff) {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func entryFromItem(item *gofeed.Item, source string) *Entry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var published string
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.Format("2006-01-02")
	}

	var summary string
	if item.Description != "" {
		summary = stripHTML(item.Description)
	} else if item.Content != "" {
		summary = stripHTML(item.Content)
	}
	if r := []rune(summary); len(r) > 400 {
		summary = string(r[:400]) + "…"
	}

	return &Entry{
		URL:           itemURL,
		Title:         title,
		PublishedDate: published,
		Summary:       summary,
		Source:        source,
	}
}

func withinWindow(published string, cutoff time.Time) bool {
	if published == "" {
		return true // benefit of the doubt
	}
	pub, err := time.Parse("2006-01-02", published)
	if err != nil {
		return true
	}
	return !pub.Before(cutoff)
}

// Read fetches one article and extracts its readable text.
func (b *Browser) Read(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "blockscraper/1.0 (debate news reader)")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetching article: %s", http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading article: %w", err)
	}

	parsed, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return "", fmt.Errorf("extracting article: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no extractable content in %s", articleURL)
	}
	return text, nil
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	return strings.Join(strings.Fields(s), " ")
}

func sourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "blog.", "feeds.", "rss."} {
		host = strings.TrimPrefix(host, prefix)
	}
	if host == "" {
		return feedURL
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
