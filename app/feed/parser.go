package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

const untitled = "Untitled"

type Parser struct {
	gofeedParser *gofeed.Parser
	policy       *bluemonday.Policy
	now          func() time.Time
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		policy:       bluemonday.StrictPolicy(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run parses RSS, Atom or JSON Feed data. Entries keep feed order; entries
// without a resolvable http(s) link are dropped.
func (p *Parser) Run(data []byte, feedURL string) (*Metadata, []RawEntry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       strings.TrimSpace(feed.Title),
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
	}

	if feed.Image != nil {
		metadata.ImageURL = feed.Image.URL
	}

	if feed.PublishedParsed != nil {
		metadata.FeedPublishedAt = feed.PublishedParsed
	} else if feed.UpdatedParsed != nil {
		metadata.FeedPublishedAt = feed.UpdatedParsed
	}

	base := baseURL(feed.Link, feedURL)
	fetchedAt := p.now()

	entries := make([]RawEntry, 0, len(feed.Items))
	dropped := 0
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entry, ok := p.normalizeItem(item, base, fetchedAt)
		if !ok {
			dropped++
			continue
		}
		entries = append(entries, entry)
	}

	if dropped > 0 {
		slog.Debug("Dropped feed entries without link", "url", feedURL, "dropped", dropped)
	}

	return metadata, entries, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item, base *url.URL, fetchedAt time.Time) (RawEntry, bool) {
	link := p.resolveLink(item, base)
	if link == "" {
		return RawEntry{}, false
	}

	entry := RawEntry{
		Link:     link,
		Title:    cmp.Or(strings.TrimSpace(p.plainText(item.Title)), untitled),
		Summary:  p.plainText(item.Description),
		ImageURL: p.extractImage(item, base),
		GUID:     item.GUID,
	}

	switch {
	case item.PublishedParsed != nil:
		entry.PublishedAt = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		entry.PublishedAt = item.UpdatedParsed.UTC()
	default:
		entry.PublishedAt = fetchedAt
	}

	return entry, true
}

func (p *Parser) resolveLink(item *gofeed.Item, base *url.URL) string {
	candidates := append([]string{item.Link}, item.Links...)
	for _, candidate := range candidates {
		if resolved := resolve(base, candidate); resolved != "" {
			return resolved
		}
	}

	// A GUID only counts as a link when it is already an absolute URL.
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		if u, err := url.Parse(guid); err == nil && isHTTP(u) {
			return u.String()
		}
	}

	return ""
}

func (p *Parser) extractImage(item *gofeed.Item, base *url.URL) string {
	if item.Image != nil && item.Image.URL != "" {
		return resolve(base, item.Image.URL)
	}

	for _, enclosure := range item.Enclosures {
		if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") {
			return resolve(base, enclosure.URL)
		}
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, name := range []string{"thumbnail", "content"} {
			for _, ext := range media[name] {
				if src := ext.Attrs["url"]; src != "" {
					return resolve(base, src)
				}
			}
		}
	}

	for _, markup := range []string{item.Content, item.Description} {
		if !strings.Contains(markup, "<img") {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
		if err != nil {
			continue
		}
		if src, ok := doc.Find("img[src]").First().Attr("src"); ok {
			return resolve(base, src)
		}
	}

	return ""
}

func (p *Parser) plainText(s string) string {
	if s == "" {
		return ""
	}
	text := html.UnescapeString(p.policy.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

func baseURL(feedLink, feedURL string) *url.URL {
	for _, candidate := range []string{feedLink, feedURL} {
		if u, err := url.Parse(strings.TrimSpace(candidate)); err == nil && isHTTP(u) {
			return u
		}
	}
	return nil
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		if base == nil {
			return ""
		}
		u = base.ResolveReference(u)
	}
	if !isHTTP(u) {
		return ""
	}

	return u.String()
}

func isHTTP(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
