package content

import (
	"cmp"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// readMetadata collects page metadata from <meta>, <link> and <title>.
// Must run before boilerplate removal strips <head>.
func readMetadata(doc *goquery.Document, pageURL *url.URL, out *ExtractedContent) {
	out.Title = cmp.Or(
		metaContent(doc, "meta[property='og:title']", "meta[name='twitter:title']"),
		strings.TrimSpace(doc.Find("title").First().Text()),
		strings.TrimSpace(doc.Find("h1").First().Text()),
	)
	out.Author = metaContent(doc, "meta[name='author']", "meta[property='article:author']", "meta[name='byl']")
	out.Description = metaContent(doc, "meta[name='description']", "meta[property='og:description']", "meta[name='twitter:description']")
	out.SiteName = metaContent(doc, "meta[property='og:site_name']", "meta[name='application-name']")

	if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok {
		out.CanonicalURL = absolute(pageURL, href)
	}
	if image := metaContent(doc, "meta[property='og:image']", "meta[name='twitter:image']"); image != "" {
		out.ImageURL = absolute(pageURL, image)
	}

	published := metaContent(doc,
		"meta[property='article:published_time']",
		"meta[name='date']",
		"meta[name='pubdate']",
		"meta[itemprop='datePublished']",
	)
	if published == "" {
		published, _ = doc.Find("time[datetime]").First().Attr("datetime")
	}
	out.PublishedAt = parsePublished(published)
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if value, ok := doc.Find(selector).First().Attr("content"); ok {
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	return ""
}

func parsePublished(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

func absolute(base *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	return u.String()
}
