package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/rss-digest/app/database"
)

// Channel describes the digest feed itself.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfURL     string
	Version     string
}

// Enclosure is an audio rendering attached to a digest item.
type Enclosure struct {
	URL    string
	Length int64
}

// EnclosureFunc resolves an article's audio reference; ok is false when the
// file is gone.
type EnclosureFunc func(ref string) (enc Enclosure, ok bool)

// Generator renders summarized articles as an RSS 2.0 document: the summary
// is the item description and the audio summary, when present, an enclosure.
type Generator struct {
	enclosure EnclosureFunc
}

func NewGenerator(enclosure EnclosureFunc) *Generator {
	return &Generator{enclosure: enclosure}
}

func (g *Generator) Run(channel Channel, articles []database.Article) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", cmp.Or(channel.Title, "RSS Digest"), 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, "AI summaries of aggregated articles"), 4)

	if channel.SelfURL != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfURL)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(articles) > 0 && articles[0].SummarizedAt != nil {
		lastBuildDate = articles[0].SummarizedAt.In(time.Local)
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RSS-Digest/%s", cmp.Or(channel.Version, "dev")), 4)

	for _, article := range articles {
		if article.Summary == nil || strings.TrimSpace(*article.Summary) == "" {
			continue
		}
		g.writeItem(&buf, article)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, article database.Article) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte("rss-digest:"+article.ID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", cmp.Or(article.Title, "Untitled"), 6)
	g.writeElement(buf, "link", article.Link, 6)
	g.writeElement(buf, "description", *article.Summary, 6)
	g.writeElement(buf, "category", article.FeedName, 6)
	g.writeElement(buf, "pubDate", article.PublishedAt.Format(time.RFC1123Z), 6)

	if article.AudioRef != nil && g.enclosure != nil {
		if enc, ok := g.enclosure(*article.AudioRef); ok {
			buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"%d\" type=\"audio/mpeg\" />\n",
				html.EscapeString(enc.URL), enc.Length))
		}
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
