package summary

import (
	"fmt"
	"strings"
)

type Style string

const (
	StyleBrief    Style = "brief"
	StyleDetailed Style = "detailed"
)

// ParseStyle accepts the style names used by the API; empty means brief.
func ParseStyle(value string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(value))) {
	case "", StyleBrief:
		return StyleBrief, nil
	case StyleDetailed:
		return StyleDetailed, nil
	default:
		return "", fmt.Errorf("unknown summary style %q", value)
	}
}

type Options struct {
	Style Style
}

func (o Options) style() Style {
	if o.Style == StyleDetailed {
		return StyleDetailed
	}
	return StyleBrief
}

const systemPrompt = "You summarize news articles for a busy reader. " +
	"Write plain prose without markdown, lists or headings. " +
	"Stay faithful to the source and do not invent facts."

func maxTokens(style Style, combined bool) int {
	switch {
	case combined && style == StyleDetailed:
		return 1500
	case combined:
		return 600
	case style == StyleDetailed:
		return 800
	default:
		return 300
	}
}

func singlePrompt(text, focus string, style Style) string {
	var b strings.Builder
	if style == StyleDetailed {
		b.WriteString("Write a detailed summary of the following article in three to five paragraphs, covering the key facts, context and implications.")
	} else {
		b.WriteString("Summarize the following article in two or three sentences.")
	}
	if focus != "" {
		fmt.Fprintf(&b, " Focus on: %s.", focus)
	}
	b.WriteString("\n\nArticle:\n")
	b.WriteString(text)
	return b.String()
}

func combinedPrompt(sections []string, style Style) string {
	var b strings.Builder
	b.WriteString("The following numbered articles come from different sources. ")
	if style == StyleDetailed {
		b.WriteString("Write a detailed digest that covers every article, groups related stories and names the source of each point.")
	} else {
		b.WriteString("Write a short digest with one or two sentences per article and name the source of each point.")
	}
	b.WriteString("\n\n")
	b.WriteString(strings.Join(sections, "\n\n"))
	return b.String()
}

// sectionHeader numbers articles from 1 in input order.
func sectionHeader(n int, src Source) string {
	title := strings.TrimSpace(src.Title)
	if title == "" {
		title = "Untitled"
	}
	if feed := strings.TrimSpace(src.FeedName); feed != "" {
		return fmt.Sprintf("%d. %s (Source: %s)", n, title, feed)
	}
	return fmt.Sprintf("%d. %s", n, title)
}
