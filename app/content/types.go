package content

import "time"

// ExtractedContent is the readable text of a page plus whatever metadata the page declares.
type ExtractedContent struct {
	URL          string     `json:"url"`
	Text         string     `json:"text"`
	Title        string     `json:"title,omitempty"`
	Author       string     `json:"author,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	Description  string     `json:"description,omitempty"`
	SiteName     string     `json:"site_name,omitempty"`
	CanonicalURL string     `json:"canonical_url,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
}

// BatchResult pairs one input URL with either its content or its failure.
type BatchResult struct {
	URL     string
	Content *ExtractedContent
	Err     error
}
