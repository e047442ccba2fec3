package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultConcurrency = 4
	maxPageSize        = 5 << 20

	// MinTextLength is the shortest text, in runes, accepted as an article.
	MinTextLength = 100
)

var errEmptyPage = errors.New("HTML data is empty")

// Extractor downloads a page and reduces it to its main readable text.
// It performs no retries.
type Extractor struct {
	httpClient  *http.Client
	userAgent   string
	timeout     time.Duration
	concurrency int
	policy      *bluemonday.Policy
}

func NewExtractor(httpClient *http.Client, userAgent string, timeout time.Duration) *Extractor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Extractor{
		httpClient:  httpClient,
		userAgent:   userAgent,
		timeout:     timeout,
		concurrency: defaultConcurrency,
		policy:      bluemonday.StrictPolicy(),
	}
}

func (e *Extractor) Extract(ctx context.Context, rawURL string) (*ExtractedContent, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return nil, &ExtractionError{Reason: ReasonUnreachable, URL: rawURL, Err: fmt.Errorf("invalid page URL")}
	}

	data, err := e.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	extracted, err := e.Run(data, pageURL)
	if err != nil {
		return nil, &ExtractionError{Reason: ReasonEmptyContent, URL: rawURL, Err: err}
	}

	return extracted, nil
}

// ExtractBatch extracts every URL independently; one failure never affects
// the others. Results are returned in input order.
func (e *Extractor) ExtractBatch(ctx context.Context, urls []string) []BatchResult {
	results := make([]BatchResult, len(urls))

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			extracted, err := e.Extract(ctx, u)
			results[i] = BatchResult{URL: u, Content: extracted, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Run reduces an HTML document to readable text. Text shorter than
// MinTextLength runes is rejected.
func (e *Extractor) Run(data []byte, pageURL *url.URL) (*ExtractedContent, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyPage
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	extracted := &ExtractedContent{}
	if pageURL != nil {
		extracted.URL = pageURL.String()
	}
	readMetadata(doc, pageURL, extracted)

	removeBoilerplate(doc)
	cleaned, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render cleaned HTML: %w", err)
	}

	text := e.readableText(cleaned, pageURL)
	if utf8.RuneCountInString(text) < MinTextLength {
		return nil, fmt.Errorf("extracted text shorter than %d characters", MinTextLength)
	}
	extracted.Text = text

	slog.Debug("Content extracted successfully",
		"url", extracted.URL,
		"title", extracted.Title,
		"content_length", len(text))

	return extracted, nil
}

func (e *Extractor) readableText(cleaned string, pageURL *url.URL) string {
	article, err := readability.FromReader(strings.NewReader(cleaned), pageURL)
	if err == nil {
		var textBuf strings.Builder
		if err := article.RenderText(&textBuf); err == nil {
			if utf8.RuneCountInString(strings.TrimSpace(textBuf.String())) >= MinTextLength {
				var htmlBuf strings.Builder
				if err := article.RenderHTML(&htmlBuf); err == nil {
					if text := e.paragraphs(htmlBuf.String()); utf8.RuneCountInString(text) >= MinTextLength {
						return text
					}
				}
				return normalizeWhitespace(textBuf.String())
			}
		}
	}

	return e.paragraphs(cleaned)
}

const blockSelector = "h1, h2, h3, h4, h5, h6, p, pre, li, blockquote"

// paragraphs joins block-level text in document order, one block per paragraph.
func (e *Extractor) paragraphs(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return normalizeWhitespace(html.UnescapeString(e.policy.Sanitize(markup)))
	}

	var blocks []string
	doc.Find(blockSelector).Each(func(i int, s *goquery.Selection) {
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		if text := normalizeWhitespace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})

	if len(blocks) == 0 {
		doc.Find("article, main, section, div").Each(func(i int, s *goquery.Selection) {
			if s.ParentsFiltered("article, main, section, div").Length() > 0 {
				return
			}
			if text := normalizeWhitespace(s.Text()); len(text) > 10 {
				blocks = append(blocks, text)
			}
		})
	}

	if len(blocks) == 0 {
		return normalizeWhitespace(html.UnescapeString(e.policy.Sanitize(markup)))
	}

	return strings.Join(blocks, "\n\n")
}

func removeBoilerplate(doc *goquery.Document) {
	doc.Find("head, script, style, noscript, template, nav, header, footer, aside, form").Remove()
	doc.Find("iframe, embed, object, video, audio, canvas, svg").Remove()
	doc.Find("[class*='social'], [class*='share'], [id*='social'], [id*='share']").Remove()
	doc.Find("[class*='comment'], [id*='comment'], [class*='related'], [class*='newsletter']").Remove()
	doc.Find("[aria-hidden='true'], [hidden]").Remove()
}

func (e *Extractor) fetchPage(ctx context.Context, pageURL *url.URL) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rawURL := pageURL.String()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &ExtractionError{Reason: ReasonUnreachable, URL: rawURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &ExtractionError{Reason: transportReason(err), URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := ReasonUnreachable
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden:
			// paywalled or login-gated
			reason = ReasonEmptyContent
		}
		return nil, &ExtractionError{
			Reason:     reason,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP error: %s", resp.Status),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, &ExtractionError{Reason: transportReason(err), URL: rawURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if !isHTML(resp.Header.Get("Content-Type"), data) {
		return nil, &ExtractionError{
			Reason: ReasonUnsupportedFormat,
			URL:    rawURL,
			Err:    fmt.Errorf("content type %q is not HTML", resp.Header.Get("Content-Type")),
		}
	}

	return data, nil
}

func isHTML(contentType string, data []byte) bool {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func transportReason(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonUnreachable
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
