package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-digest/app/ai"
	"github.com/lysyi3m/rss-digest/app/apperr"
	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/reader"
	"github.com/lysyi3m/rss-digest/app/summary"
)

const (
	maxSettingSize = 64 << 10
	digestSize     = 50
)

// NewHandler wires the handlers to the reader service. aiKey and speechKey
// are used when a request carries no X-AI-Key header; audioFiles may be nil
// when speech is disabled. Without baseURL, links in the digest feed are
// built from the request host.
func NewHandler(r Reader, audioFiles AudioFiles, aiKey, speechKey, baseURL, version string) *Handler {
	return &Handler{
		reader:     r,
		audioFiles: audioFiles,
		aiKey:      ai.Credential(aiKey),
		speechKey:  ai.Credential(speechKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		version:    version,
	}
}

func (h *Handler) aiCredential(c *gin.Context) ai.Credential {
	if key := strings.TrimSpace(c.GetHeader("X-AI-Key")); key != "" {
		return ai.Credential(key)
	}
	return h.aiKey
}

func (h *Handler) speechCredential(c *gin.Context) ai.Credential {
	if key := strings.TrimSpace(c.GetHeader("X-AI-Key")); key != "" {
		return ai.Credential(key)
	}
	return h.speechKey
}

func (h *Handler) HealthCheck(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if stats, err := h.reader.Stats(c.Request.Context()); err == nil {
		health["feeds"] = stats.Feeds
	} else {
		health["status"] = "degraded"
		health["error"] = err.Error()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.reader.Stats(c.Request.Context())
	if err != nil {
		writeError(c, "stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.reader.ListFeeds(c.Request.Context())
	if err != nil {
		writeError(c, "list_feeds", err)
		return
	}

	resp := make([]FeedResponse, 0, len(feeds))
	for _, f := range feeds {
		resp = append(resp, newFeedResponse(f))
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": resp,
		"total": len(resp),
	})
}

func (h *Handler) AddFeed(c *gin.Context) {
	var req addFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "add_feed", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
		return
	}

	result, err := h.reader.AddFeed(c.Request.Context(), req.Name, req.URL)
	if err != nil && (result.Feed.ID == 0 || errors.Is(err, database.ErrDuplicateFeed)) {
		writeError(c, "add_feed", err)
		return
	}

	// The feed exists even if ingesting its first entries failed.
	c.JSON(http.StatusCreated, newFeedResultResponse(result))
}

func (h *Handler) DeleteFeed(c *gin.Context) {
	id, ok := feedID(c)
	if !ok {
		return
	}

	if err := h.reader.RemoveFeed(c.Request.Context(), id); err != nil {
		writeError(c, "delete_feed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RefreshFeed(c *gin.Context) {
	id, ok := feedID(c)
	if !ok {
		return
	}

	result, err := h.reader.RefreshFeed(c.Request.Context(), id)
	if err != nil {
		writeError(c, "refresh_feed", err)
		return
	}
	c.JSON(http.StatusOK, newFeedResultResponse(result))
}

func (h *Handler) RefreshAll(c *gin.Context) {
	report, err := h.reader.RefreshAll(c.Request.Context())
	if err != nil {
		writeError(c, "refresh_all", err)
		return
	}

	results := make([]FeedResultResponse, 0, len(report.Results))
	for _, result := range report.Results {
		results = append(results, newFeedResultResponse(result))
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"totals":  report.Totals(),
		"failed":  report.Failed(),
	})
}

func (h *Handler) ListArticles(c *gin.Context) {
	var query reader.ArticleQuery

	if raw := c.Query("feed_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(c, "list_articles", fmt.Errorf("%w: feed_id must be an integer", apperr.ErrInvalidInput))
			return
		}
		query.FeedID = &id
	}
	for name, target := range map[string]*int{"limit": &query.Limit, "offset": &query.Offset} {
		if raw := c.Query(name); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil || value < 0 {
				writeError(c, "list_articles", fmt.Errorf("%w: %s must be a non-negative integer", apperr.ErrInvalidInput, name))
				return
			}
			*target = value
		}
	}

	articles, err := h.reader.ListArticles(c.Request.Context(), query)
	if err != nil {
		writeError(c, "list_articles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": newArticleResponses(articles),
		"total":    len(articles),
	})
}

func (h *Handler) GetArticle(c *gin.Context) {
	article, err := h.reader.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "get_article", err)
		return
	}
	c.JSON(http.StatusOK, newArticleResponse(*article, true))
}

func (h *Handler) ExtractArticle(c *gin.Context) {
	force := c.Query("force") == "true"

	article, err := h.reader.ExtractArticle(c.Request.Context(), c.Param("id"), force)
	if err != nil {
		writeError(c, "extract_article", err)
		return
	}
	c.JSON(http.StatusOK, newArticleResponse(*article, true))
}

func (h *Handler) SummarizeArticle(c *gin.Context) {
	req, ok := bindSummarizeRequest(c)
	if !ok {
		return
	}
	style, err := requestStyle(req)
	if err != nil {
		writeError(c, "summarize_article", err)
		return
	}

	result, err := h.reader.SummarizeArticleWithFocus(c.Request.Context(), h.aiCredential(c), c.Param("id"), style, req.Focus)
	if err != nil {
		writeError(c, "summarize_article", err)
		return
	}

	c.JSON(http.StatusOK, SummaryResponse{
		ArticleID:   result.Article.ID,
		Style:       result.Style,
		Text:        result.Result.Text,
		SpeechText:  result.Result.SpeechText,
		Truncated:   result.Result.Truncated,
		FromSnippet: result.FromSnippet,
	})
}

func (h *Handler) GenerateArticleAudio(c *gin.Context) {
	ref, err := h.reader.GenerateArticleAudio(c.Request.Context(), h.speechCredential(c), c.Param("id"))
	if err != nil {
		writeError(c, "article_audio", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audio_ref": ref, "url": "/api/audio/" + ref})
}

func (h *Handler) ListBookmarks(c *gin.Context) {
	articles, err := h.reader.ListBookmarks(c.Request.Context())
	if err != nil {
		writeError(c, "list_bookmarks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"articles": newArticleResponses(articles),
		"total":    len(articles),
	})
}

func (h *Handler) AddBookmark(c *gin.Context) {
	added, err := h.reader.Bookmark(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "add_bookmark", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": c.Param("id"), "bookmarked": true, "added": added})
}

func (h *Handler) RemoveBookmark(c *gin.Context) {
	removed, err := h.reader.Unbookmark(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "remove_bookmark", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": c.Param("id"), "bookmarked": false, "removed": removed})
}

func (h *Handler) ClearBookmarks(c *gin.Context) {
	cleared, err := h.reader.ClearBookmarks(c.Request.Context())
	if err != nil {
		writeError(c, "clear_bookmarks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

func (h *Handler) CombinedSummary(c *gin.Context) {
	req, ok := bindSummarizeRequest(c)
	if !ok {
		return
	}
	style, err := requestStyle(req)
	if err != nil {
		writeError(c, "combined_summary", err)
		return
	}

	combined, err := h.reader.CombinedSummary(c.Request.Context(), h.aiCredential(c), style)
	if err != nil {
		writeError(c, "combined_summary", err)
		return
	}

	resp := CombinedSummaryResponse{
		SummaryResponse: SummaryResponse{
			Style:      combined.Style,
			Text:       combined.Text,
			SpeechText: combined.SpeechText,
			Truncated:  combined.Truncated,
		},
		Sources:  combined.Sources,
		Failures: make([]FailureResponse, 0, len(combined.Failures)),
	}
	for _, failure := range combined.Failures {
		class := classify(failure.Err)
		resp.Failures = append(resp.Failures, FailureResponse{
			ArticleID: failure.ArticleID,
			Title:     failure.Title,
			Error:     class.code,
			Message:   class.message,
		})
	}

	if req.Audio {
		ref, err := h.reader.GenerateAudio(c.Request.Context(), h.speechCredential(c), combined.Text)
		if err != nil {
			writeError(c, "combined_summary_audio", err)
			return
		}
		resp.AudioRef = ref
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GenerateAudio(c *gin.Context) {
	var req audioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "generate_audio", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
		return
	}

	ref, err := h.reader.GenerateAudio(c.Request.Context(), h.speechCredential(c), req.Text)
	if err != nil {
		writeError(c, "generate_audio", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audio_ref": ref, "url": "/api/audio/" + ref})
}

func (h *Handler) GetAudio(c *gin.Context) {
	if h.audioFiles == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Audio is not enabled"})
		return
	}

	path, err := h.audioFiles.Path(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Audio file not found"})
		return
	}

	c.Header("Content-Type", "audio/mpeg")
	c.File(path)
}

// GetDigestFeed serves summarized articles as an RSS feed, with audio
// summaries as enclosures.
func (h *Handler) GetDigestFeed(c *gin.Context) {
	articles, err := h.reader.SummarizedArticles(c.Request.Context(), digestSize)
	if err != nil {
		writeError(c, "digest_feed", err)
		return
	}

	base := h.requestBaseURL(c)
	generator := feed.NewGenerator(func(ref string) (feed.Enclosure, bool) {
		if h.audioFiles == nil {
			return feed.Enclosure{}, false
		}
		path, err := h.audioFiles.Path(ref)
		if err != nil {
			return feed.Enclosure{}, false
		}
		info, err := os.Stat(path)
		if err != nil {
			return feed.Enclosure{}, false
		}
		return feed.Enclosure{URL: base + "/api/audio/" + ref, Length: info.Size()}, true
	})

	rss, err := generator.Run(feed.Channel{
		Title:   "RSS Digest",
		Link:    base,
		SelfURL: base + "/digest.rss",
		Version: h.version,
	}, articles)
	if err != nil {
		writeError(c, "digest_feed", err)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Header("Cache-Control", "public, max-age=300")
	c.String(http.StatusOK, rss)
}

func (h *Handler) requestBaseURL(c *gin.Context) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func (h *Handler) ListSettings(c *gin.Context) {
	settings, err := h.reader.ListSettings(c.Request.Context())
	if err != nil {
		writeError(c, "list_settings", err)
		return
	}

	resp := make([]SettingResponse, 0, len(settings))
	for _, s := range settings {
		resp = append(resp, SettingResponse{Key: s.Key, Value: s.Value, UpdatedAt: s.UpdatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"settings": resp})
}

func (h *Handler) GetSetting(c *gin.Context) {
	setting, err := h.reader.GetSetting(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, "get_setting", err)
		return
	}
	c.JSON(http.StatusOK, SettingResponse{Key: setting.Key, Value: setting.Value, UpdatedAt: setting.UpdatedAt})
}

// PutSetting stores the raw JSON request body as the setting value.
func (h *Handler) PutSetting(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSettingSize))
	if err != nil {
		writeError(c, "put_setting", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
		return
	}

	key := c.Param("key")
	if err := h.reader.SaveSetting(c.Request.Context(), key, json.RawMessage(body)); err != nil {
		writeError(c, "put_setting", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": json.RawMessage(body)})
}

func feedID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, "parse_feed_id", fmt.Errorf("%w: feed id must be a positive integer", apperr.ErrInvalidInput))
		return 0, false
	}
	return id, true
}

// bindSummarizeRequest accepts an empty body as all defaults.
func bindSummarizeRequest(c *gin.Context) (summarizeRequest, bool) {
	var req summarizeRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, "parse_request", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
		return req, false
	}
	return req, true
}

// requestStyle leaves the style empty when the request names none, so the
// stored default applies.
func requestStyle(req summarizeRequest) (summary.Style, error) {
	if req.Style == "" {
		return "", nil
	}
	style, err := summary.ParseStyle(req.Style)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return style, nil
}
