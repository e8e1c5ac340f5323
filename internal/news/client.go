// Package news fetches headlines from Google News RSS and, when an API
// key is configured, NewsAPI. Provider failures degrade to an empty
// story list; they never surface as errors past the tool boundary.
package news

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultRSSURL     = "https://news.google.com"
	defaultNewsAPIURL = "https://newsapi.org"
	requestTimeout    = 8 * time.Second
	maxRetries        = 3
	backoffFactor     = 0.2
	defaultUserAgent  = "famulus/1.0"
)

// Story is one headline.
type Story struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// Options configures the news client from the environment (spec'd env
// vars NEWS_API_KEY, NEWS_SEARCH_LIMIT, NEWS_SEARCH_DAYS, NEWS_LOCAL_DAYS,
// NEWS_USER_AGENT).
type Options struct {
	APIKey      string
	SearchLimit int
	SearchDays  int
	LocalDays   int
	UserAgent   string
}

// Client fetches stories from the configured sources.
type Client struct {
	opts       Options
	rssURL     string
	newsAPIURL string
	httpClient *http.Client
}

// New creates a news client. Zero-valued options get defaults (limit 5,
// search window 7 days, local window 2 days).
func New(opts Options) *Client {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 5
	}
	if opts.SearchDays <= 0 {
		opts.SearchDays = 7
	}
	if opts.LocalDays <= 0 {
		opts.LocalDays = 2
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Client{
		opts:       opts,
		rssURL:     defaultRSSURL,
		newsAPIURL: defaultNewsAPIURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// NewWithBaseURLs creates a client pointing at custom endpoints (for testing).
func NewWithBaseURLs(opts Options, rssURL, newsAPIURL string) *Client {
	c := New(opts)
	c.rssURL = strings.TrimRight(rssURL, "/")
	c.newsAPIURL = strings.TrimRight(newsAPIURL, "/")
	return c
}

// Search fetches up to limit stories about topic in the given language
// ("en" or "da"). RSS and NewsAPI are queried concurrently when both are
// available; results are merged RSS-first and deduplicated by URL.
// Norwegian-domain items are excluded: the Danish locale settings pull in
// .no sources that are noise for this audience.
func (c *Client) Search(ctx context.Context, topic, language string, limit int) []Story {
	if limit <= 0 || limit > c.opts.SearchLimit {
		limit = c.opts.SearchLimit
	}

	var rssStories, apiStories []Story
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rssStories = c.fetchRSS(gctx, topic, language)
		return nil
	})
	if c.opts.APIKey != "" {
		g.Go(func() error {
			apiStories = c.fetchNewsAPI(gctx, topic, language)
			return nil
		})
	}
	g.Wait()

	seen := make(map[string]bool)
	var out []Story
	for _, s := range append(rssStories, apiStories...) {
		if s.URL == "" || seen[s.URL] || norwegianSource(s.URL) {
			continue
		}
		seen[s.URL] = true
		out = append(out, s)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func norwegianSource(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return strings.HasSuffix(host, ".no")
}

// --- Google News RSS ---

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Source  string `xml:"source"`
}

func (c *Client) fetchRSS(ctx context.Context, topic, language string) []Story {
	q := url.Values{}
	q.Set("q", topic)
	if language == "da" {
		q.Set("hl", "da")
		q.Set("gl", "DK")
		q.Set("ceid", "DK:da")
	} else {
		q.Set("hl", "en-US")
		q.Set("gl", "US")
		q.Set("ceid", "US:en")
	}

	body, err := c.get(ctx, c.rssURL+"/rss/search?"+q.Encode(), nil)
	if err != nil {
		slog.Warn("news: RSS fetch failed", "topic", topic, "error", err)
		return nil
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		slog.Warn("news: RSS parse failed", "error", err)
		return nil
	}

	stories := make([]Story, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		stories = append(stories, Story{
			Title:       StripHTML(item.Title),
			URL:         strings.TrimSpace(item.Link),
			Source:      strings.TrimSpace(item.Source),
			PublishedAt: item.PubDate,
		})
	}
	return stories
}

// --- NewsAPI ---

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (c *Client) fetchNewsAPI(ctx context.Context, topic, language string) []Story {
	q := url.Values{}
	q.Set("q", topic)
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", fmt.Sprintf("%d", c.opts.SearchLimit))
	q.Set("from", time.Now().UTC().AddDate(0, 0, -c.opts.SearchDays).Format("2006-01-02"))
	if language != "" {
		q.Set("language", language)
	}

	headers := map[string]string{"X-Api-Key": c.opts.APIKey}
	body, err := c.get(ctx, c.newsAPIURL+"/v2/everything?"+q.Encode(), headers)
	if err != nil {
		slog.Warn("news: NewsAPI fetch failed", "topic", topic, "error", err)
		return nil
	}

	var resp newsAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		slog.Warn("news: NewsAPI parse failed", "error", err)
		return nil
	}

	stories := make([]Story, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		stories = append(stories, Story{
			Title:       a.Title,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return stories
}

// --- shared HTTP plumbing ---

type transientError struct {
	status int
}

func (e *transientError) Error() string {
	return fmt.Sprintf("transient upstream error (HTTP %d)", e.status)
}

func (c *Client) get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	var lastErr error
	for attempt := range maxRetries {
		body, err := c.doGet(ctx, rawURL, headers)
		if err == nil {
			return body, nil
		}
		var te *transientError
		if !errors.As(err, &te) {
			return nil, err
		}
		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(backoffFactor * math.Pow(2, float64(attempt)) * float64(time.Second))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) doGet(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &transientError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
