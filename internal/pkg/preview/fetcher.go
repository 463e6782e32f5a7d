package preview

import (
	"Parley/internal/api/config"
	"context"
	log "log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/go-shiori/go-readability"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
)

const (
	userAgent         = "Mozilla/5.0 (compatible; ParleyBot/1.0; +link-preview)"
	maxBodyBytes      = 2 << 20
	maxDescriptionLen = 300
)

var (
	ErrUnsupportedURL = errors.New("preview: only http and https urls are supported")
	ErrNoMetadata     = errors.New("preview: page has no usable metadata")

	spaces = regexp.MustCompile(`\s+`)
)

// Preview 链接预览元数据
type Preview struct {
	URL         string
	Title       string
	Description string
	Image       string
	SiteName    string
}

// Fetcher 抓取页面元数据，结果缓存在容量与存活时间都有上限的 LRU 中
type Fetcher struct {
	client *resty.Client
	cache  *expirable.LRU[string, *Preview]
}

func NewFetcher(cfg config.PreviewConfig) *Fetcher {
	size := cfg.CacheSize
	if size <= 0 {
		size = 512
	}
	ttl := time.Duration(cfg.CacheTTL) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := resty.New().
		SetTransport(newTransport(timeout, cfg.AllowPrivateNetworks)).
		SetTimeout(timeout).
		SetResponseBodyLimit(maxBodyBytes).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")

	return &Fetcher{
		client: client,
		cache:  expirable.NewLRU[string, *Preview](size, nil, ttl),
	}
}

// Fetch 优先读取 Open Graph 标签，缺失时用正文提取补全标题与摘要
func (s *Fetcher) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	pageURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return nil, ErrUnsupportedURL
	}
	key := pageURL.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	resp, err := s.client.R().SetContext(ctx).Get(key)
	if err != nil {
		return nil, errors.Wrap(err, "fetch preview")
	}
	if resp.IsError() {
		return nil, errors.Errorf("fetch preview: status %d", resp.StatusCode())
	}
	p, err := parse(string(resp.Body()), pageURL)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, p)
	log.DebugContext(ctx, "link preview fetched", "url", key, "title", p.Title)
	return p, nil
}

func parse(html string, pageURL *url.URL) (*Preview, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(err, "parse preview html")
	}

	p := &Preview{
		URL:         pageURL.String(),
		Title:       firstNonEmpty(meta(doc, "og:title"), meta(doc, "twitter:title"), doc.Find("title").First().Text()),
		Description: firstNonEmpty(meta(doc, "og:description"), meta(doc, "twitter:description"), meta(doc, "description")),
		Image:       resolve(pageURL, firstNonEmpty(meta(doc, "og:image"), meta(doc, "twitter:image"))),
		SiteName:    meta(doc, "og:site_name"),
	}

	if p.Title == "" || p.Description == "" {
		if article, err := readability.FromReader(strings.NewReader(html), pageURL); err == nil {
			if p.Title == "" {
				p.Title = clean(article.Title)
			}
			if p.Description == "" {
				p.Description = truncate(clean(article.TextContent), maxDescriptionLen)
			}
		}
	}
	if p.SiteName == "" {
		p.SiteName = pageURL.Hostname()
	}
	if p.Title == "" && p.Description == "" {
		return nil, ErrNoMetadata
	}
	return p, nil
}

// meta 同时匹配 property 与 name 属性
func meta(doc *goquery.Document, key string) string {
	sel := doc.Find(`meta[property="` + key + `"], meta[name="` + key + `"]`).First()
	content, _ := sel.Attr("content")
	return clean(content)
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return u.String()
}

func clean(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = clean(v); v != "" {
			return v
		}
	}
	return ""
}
