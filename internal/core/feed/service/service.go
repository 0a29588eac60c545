package feedapp

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	postEntity "newsdesk/internal/core/post"
	feedPort "newsdesk/internal/ports/feed"
	postPort "newsdesk/internal/ports/post"

	"go.uber.org/zap"
)

const (
	DefaultItemLimit = 50
	DefaultCacheTTL  = 10 * time.Minute
)

type Config struct {
	Title       string
	Link        string
	Description string
	CacheTTL    time.Duration
	ItemLimit   int
}

// FeedService ساخت فید RSS از پست‌های منتشر شده و نگهداری آن در cache
type FeedService struct {
	PostRepository postPort.PostRepository
	Cache          feedPort.FeedCache
	Logger         *zap.Logger
	cfg            Config
}

func NewFeedService(postRepo postPort.PostRepository, cache feedPort.FeedCache, cfg Config, logger *zap.Logger) *FeedService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.ItemLimit <= 0 {
		cfg.ItemLimit = DefaultItemLimit
	}
	return &FeedService{
		PostRepository: postRepo,
		Cache:          cache,
		Logger:         logger,
		cfg:            cfg,
	}
}

// RSS returns the rendered feed, from cache when possible.
func (s *FeedService) RSS(ctx context.Context) ([]byte, error) {
	if s.Cache != nil {
		cached, err := s.Cache.Get(ctx)
		if err != nil {
			s.Logger.Warn("⚠️ Feed cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	posts, err := s.PostRepository.ListPublished(ctx, s.cfg.ItemLimit)
	if err != nil {
		return nil, fmt.Errorf("load published posts: %w", err)
	}
	body, err := s.render(posts)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, body, s.cfg.CacheTTL); err != nil {
			s.Logger.Warn("⚠️ Feed cache write failed", zap.Error(err))
		}
	}
	return body, nil
}

func (s *FeedService) Invalidate(ctx context.Context) error {
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Invalidate(ctx)
}

// InvalidateHook adapts Invalidate to the zero-argument hook used by the
// auto-publish worker and the post service.
func (s *FeedService) InvalidateHook() func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Invalidate(ctx); err != nil {
			s.Logger.Error("❌ Feed cache invalidation failed", zap.Error(err))
		}
	}
}

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	GUID        string        `xml:"guid"`
	Description string        `xml:"description"`
	PubDate     string        `xml:"pubDate,omitempty"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
}

type rssEnclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

func (s *FeedService) render(posts []*postEntity.Post) ([]byte, error) {
	link := strings.TrimRight(s.cfg.Link, "/")
	ch := rssChannel{
		Title:       s.cfg.Title,
		Link:        link,
		Description: s.cfg.Description,
		Items:       make([]rssItem, 0, len(posts)),
	}

	for i, p := range posts {
		item := rssItem{
			Title:       p.Title,
			Link:        link + "/posts/" + p.ID.String(),
			GUID:        p.ID.String(),
			Description: p.Text,
		}
		if p.PubDate != nil {
			item.PubDate = p.PubDate.UTC().Format(time.RFC1123Z)
			if i == 0 {
				ch.LastBuildDate = item.PubDate
			}
		}
		if p.CoverImage != "" {
			item.Enclosure = &rssEnclosure{URL: absoluteURL(link, p.CoverImage), Type: imageType(p.CoverImage)}
		}
		ch.Items = append(ch.Items, item)
	}

	out, err := xml.MarshalIndent(rss{Version: "2.0", Channel: ch}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render rss: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func absoluteURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

func imageType(path string) string {
	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ".png"):
		return "image/png"
	case strings.HasSuffix(p, ".webp"):
		return "image/webp"
	case strings.HasSuffix(p, ".gif"):
		return "image/gif"
	}
	return "image/jpeg"
}
