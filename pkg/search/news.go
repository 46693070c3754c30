package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// Story is one news item in the home feed.
type Story struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at,omitzero"`
}

// Section is one category preview on the home feed.
type Section struct {
	Category types.Category `json:"category"`
	Stories  []Story        `json:"stories"`
}

// HomeFeed is the composed landing page.
type HomeFeed struct {
	TopStories  []Story   `json:"top_stories"`
	Sections    []Section `json:"sections,omitempty"`
	ForYou      []Story   `json:"for_you,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

const (
	topStoryLimit   = 12
	sectionLimit    = 5
	forYouLimit     = 8
	forYouTopics    = 3
	feedFetchBudget = 8 * time.Second
)

// NewsService composes RSS sources and per-category meta-search calls
// into a HomeFeed. Read history feeds the for-you block.
type NewsService struct {
	coordinator Coordinator
	parser      *gofeed.Parser
	feedURLs    []string
	logger      *slog.Logger

	mu      sync.Mutex
	history map[string]int
}

// NewNewsService creates a news service over the coordinator and the
// configured RSS source URLs.
func NewNewsService(coordinator Coordinator, feedURLs []string) *NewsService {
	return &NewsService{
		coordinator: coordinator,
		parser:      gofeed.NewParser(),
		feedURLs:    feedURLs,
		logger:      slog.Default().With("component", "news"),
		history:     make(map[string]int),
	}
}

// RecordRead notes that the user opened a story about topic; for-you
// ranking uses the counts.
func (n *NewsService) RecordRead(topic string) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return
	}
	n.mu.Lock()
	n.history[topic]++
	n.mu.Unlock()
}

// HomeFeed builds the landing page: top stories from the RSS sources,
// one preview section per category, and a for-you block driven by read
// history. Every part degrades independently; a feed or category that
// fails is simply absent.
func (n *NewsService) HomeFeed(ctx context.Context, categories []types.Category) (*HomeFeed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	feed := &HomeFeed{GeneratedAt: time.Now()}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stories := n.fetchTopStories(gctx)
		mu.Lock()
		feed.TopStories = stories
		mu.Unlock()
		return nil
	})

	for _, cat := range categories {
		g.Go(func() error {
			section, ok := n.fetchSection(gctx, cat)
			if !ok {
				return nil
			}
			mu.Lock()
			feed.Sections = append(feed.Sections, section)
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		stories := n.fetchForYou(gctx)
		mu.Lock()
		feed.ForYou = stories
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(feed.Sections, func(i, j int) bool {
		return feed.Sections[i].Category < feed.Sections[j].Category
	})
	return feed, nil
}

// fetchTopStories pulls every configured RSS source and merges the
// freshest items.
func (n *NewsService) fetchTopStories(ctx context.Context) []Story {
	ctx, cancel := context.WithTimeout(ctx, feedFetchBudget)
	defer cancel()

	var (
		mu      sync.Mutex
		stories []Story
	)
	var wg sync.WaitGroup
	for _, u := range n.feedURLs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parsed, err := n.parser.ParseURLWithContext(u, ctx)
			if err != nil {
				n.logger.Warn("feed fetch failed", "url", u, "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, item := range parsed.Items {
				s := Story{
					Title:   item.Title,
					URL:     item.Link,
					Source:  parsed.Title,
					Summary: item.Description,
				}
				if item.PublishedParsed != nil {
					s.PublishedAt = *item.PublishedParsed
				}
				stories = append(stories, s)
			}
		}()
	}
	wg.Wait()

	sort.Slice(stories, func(i, j int) bool {
		return stories[i].PublishedAt.After(stories[j].PublishedAt)
	})
	if len(stories) > topStoryLimit {
		stories = stories[:topStoryLimit]
	}
	return stories
}

// fetchSection previews one category via meta-search.
func (n *NewsService) fetchSection(ctx context.Context, cat types.Category) (Section, bool) {
	q, err := types.NewQuery("top "+string(cat)+" today", types.QueryOptions{
		Category: cat,
		PerPage:  sectionLimit,
	})
	if err != nil {
		return Section{}, false
	}

	page, err := n.coordinator.Search(ctx, q)
	if err != nil || len(page.Results) == 0 {
		if err != nil {
			n.logger.Warn("section fetch failed", "category", cat, "error", err)
		}
		return Section{}, false
	}
	return Section{Category: cat, Stories: hitsToStories(page.Results, sectionLimit)}, true
}

// fetchForYou searches the reader's most-read topics.
func (n *NewsService) fetchForYou(ctx context.Context) []Story {
	topics := n.topTopics(forYouTopics)
	if len(topics) == 0 {
		return nil
	}

	var out []Story
	for _, topic := range topics {
		q, err := types.NewQuery(topic, types.QueryOptions{
			Category: types.CategoryNews,
			PerPage:  forYouLimit,
		})
		if err != nil {
			continue
		}
		page, err := n.coordinator.Search(ctx, q)
		if err != nil {
			continue
		}
		out = append(out, hitsToStories(page.Results, forYouLimit-len(out))...)
		if len(out) >= forYouLimit {
			break
		}
	}
	return out
}

func (n *NewsService) topTopics(limit int) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	type entry struct {
		topic string
		count int
	}
	ranked := make([]entry, 0, len(n.history))
	for t, c := range n.history {
		ranked = append(ranked, entry{t, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].topic < ranked[j].topic
	})

	out := make([]string, 0, limit)
	for _, e := range ranked {
		out = append(out, e.topic)
		if len(out) == limit {
			break
		}
	}
	return out
}

func hitsToStories(hits []types.Hit, limit int) []Story {
	if limit <= 0 {
		return nil
	}
	out := make([]Story, 0, limit)
	for _, h := range hits {
		out = append(out, Story{
			Title:   h.Title,
			URL:     h.URL,
			Source:  h.Engine,
			Summary: h.Snippet,
		})
		if len(out) == limit {
			break
		}
	}
	return out
}
