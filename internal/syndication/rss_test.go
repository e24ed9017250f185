package syndication

import (
	"strings"
	"testing"
	"time"

	"animeportal/internal/locale"
	"animeportal/internal/models"
	"animeportal/internal/taxonomy"

	"github.com/mmcdole/gofeed"
)

func sample() []models.Article {
	return []models.Article{
		{
			ID:          "frieren-s2",
			Title:       locale.NewText("Frieren Musim 2 Diumumkan", "Frieren Season 2 Announced"),
			Excerpt:     locale.NewText("Kabar gembira.", "Good news."),
			Category:    locale.NewText("news", "News"),
			SubCategory: locale.NewText("anime", "Anime"),
			Folder:      taxonomy.News,
			Author:      "Rina",
			PublishedAt: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
			ImageURL:    "/images/frieren.png",
			Tags:        []locale.Text{locale.Plain("Frieren")},
		},
		{
			ID:          "take",
			Title:       locale.NewText("Opini", "Opinion piece"),
			Category:    locale.NewText("opinion", "Opinion"),
			Folder:      taxonomy.Opinion,
			PublishedAt: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		},
	}
}

func parse(t *testing.T, articles []models.Article, opts Options) *gofeed.Feed {
	t.Helper()
	out, err := Marshal(Build(articles, opts))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	feed, err := gofeed.NewParser().ParseString(string(out))
	if err != nil {
		t.Fatalf("Expected valid RSS, parse error = %v\n%s", err, out)
	}
	return feed
}

func TestBuild_ParsesAsRSS(t *testing.T) {
	feed := parse(t, sample(), Options{
		Title:       "AnimePortal",
		BaseURL:     "https://example.com/",
		Description: locale.NewText("Berita anime", "Anime news"),
		Language:    locale.English,
	})

	if feed.FeedType != "rss" || feed.FeedVersion != "2.0" {
		t.Errorf("Expected RSS 2.0, got %s %s", feed.FeedType, feed.FeedVersion)
	}
	if feed.Title != "AnimePortal" || feed.Description != "Anime news" || feed.Language != "en" {
		t.Errorf("Unexpected channel %q %q %q", feed.Title, feed.Description, feed.Language)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(feed.Items))
	}

	first := feed.Items[0]
	if first.Title != "Frieren Season 2 Announced" {
		t.Errorf("Expected English title, got %q", first.Title)
	}
	if first.Link != "https://example.com/news/anime/frieren-s2" {
		t.Errorf("Expected canonical link, got %q", first.Link)
	}
	if first.PublishedParsed == nil || !first.PublishedParsed.Equal(time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected publish date to round trip, got %v", first.PublishedParsed)
	}
	if len(first.Enclosures) != 1 || first.Enclosures[0].URL != "https://example.com/images/frieren.png" || first.Enclosures[0].Type != "image/png" {
		t.Errorf("Expected absolute png enclosure, got %+v", first.Enclosures)
	}
	if !strings.Contains(strings.Join(first.Categories, ","), "Frieren") {
		t.Errorf("Expected tag category, got %v", first.Categories)
	}

	if feed.Items[1].Link != "https://example.com/opinion/take" {
		t.Errorf("Expected opinion link, got %q", feed.Items[1].Link)
	}
}

func TestBuild_Language(t *testing.T) {
	feed := parse(t, sample(), Options{Title: "AnimePortal", BaseURL: "https://example.com", Language: locale.Indonesian})
	if feed.Items[0].Title != "Frieren Musim 2 Diumumkan" {
		t.Errorf("Expected Indonesian title, got %q", feed.Items[0].Title)
	}

	feed = parse(t, sample(), Options{Title: "AnimePortal", BaseURL: "https://example.com", Language: "fr"})
	if feed.Language != string(locale.Default) {
		t.Errorf("Expected default language for invalid input, got %q", feed.Language)
	}
}

func TestBuild_MaxItems(t *testing.T) {
	doc := Build(sample(), Options{BaseURL: "https://example.com", MaxItems: 1})
	if len(doc.Channel.Items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(doc.Channel.Items))
	}
	if doc.Channel.LastBuildDate != doc.Channel.Items[0].PubDate {
		t.Error("Expected lastBuildDate from the newest item")
	}
}

func TestImageType(t *testing.T) {
	tests := map[string]string{
		"a.png":        "image/png",
		"a.WEBP?x=1":   "image/webp",
		"a.gif#frag":   "image/gif",
		"a.jpg":        "image/jpeg",
		"no-extension": "image/jpeg",
	}
	for in, want := range tests {
		if got := imageType(in); got != want {
			t.Errorf("imageType(%q): Expected %s, got %s", in, want, got)
		}
	}
}
