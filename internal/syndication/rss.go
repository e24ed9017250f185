// Package syndication renders the article feed as RSS 2.0.
package syndication

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"animeportal/internal/locale"
	"animeportal/internal/models"
	"animeportal/internal/routes"
)

const DefaultItems = 20

type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Media   string   `xml:"xmlns:media,attr"`
	Channel Channel  `xml:"channel"`
}

type Channel struct {
	Title         string `xml:"title"`
	Link          string `xml:"link"`
	Description   string `xml:"description"`
	Language      string `xml:"language"`
	LastBuildDate string `xml:"lastBuildDate,omitempty"`
	Items         []Item `xml:"item"`
}

type Item struct {
	Title       string     `xml:"title"`
	Link        string     `xml:"link"`
	GUID        GUID       `xml:"guid"`
	Description string     `xml:"description"`
	Author      string     `xml:"author,omitempty"`
	Categories  []string   `xml:"category"`
	PubDate     string     `xml:"pubDate"`
	Enclosure   *Enclosure `xml:"enclosure,omitempty"`
	Thumbnail   *Thumbnail `xml:"media:thumbnail,omitempty"`
}

type GUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

type Enclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int    `xml:"length,attr"`
}

type Thumbnail struct {
	URL string `xml:"url,attr"`
}

// Options describes the channel.
type Options struct {
	Title       string
	BaseURL     string
	Description locale.Text
	Language    locale.Language
	MaxItems    int
}

// Build turns articles, already in feed order, into an RSS document in the
// requested language. Links are absolute canonical article paths.
func Build(articles []models.Article, opts Options) *RSS {
	lang := opts.Language
	if !lang.Valid() {
		lang = locale.Default
	}
	max := opts.MaxItems
	if max <= 0 {
		max = DefaultItems
	}
	base := strings.TrimRight(opts.BaseURL, "/")

	channel := Channel{
		Title:       opts.Title,
		Link:        base + "/",
		Description: opts.Description.Get(lang),
		Language:    string(lang),
	}

	for i := range articles {
		if len(channel.Items) == max {
			break
		}
		a := &articles[i]
		link := base + routes.ArticleLink(a)
		item := Item{
			Title:       a.Title.Get(lang),
			Link:        link,
			GUID:        GUID{Value: link, IsPermaLink: true},
			Description: a.Excerpt.Get(lang),
			Author:      a.Author,
			PubDate:     a.PublishedAt.UTC().Format(time.RFC1123Z),
		}
		for _, c := range []locale.Text{a.Category, a.SubCategory} {
			if s := c.Get(lang); s != "" {
				item.Categories = append(item.Categories, s)
			}
		}
		for _, t := range a.Tags {
			item.Categories = append(item.Categories, t.Get(lang))
		}
		if a.ImageURL != "" {
			img := absolute(base, a.ImageURL)
			item.Enclosure = &Enclosure{URL: img, Type: imageType(img)}
			item.Thumbnail = &Thumbnail{URL: img}
		}
		channel.Items = append(channel.Items, item)
		if channel.LastBuildDate == "" {
			channel.LastBuildDate = item.PubDate
		}
	}

	return &RSS{Version: "2.0", Media: "http://search.yahoo.com/mrss/", Channel: channel}
}

// Marshal renders the document with the XML declaration.
func Marshal(doc *RSS) ([]byte, error) {
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode rss: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func absolute(base, u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "//") {
		return u
	}
	return base + "/" + strings.TrimLeft(u, "/")
}

func imageType(u string) string {
	lower := strings.ToLower(u)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	}
	return "image/jpeg"
}
