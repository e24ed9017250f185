package content

import (
	"bytes"
	"fmt"
	"time"

	"animeportal/internal/locale"
	"animeportal/internal/models"

	"gopkg.in/yaml.v3"
)

type encodedGallery struct {
	Image   string `yaml:"image,omitempty"`
	Video   string `yaml:"video,omitempty"`
	TitleID string `yaml:"title_id,omitempty"`
	TitleEN string `yaml:"title_en,omitempty"`
	Source  string `yaml:"source,omitempty"`
}

type encodedFrontmatter struct {
	TitleID        string           `yaml:"title_id"`
	TitleEN        string           `yaml:"title_en"`
	ExcerptID      string           `yaml:"excerpt_id,omitempty"`
	ExcerptEN      string           `yaml:"excerpt_en,omitempty"`
	Author         string           `yaml:"author,omitempty"`
	Date           string           `yaml:"date"`
	Category       string           `yaml:"category,omitempty"`
	CategoryID     string           `yaml:"category_id,omitempty"`
	CategoryEN     string           `yaml:"category_en,omitempty"`
	Thumbnail      string           `yaml:"thumbnail,omitempty"`
	Video          string           `yaml:"video,omitempty"`
	Topics         []any            `yaml:"topics,omitempty"`
	Gallery        []encodedGallery `yaml:"gallery,omitempty"`
	Source         string           `yaml:"source,omitempty"`
	SourceURL      string           `yaml:"source_url,omitempty"`
	ImageSource    string           `yaml:"image_source,omitempty"`
	ImageSourceURL string           `yaml:"image_source_url,omitempty"`
	Views          int64            `yaml:"views,omitempty"`
}

// Encode writes an article back into the content file format. Ingesting the
// output from the same folder yields the same title, date and categories.
func Encode(a *models.Article) ([]byte, error) {
	fm := encodedFrontmatter{
		TitleID:        a.Title.ID,
		TitleEN:        a.Title.EN,
		ExcerptID:      a.Excerpt.ID,
		ExcerptEN:      a.Excerpt.EN,
		Author:         a.Author,
		Date:           encodeDate(a.PublishedAt),
		Category:       a.SubCategory.EN,
		CategoryID:     a.SubCategory.ID,
		CategoryEN:     a.SubCategory.EN,
		Thumbnail:      a.ImageURL,
		Video:          a.VideoURL,
		Source:         a.Source,
		SourceURL:      a.SourceURL,
		ImageSource:    a.ImageSource,
		ImageSourceURL: a.ImageSourceURL,
		Views:          a.Views,
	}
	for _, tag := range a.Tags {
		fm.Topics = append(fm.Topics, encodeText(tag))
	}
	for _, g := range a.Gallery {
		fm.Gallery = append(fm.Gallery, encodedGallery{
			Image:   g.URL,
			Video:   g.VideoURL,
			TitleID: g.Caption.ID,
			TitleEN: g.Caption.EN,
			Source:  g.Source,
		})
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	buf.Write(header)
	buf.WriteString(delimiter + "\n")
	buf.WriteString(a.Content.ID)
	if a.Translated {
		buf.WriteString("\n\n" + delimiter + "\n\n")
		buf.WriteString(a.Content.EN)
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func encodeDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

func encodeText(t locale.Text) any {
	if t.ID == t.EN {
		return t.ID
	}
	return map[string]string{"id": t.ID, "en": t.EN}
}
