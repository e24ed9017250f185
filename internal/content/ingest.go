// Package content turns markdown files with frontmatter into articles.
package content

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"animeportal/internal/locale"
	"animeportal/internal/markdown"
	"animeportal/internal/models"
	"animeportal/internal/routes"
	"animeportal/internal/taxonomy"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	minBodyRunes  = 10
	excerptRunes  = 160
	minSeedViews  = 100
	seedViewRange = 900
)

// ValidationError reports a record that cannot be accepted
type ValidationError struct {
	File   string `json:"file" yaml:"file"`
	Field  string `json:"field" yaml:"field"`
	Reason string `json:"reason" yaml:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Reason)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var idMonths = [...]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

// titleCase builds a fresh caser per call; casers carry state.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// Ingest parses one content file. folder is the directory the file was found
// in and decides the primary category; filename gives the article id.
func Ingest(raw, folder, filename string) (*models.Article, error) {
	article, _, err := ingest(raw, folder, filename)
	return article, err
}

func ingest(raw, folder, filename string) (*models.Article, bodyHalves, error) {
	invalid := func(field, reason string, args ...any) error {
		return &ValidationError{File: filename, Field: field, Reason: fmt.Sprintf(reason, args...)}
	}

	section, err := taxonomy.FolderSection(folder)
	if err != nil {
		return nil, bodyHalves{}, invalid("folder", "unknown content folder %q", folder)
	}

	block, body, err := SplitFrontmatter(raw)
	if err != nil {
		return nil, bodyHalves{}, fmt.Errorf("%s: %w", filename, err)
	}
	fields, err := parseFrontmatter(block)
	if err != nil {
		return nil, bodyHalves{}, fmt.Errorf("%s: %w", filename, err)
	}

	id, err := articleID(filename)
	if err != nil {
		return nil, bodyHalves{}, invalid("id", "%v", err)
	}

	title := localized(fields, "title")
	if title.IsZero() {
		return nil, bodyHalves{}, invalid("title", "missing title")
	}

	rawDate := scalar(fields["date"])
	if rawDate == "" {
		return nil, bodyHalves{}, invalid("date", "missing date")
	}
	published, err := ParseDate(rawDate)
	if err != nil {
		return nil, bodyHalves{}, invalid("date", "unparseable date %q", rawDate)
	}

	if utf8.RuneCountInString(strings.TrimSpace(body)) < minBodyRunes {
		return nil, bodyHalves{}, invalid("body", "body shorter than %d characters", minBodyRunes)
	}
	idBody, enBody, translated := SplitBody(body)
	halves := bodyHalves{id: idBody, en: enBody, translated: translated}

	subCategory := subCategoryOf(fields)
	if section == taxonomy.News && subCategory.IsZero() {
		return nil, bodyHalves{}, invalid("category", "news articles need a category")
	}

	excerpt := sides(fields, "excerpt")
	if excerpt.ID == "" {
		excerpt.ID = synthesizeExcerpt(idBody)
	}
	if excerpt.EN == "" {
		excerpt.EN = synthesizeExcerpt(enBody)
	}

	views, ok := intValue(fields["views"])
	if !ok {
		views = PlaceholderViews(id)
	}

	image := scalar(fields["thumbnail"])
	if image == "" {
		image = scalar(fields["image"])
	}

	article := &models.Article{
		ID:             id,
		Title:          title,
		Excerpt:        excerpt,
		Content:        locale.Text{ID: idBody, EN: enBody},
		Category:       folderCategory(section),
		SubCategory:    subCategory,
		Folder:         section,
		Author:         scalar(fields["author"]),
		Date:           FormatDate(published),
		PublishedAt:    published,
		ImageURL:       image,
		VideoURL:       scalar(fields["video"]),
		Gallery:        gallery(fields["gallery"]),
		Tags:           tags(fields),
		Views:          views,
		Translated:     translated,
		Source:         scalar(fields["source"]),
		SourceURL:      scalar(fields["source_url"]),
		ImageSource:    scalar(fields["image_source"]),
		ImageSourceURL: scalar(fields["image_source_url"]),
	}
	return article, halves, nil
}

// articleID derives the id from the file name. Names that are not URL-safe
// are slugified; names that cannot be made safe are rejected.
func articleID(filename string) (string, error) {
	base := filepath.Base(filename)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	if routes.IsSafeID(id) {
		return id, nil
	}
	normalized := taxonomy.Slugify(id)
	if !routes.IsSafeID(normalized) {
		return "", fmt.Errorf("file name %q does not yield a URL-safe id", base)
	}
	return normalized, nil
}

// ParseDate accepts ISO-8601 dates with or without time and zone. Values
// without a zone are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format %q", s)
}

// FormatDate renders the short display date in both languages:
// "15 Jan 2025" and "Jan 15, 2025".
func FormatDate(t time.Time) locale.Text {
	return locale.Text{
		ID: fmt.Sprintf("%d %s %d", t.Day(), idMonths[t.Month()-1], t.Year()),
		EN: t.Format("Jan 2, 2006"),
	}
}

// PlaceholderViews is the deterministic view count used until the live
// counter reports a value.
func PlaceholderViews(id string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int64(h.Sum32()%seedViewRange) + minSeedViews
}

func folderCategory(section taxonomy.Section) locale.Text {
	name := string(section)
	return locale.Text{ID: name, EN: titleCase(name)}
}

// subCategoryOf reads the frontmatter category. The Indonesian side is the
// lowercased label; the English side keeps the label as written and is
// title-cased when written all lowercase.
func subCategoryOf(fields map[string]any) locale.Text {
	var sub locale.Text
	switch v := fields["category"].(type) {
	case map[string]any:
		sub = textOf(v)
	default:
		label := scalar(v)
		en := label
		if label != "" && strings.ToLower(label) == label {
			en = titleCase(label)
		}
		sub = locale.Text{ID: strings.ToLower(label), EN: en}
	}
	if id := scalar(fields["category_id"]); id != "" {
		sub.ID = id
	}
	if en := scalar(fields["category_en"]); en != "" {
		sub.EN = en
	}
	return locale.NewText(sub.ID, sub.EN)
}

// localized reads key as a string or id/en mapping, then applies the
// key_id and key_en overrides. A missing side is filled from the other.
func localized(fields map[string]any, key string) locale.Text {
	text := sides(fields, key)
	return locale.NewText(text.ID, text.EN)
}

// sides is localized without filling missing sides.
func sides(fields map[string]any, key string) locale.Text {
	text := textOf(fields[key])
	if id := scalar(fields[key+"_id"]); id != "" {
		text.ID = id
	}
	if en := scalar(fields[key+"_en"]); en != "" {
		text.EN = en
	}
	return text
}

func textOf(v any) locale.Text {
	switch val := v.(type) {
	case map[string]any:
		return locale.Text{ID: scalar(val["id"]), EN: scalar(val["en"])}
	case map[string]string:
		return locale.Text{ID: strings.TrimSpace(val["id"]), EN: strings.TrimSpace(val["en"])}
	case locale.Text:
		return val
	}
	return locale.Plain(scalar(v))
}

func tags(fields map[string]any) []locale.Text {
	var out []locale.Text
	for _, key := range []string{"topics", "tags"} {
		for _, item := range listOf(fields[key]) {
			tag := textOf(item)
			tag = locale.NewText(tag.ID, tag.EN)
			if tag.IsZero() {
				continue
			}
			duplicate := false
			for _, seen := range out {
				if seen.EqualFold(tag.ID) || seen.EqualFold(tag.EN) {
					duplicate = true
					break
				}
			}
			if !duplicate {
				out = append(out, tag)
			}
		}
	}
	return out
}

func gallery(v any) []models.GalleryItem {
	var out []models.GalleryItem
	for _, item := range listOf(v) {
		switch entry := item.(type) {
		case map[string]any:
			g := models.GalleryItem{
				URL:      scalar(entry["image"]),
				VideoURL: scalar(entry["video"]),
				Source:   scalar(entry["source"]),
			}
			if g.URL == "" {
				g.URL = scalar(entry["url"])
			}
			g.Caption = localized(entry, "title")
			if g.Caption.IsZero() {
				g.Caption = localized(entry, "caption")
			}
			if g.URL != "" || g.VideoURL != "" {
				out = append(out, g)
			}
		case string:
			if entry = strings.TrimSpace(entry); entry != "" {
				out = append(out, models.GalleryItem{URL: entry})
			}
		}
	}
	return out
}

func listOf(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case string:
		var out []any
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

func scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

func intValue(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), val >= 0
	case int64:
		return val, val >= 0
	case float64:
		return int64(val), val >= 0
	case string:
		n, err := strconv.ParseInt(strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, val), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func synthesizeExcerpt(body string) string {
	excerpt, err := markdown.Excerpt(body, excerptRunes)
	if err != nil {
		return markdown.Truncate(strings.Join(strings.Fields(body), " "), excerptRunes)
	}
	return excerpt
}
