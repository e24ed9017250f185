// Package taxonomy holds the static table of sections, verticals and static
// pages together with their aliases, and resolves free-text labels against it.
package taxonomy

import (
	"fmt"
	"strings"
	"unicode"

	"animeportal/internal/locale"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Section is one of the closed top-level buckets.
type Section string

const (
	Home    Section = "home"
	News    Section = "news"
	Opinion Section = "opinion"
	Reviews Section = "reviews"
)

// Path returns the canonical path of the section.
func (s Section) Path() string {
	if s == Home || s == "" {
		return "/"
	}
	return "/" + string(s)
}

// Label returns the bilingual display name.
func (s Section) Label() locale.Text {
	for _, e := range sections {
		if e.Section == s {
			return e.Name
		}
	}
	return locale.Plain(string(s))
}

// Kind tells which table a label resolved against.
type Kind string

const (
	KindSection  Kind = "section"
	KindVertical Kind = "vertical"
	KindStatic   Kind = "static"
	KindCategory Kind = "category"
)

// Entry is a canonical bucket with its aliases (lowercase).
type Entry struct {
	Name    locale.Text `json:"name"`
	Slug    string      `json:"slug"`
	Path    string      `json:"path"`
	Section Section     `json:"section,omitempty"`
	Aliases []string    `json:"aliases"`
}

var sections = []Entry{
	{Name: locale.Text{ID: "Beranda", EN: "Home"}, Slug: "home", Path: "/", Section: Home, Aliases: []string{"home", "beranda"}},
	{Name: locale.Text{ID: "Berita", EN: "News"}, Slug: "news", Path: "/news", Section: News, Aliases: []string{"news", "berita"}},
	{Name: locale.Text{ID: "Opini", EN: "Opinion"}, Slug: "opinion", Path: "/opinion", Section: Opinion, Aliases: []string{"opinion", "opini"}},
	{Name: locale.Text{ID: "Ulasan", EN: "Reviews"}, Slug: "reviews", Path: "/reviews", Section: Reviews, Aliases: []string{"reviews", "review", "ulasan"}},
}

var verticals = []Entry{
	{Name: locale.Text{ID: "Anime", EN: "Anime"}, Slug: "anime", Path: "/news/anime", Section: News, Aliases: []string{"anime", "animes"}},
	{Name: locale.Text{ID: "Komik", EN: "Comics"}, Slug: "comics", Path: "/news/comics", Section: News, Aliases: []string{"comics", "comic", "komik"}},
	{Name: locale.Text{ID: "Film", EN: "Movies"}, Slug: "movies", Path: "/news/movies", Section: News, Aliases: []string{"movies", "movie", "film", "films"}},
	{Name: locale.Text{ID: "Game", EN: "Games"}, Slug: "games", Path: "/news/games", Section: News, Aliases: []string{"games", "game"}},
}

var staticPages = []Entry{
	{Name: locale.Text{ID: "Tentang Kami", EN: "About Us"}, Slug: "about", Path: "/about", Aliases: []string{"about", "about us", "tentang", "tentang kami"}},
	{Name: locale.Text{ID: "Hubungi Kami", EN: "Contact Us"}, Slug: "contact", Path: "/contact", Aliases: []string{"contact", "contact us", "kontak", "hubungi kami"}},
	{Name: locale.Text{ID: "Kebijakan Privasi", EN: "Privacy Policy"}, Slug: "privacy", Path: "/privacy", Aliases: []string{"privacy", "privacy policy", "privasi", "kebijakan privasi"}},
	{Name: locale.Text{ID: "Syarat dan Ketentuan", EN: "Terms of Service"}, Slug: "terms", Path: "/terms", Aliases: []string{"terms", "terms of service", "terms and conditions", "syarat dan ketentuan", "ketentuan layanan"}},
	{Name: locale.Text{ID: "Penafian", EN: "Disclaimer"}, Slug: "disclaimer", Path: "/disclaimer", Aliases: []string{"disclaimer", "penafian"}},
	{Name: locale.Text{ID: "DMCA", EN: "DMCA"}, Slug: "dmca", Path: "/dmca", Aliases: []string{"dmca"}},
	{Name: locale.Text{ID: "Tanya Jawab", EN: "FAQ"}, Slug: "faq", Path: "/faq", Aliases: []string{"faq", "tanya jawab", "pertanyaan umum"}},
}

// Sections returns a copy of the section table.
func Sections() []Entry { return cloneEntries(sections) }

// Verticals returns a copy of the vertical table.
func Verticals() []Entry { return cloneEntries(verticals) }

// StaticPages returns a copy of the static page table.
func StaticPages() []Entry { return cloneEntries(staticPages) }

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		e.Aliases = append([]string(nil), e.Aliases...)
		out[i] = e
	}
	return out
}

func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

func lookup(table []Entry, label string) (Entry, bool) {
	key := normalizeLabel(label)
	if key == "" {
		return Entry{}, false
	}
	for _, e := range table {
		for _, alias := range e.Aliases {
			if alias == key {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// CanonicalSection resolves a label against the top-level section aliases.
func CanonicalSection(label string) (Section, bool) {
	e, ok := lookup(sections, label)
	if !ok {
		return "", false
	}
	return e.Section, true
}

// CanonicalVertical resolves a label against the vertical aliases and returns
// the vertical slug.
func CanonicalVertical(label string) (string, bool) {
	e, ok := lookup(verticals, label)
	if !ok {
		return "", false
	}
	return e.Slug, true
}

// StaticPage resolves a label against the static-page aliases and returns
// the page path.
func StaticPage(label string) (string, bool) {
	e, ok := lookup(staticPages, label)
	if !ok {
		return "", false
	}
	return e.Path, true
}

// StaticPageBySlug finds a static page by its path segment.
func StaticPageBySlug(slug string) (Entry, bool) {
	for _, e := range staticPages {
		if e.Slug == slug {
			return e, true
		}
	}
	return Entry{}, false
}

// Canonical is the outcome of resolving a free-text label.
type Canonical struct {
	Kind    Kind    `json:"kind"`
	Section Section `json:"section,omitempty"`
	Slug    string  `json:"slug"`
	Path    string  `json:"path"`
}

// Canonicalize resolves label. Section aliases always win; vertical aliases are
// consulted only for header navigation labels; then static pages. Anything
// else is a generic category and is slugified, so every label resolves.
func Canonicalize(label string, headerNav bool) Canonical {
	if e, ok := lookup(sections, label); ok {
		return Canonical{Kind: KindSection, Section: e.Section, Slug: e.Slug, Path: e.Path}
	}
	if headerNav {
		if e, ok := lookup(verticals, label); ok {
			return Canonical{Kind: KindVertical, Section: News, Slug: e.Slug, Path: e.Path}
		}
	}
	if e, ok := lookup(staticPages, label); ok {
		return Canonical{Kind: KindStatic, Slug: e.Slug, Path: e.Path}
	}
	slug := Slugify(label)
	if slug == "" {
		return Canonical{Kind: KindSection, Section: Home, Slug: "home", Path: "/"}
	}
	return Canonical{Kind: KindCategory, Slug: slug, Path: "/category/" + slug}
}

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases and trims label, folds diacritics, turns whitespace and
// underscores into dashes and drops punctuation. Letters outside ASCII are
// kept, so a slug is not necessarily an ASCII identifier.
func Slugify(label string) string {
	folded, _, err := transform.String(foldDiacritics, label)
	if err != nil {
		folded = label
	}
	folded = strings.ToLower(strings.TrimSpace(folded))

	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.':
			b.WriteRune(r)
			dash = false
		case r == '-' || r == '_' || unicode.IsSpace(r):
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.Trim(b.String(), "-.")
}

// SectionOf classifies an article's primary category. The English form is
// checked first and the Indonesian one is used when it is empty. Anything
// not recognized as opinion or reviews is news.
func SectionOf(category locale.Text) Section {
	label := strings.ToUpper(strings.TrimSpace(category.EN))
	if label == "" {
		label = strings.ToUpper(strings.TrimSpace(category.ID))
	}
	switch label {
	case "OPINION", "OPINI":
		return Opinion
	case "REVIEWS", "REVIEW", "ULASAN":
		return Reviews
	}
	return News
}

// IsNewsLabel reports whether a category is literally labeled News/Berita.
func IsNewsLabel(category locale.Text) bool {
	return category.EqualFold("news") || category.EqualFold("berita")
}

// FolderSection maps a content folder name to its primary section.
func FolderSection(folder string) (Section, error) {
	switch strings.ToLower(strings.TrimSpace(folder)) {
	case "news":
		return News, nil
	case "opinion":
		return Opinion, nil
	case "reviews":
		return Reviews, nil
	}
	return "", fmt.Errorf("unknown content folder %q", folder)
}

// VerticalMatches reports whether a sub-category label belongs to a
// vertical. Both sides are resolved through the alias table first; labels
// outside it are compared after singular/plural folding.
func VerticalMatches(subCategory, vertical string) bool {
	if strings.TrimSpace(subCategory) == "" || strings.TrimSpace(vertical) == "" {
		return false
	}
	a, okA := CanonicalVertical(subCategory)
	b, okB := CanonicalVertical(vertical)
	if okA && okB {
		return a == b
	}
	if okA != okB {
		return false
	}
	return singular(Slugify(subCategory)) == singular(Slugify(vertical))
}

func singular(s string) string {
	switch {
	case strings.HasSuffix(s, "ies") && len(s) > 3:
		return strings.TrimSuffix(s, "ies") + "y"
	case strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss"):
		return strings.TrimSuffix(s, "s")
	}
	return s
}

// ValidateAliases checks that no alias maps to two canonical buckets.
func ValidateAliases() error {
	seen := make(map[string]string)
	for _, table := range [][]Entry{sections, verticals, staticPages} {
		for _, e := range table {
			for _, alias := range e.Aliases {
				if alias != normalizeLabel(alias) {
					return fmt.Errorf("alias %q of %q is not normalized", alias, e.Slug)
				}
				if owner, dup := seen[alias]; dup && owner != e.Slug {
					return fmt.Errorf("alias %q maps to both %q and %q", alias, owner, e.Slug)
				}
				seen[alias] = e.Slug
			}
		}
	}
	return nil
}
