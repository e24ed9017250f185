// Package locale resolves bilingual (Indonesian/English) values.
package locale

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Language is a site language code.
type Language string

const (
	Indonesian Language = "id"
	English    Language = "en"
)

// Default is the language used when nothing else is requested.
const Default = Indonesian

var matcher = language.NewMatcher([]language.Tag{
	language.Indonesian,
	language.English,
})

// ParseLanguage maps a language code ("en", "en-US", "id", "in") to a site
// language. Unknown codes fall back to the default language.
func ParseLanguage(s string) Language {
	s = strings.TrimSpace(s)
	if s == "" {
		return Default
	}
	tag, err := language.Parse(s)
	if err != nil {
		return Default
	}
	base, _ := tag.Base()
	switch base.String() {
	case "en":
		return English
	case "id", "in", "ms":
		return Indonesian
	}
	return Default
}

// Match picks the best site language for an Accept-Language header value.
func Match(acceptLanguage string, fallback Language) Language {
	if strings.TrimSpace(acceptLanguage) == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	if idx == 1 {
		return English
	}
	return Indonesian
}

// Valid reports whether l is one of the site languages.
func (l Language) Valid() bool {
	return l == Indonesian || l == English
}

// Text is a value carrying both an Indonesian and an English rendering.
type Text struct {
	ID string `json:"id" yaml:"id"`
	EN string `json:"en" yaml:"en"`
}

// NewText builds a Text where a missing side is filled from the other one.
func NewText(id, en string) Text {
	id = strings.TrimSpace(id)
	en = strings.TrimSpace(en)
	if id == "" {
		id = en
	}
	if en == "" {
		en = id
	}
	return Text{ID: id, EN: en}
}

// Plain wraps a legacy plain string into a Text with both sides equal.
func Plain(s string) Text {
	return NewText(s, s)
}

// Get returns the value for lang, falling back to Indonesian, then English,
// then the empty string.
func (t Text) Get(lang Language) string {
	switch lang {
	case English:
		if t.EN != "" {
			return t.EN
		}
	case Indonesian:
		if t.ID != "" {
			return t.ID
		}
	}
	if t.ID != "" {
		return t.ID
	}
	return t.EN
}

// IsZero reports whether both sides are empty.
func (t Text) IsZero() bool {
	return t.ID == "" && t.EN == ""
}

// EqualFold reports whether s matches either side, ignoring case and
// surrounding whitespace.
func (t Text) EqualFold(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(t.ID), s) || strings.EqualFold(strings.TrimSpace(t.EN), s)
}

// ContainsFold reports whether either side contains sub, ignoring case.
func (t Text) ContainsFold(sub string) bool {
	sub = strings.ToLower(sub)
	return strings.Contains(strings.ToLower(t.ID), sub) || strings.Contains(strings.ToLower(t.EN), sub)
}

func (t Text) String() string {
	return t.Get(Default)
}

// UnmarshalJSON accepts an {"id","en"} object, a plain string or null.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = Text{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode localized string: %w", err)
		}
		*t = Plain(s)
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode localized object: %w", err)
	}
	*t = fromMap(raw)
	return nil
}

// UnmarshalYAML accepts a mapping with id/en keys or a scalar.
func (t *Text) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*t = Text{}
			return nil
		}
		*t = Plain(node.Value)
		return nil
	case yaml.MappingNode:
		var raw map[string]any
		if err := node.Decode(&raw); err != nil {
			return fmt.Errorf("decode localized mapping: %w", err)
		}
		*t = fromMap(raw)
		return nil
	}
	return fmt.Errorf("line %d: localized value must be a string or id/en mapping", node.Line)
}

func fromMap(m map[string]any) Text {
	str := func(k string) string {
		if s, ok := m[k].(string); ok {
			return s
		}
		return ""
	}
	return NewText(str("id"), str("en"))
}

// Resolve returns the display string of v for lang. It accepts every shape
// found in legacy data (nil, plain strings, Text values and loosely typed
// maps) and never fails: unknown shapes resolve to "".
func Resolve(v any, lang Language) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case Text:
		return val.Get(lang)
	case *Text:
		if val == nil {
			return ""
		}
		return val.Get(lang)
	case map[string]string:
		return Text{ID: val["id"], EN: val["en"]}.Get(lang)
	case map[string]any:
		str := func(k string) string {
			s, _ := val[k].(string)
			return s
		}
		return Text{ID: str("id"), EN: str("en")}.Get(lang)
	}
	return ""
}
