package content

import (
	"strings"
	"unicode/utf8"

	"animeportal/internal/locale"

	"github.com/pemistahl/lingua-go"
)

// minDetectRunes is the shortest text the detector is asked about; shorter
// snippets give unreliable answers.
const minDetectRunes = 40

// Detector guesses the language of article bodies
type Detector struct {
	detector lingua.LanguageDetector
}

// NewDetector builds a detector restricted to Indonesian, English and
// Japanese.
func NewDetector() *Detector {
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.Indonesian, lingua.English, lingua.Japanese).
			Build(),
	}
}

// Detect returns the site language of text, or false when the text is too
// short, not confidently detected, or in neither site language.
func (d *Detector) Detect(text string) (locale.Language, bool) {
	if d == nil {
		return "", false
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minDetectRunes {
		return "", false
	}
	language, exists := d.detector.DetectLanguageOf(text)
	if !exists {
		return "", false
	}
	switch language {
	case lingua.Indonesian:
		return locale.Indonesian, true
	case lingua.English:
		return locale.English, true
	}
	return "", false
}

// check compares the detected language of each body half with its slot and
// returns human-readable warnings.
func (d *Detector) check(a bodyHalves) []string {
	if d == nil {
		return nil
	}
	var warnings []string
	idLang, idOK := d.Detect(a.id)
	enLang, enOK := d.Detect(a.en)

	if !a.translated {
		if idOK && idLang == locale.English {
			warnings = append(warnings, "body has no Indonesian half; English text is shown for both languages")
		} else {
			warnings = append(warnings, "body has no English half; the same text is shown for both languages")
		}
		return warnings
	}
	if idOK && enOK && idLang == locale.English && enLang == locale.Indonesian {
		return append(warnings, "body halves appear swapped: the first half should be Indonesian")
	}
	if idOK && idLang == locale.English {
		warnings = append(warnings, "Indonesian half appears to be English")
	}
	if enOK && enLang == locale.Indonesian {
		warnings = append(warnings, "English half appears to be Indonesian")
	}
	return warnings
}

type bodyHalves struct {
	id, en     string
	translated bool
}
