package content

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformedFrontmatter is returned when a document does not open with a
// "---" delimited metadata block.
var ErrMalformedFrontmatter = errors.New("malformed frontmatter")

const delimiter = "---"

// SplitFrontmatter separates the metadata block from the body. The first line
// must be exactly "---" and the block ends at the next "---" line.
func SplitFrontmatter(raw string) (frontmatter, body string, err error) {
	raw = strings.TrimPrefix(raw, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t") != delimiter {
		return "", "", fmt.Errorf("%w: missing opening delimiter", ErrMalformedFrontmatter)
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == delimiter {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), nil
		}
	}
	return "", "", fmt.Errorf("%w: missing closing delimiter", ErrMalformedFrontmatter)
}

// SplitBody splits a body on its first lone "---" line into an Indonesian and
// an English half. Without a separator both halves are the whole body.
func SplitBody(body string) (id, en string, translated bool) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == delimiter {
			id = strings.TrimSpace(strings.Join(lines[:i], "\n"))
			en = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			if id == "" || en == "" {
				break
			}
			return id, en, true
		}
	}
	body = strings.TrimSpace(body)
	return body, body, false
}

// parseFrontmatter decodes the metadata block as YAML and falls back to a
// lenient line parser for blocks YAML rejects (unquoted colons in titles
// are common in hand-written files).
func parseFrontmatter(block string) (map[string]any, error) {
	var fields map[string]any
	if err := yaml.Unmarshal([]byte(block), &fields); err == nil && fields != nil {
		return fields, nil
	}
	fields = parseLenient(block)
	if len(fields) == 0 && strings.TrimSpace(block) != "" {
		return nil, fmt.Errorf("%w: no key/value pairs found", ErrMalformedFrontmatter)
	}
	return fields, nil
}

// parseLenient reads flat "key: value" lines. "- item" lines attach to the
// preceding key as a list; list items holding "key: value" pairs become small
// objects, and further indented pairs extend the current object. An indented
// pair under a key with no value builds a nested mapping.
func parseLenient(block string) map[string]any {
	fields := make(map[string]any)
	var (
		key    string
		list   []any
		object map[string]any
		nested map[string]any
	)

	flush := func() {
		if key == "" {
			return
		}
		switch {
		case list != nil:
			fields[key] = list
		case nested != nil:
			fields[key] = nested
		}
		list, object, nested = nil, nil, nil
	}

	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indented := line[0] == ' ' || line[0] == '\t'

		if strings.HasPrefix(trimmed, "-") && key != "" {
			item := strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
			if k, v, ok := splitPair(item); ok {
				object = map[string]any{k: unquote(v)}
				list = append(list, object)
				continue
			}
			object = nil
			if item != "" {
				list = append(list, unquote(item))
			}
			continue
		}

		k, v, ok := splitPair(trimmed)
		if !ok {
			continue
		}
		if indented && object != nil {
			object[k] = unquote(v)
			continue
		}
		if indented && key != "" && list == nil {
			if nested == nil {
				nested = make(map[string]any)
			}
			nested[k] = unquote(v)
			continue
		}

		flush()
		key = k
		if v == "" {
			continue
		}
		if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
			fields[key] = inlineList(v)
		} else {
			fields[key] = unquote(v)
		}
		key = ""
	}
	flush()
	return fields
}

func splitPair(s string) (string, string, bool) {
	i := strings.Index(s, ": ")
	if i < 0 && strings.HasSuffix(s, ":") {
		i = len(s) - 1
	}
	if i <= 0 {
		return "", "", false
	}
	k := strings.TrimSpace(s[:i])
	if strings.ContainsAny(k, " \t\"'") {
		return "", "", false
	}
	return k, strings.TrimSpace(s[i+1:]), true
}

func inlineList(v string) []any {
	inner := strings.TrimSpace(v[1 : len(v)-1])
	if inner == "" {
		return []any{}
	}
	var out []any
	for _, part := range strings.Split(inner, ",") {
		if part = unquote(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func unquote(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
