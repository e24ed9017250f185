// Package markdown renders article bodies to HTML and extracts plain text.
package markdown

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(renderer.WithNodeRenderers(util.Prioritized(citeRenderer{}, 500))),
)

// citeRenderer drops inline raw HTML from bodies except the <cite> tags
// written by citeBlockquotes.
type citeRenderer struct{}

func (citeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindRawHTML, renderRawHTML)
}

func renderRawHTML(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*ast.RawHTML)
	var raw []byte
	for i := 0; i < n.Segments.Len(); i++ {
		segment := n.Segments.At(i)
		raw = append(raw, segment.Value(source)...)
	}
	switch string(raw) {
	case "<cite>", "</cite>":
		_, _ = w.Write(raw)
	default:
		_, _ = w.WriteString("<!-- raw HTML omitted -->")
	}
	return ast.WalkSkipChildren, nil
}

// Heading is a table-of-contents entry
type Heading struct {
	Title string `json:"title"`
	ID    string `json:"id"`
	Level int    `json:"level"`
}

// Render converts a markdown body to HTML. A trailing blockquote line
// starting with "--", "—" or "- " is rendered as a <cite> element.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(citeBlockquotes(src)), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// Headings lists the headings of a body in document order.
func Headings(src string) []Heading {
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source), parser.WithContext(parser.NewContext()))

	var toc []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		h := Heading{Title: nodeText(heading, source), Level: heading.Level}
		if id, found := heading.AttributeString("id"); found {
			if b, ok := id.([]byte); ok {
				h.ID = string(b)
			}
		}
		toc = append(toc, h)
		return ast.WalkSkipChildren, nil
	})
	return toc
}

func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
			continue
		}
		b.WriteString(nodeText(c, source))
	}
	return b.String()
}

// PlainText strips tags from rendered HTML and collapses whitespace.
func PlainText(rendered string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// Excerpt renders src and returns at most n runes of its plain text, cut on
// a word boundary when possible.
func Excerpt(src string, n int) (string, error) {
	rendered, err := Render(src)
	if err != nil {
		return "", err
	}
	plain, err := PlainText(rendered)
	if err != nil {
		return "", err
	}
	return Truncate(plain, n), nil
}

// Truncate shortens s to n runes, appending an ellipsis when it cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

var citePrefixes = []string{"--", "—", "- "}

// citeBlockquotes rewrites the last line of each multi-line blockquote into
// a <cite> element when it carries an attribution prefix.
func citeBlockquotes(src string) string {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines)+4)

	for i := 0; i < len(lines); {
		if _, ok := quoteContent(lines[i]); !ok {
			out = append(out, lines[i])
			i++
			continue
		}
		j := i
		for j < len(lines) {
			if _, ok := quoteContent(lines[j]); !ok {
				break
			}
			j++
		}
		block := lines[i:j]
		if len(block) > 1 {
			last, _ := quoteContent(block[len(block)-1])
			if author, ok := citation(last); ok {
				out = append(out, block[:len(block)-1]...)
				out = append(out, ">", "> <cite>"+html.EscapeString(author)+"</cite>")
				i = j
				continue
			}
		}
		out = append(out, block...)
		i = j
	}
	return strings.Join(out, "\n")
}

func quoteContent(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || !strings.HasPrefix(trimmed, ">") {
		return "", false
	}
	content := strings.TrimPrefix(trimmed, ">")
	return strings.TrimPrefix(content, " "), true
}

func citation(line string) (string, bool) {
	for _, p := range citePrefixes {
		if strings.HasPrefix(line, p) {
			author := strings.TrimSpace(strings.TrimPrefix(line, p))
			return author, strings.Trim(author, "-—") != ""
		}
	}
	return "", false
}
