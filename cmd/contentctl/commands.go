package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"animeportal/internal/auth"
	"animeportal/internal/config"
	"animeportal/internal/content"
	"animeportal/internal/filter"
	"animeportal/internal/locale"
	"animeportal/internal/models"
	"animeportal/internal/routes"
	"animeportal/internal/taxonomy"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var ValidateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Ingest a content tree and report failures and warnings",
	ArgsUsage: "<content-dir>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "detect-language", Usage: "Check that each body half is written in its language"},
	},
	Action: ValidateAction,
}

var ListCommand = &cli.Command{
	Name:      "list",
	Usage:     "List articles matching a filter",
	ArgsUsage: "<content-dir>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "section", Usage: "Section label or alias"},
		&cli.StringFlag{Name: "vertical", Usage: "News vertical label or alias"},
		&cli.StringFlag{Name: "tag", Usage: "Tag in either language"},
		&cli.StringFlag{Name: "category", Usage: "Generic category label"},
		&cli.StringFlag{Name: "q", Usage: "Free-text query"},
		&cli.StringFlag{Name: "sort", Value: "latest", Usage: "latest, oldest or popular"},
		&cli.StringFlag{Name: "lang", Value: string(locale.Default), Usage: "Output language (id or en)"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum number of articles (0 for all)"},
	},
	Action: ListAction,
}

var LinkCommand = &cli.Command{
	Name:      "link",
	Usage:     "Print the canonical path of an article",
	ArgsUsage: "<content-dir> <article-id>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "base-url", Usage: "Prefix the path with this site URL"},
	},
	Action: LinkAction,
}

var ResolveCommand = &cli.Command{
	Name:      "resolve",
	Usage:     "Resolve a label to a path, or a path to a location",
	ArgsUsage: "<label>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "header", Usage: "Treat the label as a header navigation item"},
		&cli.StringFlag{Name: "path", Usage: "Parse this site path instead of resolving a label"},
	},
	Action: ResolveAction,
}

var NormalizeCommand = &cli.Command{
	Name:      "normalize",
	Usage:     "Rewrite a content file in canonical frontmatter form",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "folder", Usage: "Content folder (defaults to the file's parent directory)"},
		&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "Overwrite the file instead of printing"},
	},
	Action: NormalizeAction,
}

var TokenCommand = &cli.Command{
	Name:      "token",
	Usage:     "Sign a reader token with the configured JWT secret",
	ArgsUsage: "<user-id>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "Display name"},
		&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "Token lifetime"},
	},
	Action: TokenAction,
}

type validationReport struct {
	Root     string            `yaml:"root"`
	Articles int               `yaml:"articles"`
	Sections map[string]int    `yaml:"sections"`
	Failures []content.Failure `yaml:"failures"`
	Warnings []content.Warning `yaml:"warnings"`
}

type listedArticle struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Link     string `yaml:"link"`
	Section  string `yaml:"section"`
	Category string `yaml:"category,omitempty"`
	Date     string `yaml:"date"`
	Views    int64  `yaml:"views"`
}

func writeYAML(c *cli.Context, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	_, err = c.App.Writer.Write(out)
	return err
}

func load(ctx context.Context, root string, detect bool) (*content.Result, error) {
	var detector *content.Detector
	if detect {
		detector = content.NewDetector()
	}
	return content.NewLoader(detector).LoadDir(ctx, root)
}

// ValidateAction exits non-zero when any file failed to ingest.
func ValidateAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("requires exactly one argument: <content-dir>")
	}
	root := c.Args().First()

	result, err := load(c.Context, root, c.Bool("detect-language"))
	if err != nil {
		return err
	}

	report := validationReport{
		Root:     root,
		Articles: len(result.Articles),
		Sections: make(map[string]int),
		Failures: result.Failures,
		Warnings: result.Warnings,
	}
	for i := range result.Articles {
		report.Sections[string(result.Articles[i].Section())]++
	}
	if err := writeYAML(c, report); err != nil {
		return err
	}

	if len(result.Failures) > 0 {
		return cli.Exit(fmt.Sprintf("%d file(s) failed validation", len(result.Failures)), 1)
	}
	return nil
}

func ListAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("requires exactly one argument: <content-dir>")
	}
	result, err := load(c.Context, c.Args().First(), false)
	if err != nil {
		return err
	}

	f := models.FilterState{
		Tag:      c.String("tag"),
		Category: c.String("category"),
		Query:    c.String("q"),
		Sort:     models.ParseSortMode(c.String("sort")),
	}
	if label := c.String("section"); label != "" {
		section, ok := taxonomy.CanonicalSection(label)
		if !ok {
			return fmt.Errorf("unknown section: %s", label)
		}
		f.Section = section
	}
	if label := c.String("vertical"); label != "" {
		f.Vertical = label
		if slug, ok := taxonomy.CanonicalVertical(label); ok {
			f.Vertical = slug
		}
		f.Section = taxonomy.News
	}

	matched := filter.Apply(result.Articles, f, nil)
	if limit := c.Int("limit"); limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	lang := locale.ParseLanguage(c.String("lang"))
	out := make([]listedArticle, 0, len(matched))
	for i := range matched {
		a := &matched[i]
		out = append(out, listedArticle{
			ID:       a.ID,
			Title:    a.Title.Get(lang),
			Link:     routes.ArticleLink(a),
			Section:  string(a.Section()),
			Category: a.SubCategory.Get(lang),
			Date:     a.Date.Get(lang),
			Views:    a.Views,
		})
	}
	return writeYAML(c, out)
}

func LinkAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("requires exactly two arguments: <content-dir> <article-id>")
	}
	result, err := load(c.Context, c.Args().Get(0), false)
	if err != nil {
		return err
	}

	id := c.Args().Get(1)
	for i := range result.Articles {
		if result.Articles[i].ID == id {
			path := routes.ArticleLink(&result.Articles[i])
			_, err := fmt.Fprintln(c.App.Writer, strings.TrimRight(c.String("base-url"), "/")+path)
			return err
		}
	}
	return cli.Exit(fmt.Sprintf("article %q not found", id), 1)
}

func ResolveAction(c *cli.Context) error {
	if p := c.String("path"); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
		return writeYAML(c, routes.Parse(u.Path, u.Query()))
	}

	if c.NArg() != 1 {
		return fmt.Errorf("requires exactly one argument: <label>")
	}
	label := c.Args().First()
	canonical := taxonomy.Canonicalize(label, c.Bool("header"))
	return writeYAML(c, map[string]string{
		"label": label,
		"kind":  string(canonical.Kind),
		"path":  routes.SectionLink(label, c.Bool("header")),
	})
}

func NormalizeAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("requires exactly one argument: <file>")
	}
	file := c.Args().First()
	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	folder := c.String("folder")
	if folder == "" {
		folder = filepath.Base(filepath.Dir(file))
	}
	article, err := content.Ingest(string(raw), folder, filepath.Base(file))
	if err != nil {
		return err
	}
	out, err := content.Encode(article)
	if err != nil {
		return err
	}

	if c.Bool("write") {
		if err := os.WriteFile(file, out, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", file, err)
		}
		return nil
	}
	_, err = c.App.Writer.Write(out)
	return err
}

func TokenAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("requires exactly one argument: <user-id>")
	}
	cfg := config.Load()
	tokens := auth.TokenService{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Duration: c.Duration("ttl"),
	}
	token, expires, err := tokens.Sign(c.Args().First(), c.String("name"))
	if err != nil {
		return err
	}
	return writeYAML(c, map[string]string{
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}
