package content

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"animeportal/internal/models"
	"animeportal/internal/taxonomy"
)

// Folders are the content sub-directories, one per primary section.
var Folders = []string{string(taxonomy.News), string(taxonomy.Opinion), string(taxonomy.Reviews)}

// Failure is a file that could not be ingested
type Failure struct {
	File  string `json:"file" yaml:"file"`
	Error string `json:"error" yaml:"error"`
	Err   error  `json:"-" yaml:"-"`
}

// Warning is a non-fatal remark about an ingested article
type Warning struct {
	File      string `json:"file" yaml:"file"`
	ArticleID string `json:"article_id" yaml:"article_id"`
	Message   string `json:"message" yaml:"message"`
}

// Result is the outcome of loading a content tree
type Result struct {
	Articles []models.Article `json:"articles" yaml:"-"`
	Failures []Failure        `json:"failures" yaml:"failures"`
	Warnings []Warning        `json:"warnings" yaml:"warnings"`
}

// Loader ingests a content tree with a pool of workers
type Loader struct {
	workers  int
	detector *Detector
}

// NewLoader creates a loader. A nil detector disables language checks.
func NewLoader(detector *Detector) *Loader {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return &Loader{workers: workers, detector: detector}
}

type fileJob struct {
	path   string
	folder string
}

type fileResult struct {
	job      fileJob
	article  *models.Article
	warnings []string
	err      error
}

// LoadDir ingests every *.md file under root/news, root/opinion and
// root/reviews. Bad files are reported as failures and skipped; duplicate ids
// keep the first file in path order. Articles are returned newest first.
func (l *Loader) LoadDir(ctx context.Context, root string) (*Result, error) {
	jobs, err := collectFiles(root)
	if err != nil {
		return nil, err
	}

	results := make(chan fileResult, len(jobs))
	queue := make(chan fileJob)
	var wg sync.WaitGroup

	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				results <- l.loadFile(job)
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]fileResult, 0, len(jobs))
	for r := range results {
		collected = append(collected, r)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("content load cancelled: %w", err)
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].job.path < collected[j].job.path })

	result := &Result{}
	seen := make(map[string]string)
	for _, r := range collected {
		rel := relative(root, r.job.path)
		if r.err != nil {
			result.Failures = append(result.Failures, Failure{File: rel, Error: r.err.Error(), Err: r.err})
			continue
		}
		if first, dup := seen[r.article.ID]; dup {
			err := &ValidationError{File: rel, Field: "id", Reason: fmt.Sprintf("duplicate id %q, already used by %s", r.article.ID, first)}
			result.Failures = append(result.Failures, Failure{File: rel, Error: err.Error(), Err: err})
			continue
		}
		seen[r.article.ID] = rel
		for _, w := range r.warnings {
			result.Warnings = append(result.Warnings, Warning{File: rel, ArticleID: r.article.ID, Message: w})
		}
		result.Articles = append(result.Articles, *r.article)
	}

	SortNewestFirst(result.Articles)
	log.Printf("Loaded %d articles from %s (%d failures, %d warnings)", len(result.Articles), root, len(result.Failures), len(result.Warnings))
	return result, nil
}

func (l *Loader) loadFile(job fileJob) fileResult {
	raw, err := os.ReadFile(job.path)
	if err != nil {
		return fileResult{job: job, err: fmt.Errorf("failed to read %s: %w", job.path, err)}
	}
	article, halves, err := ingest(string(raw), job.folder, filepath.Base(job.path))
	if err != nil {
		return fileResult{job: job, err: err}
	}
	return fileResult{job: job, article: article, warnings: l.detector.check(halves)}
}

// SortNewestFirst orders articles by publication time, newest first, with
// ids breaking ties.
func SortNewestFirst(articles []models.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})
}

func collectFiles(root string) ([]fileJob, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("content directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content directory %s is not a directory", root)
	}

	var jobs []fileJob
	for _, folder := range Folders {
		dir := filepath.Join(root, folder)
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".md") {
				continue
			}
			jobs = append(jobs, fileJob{path: filepath.Join(dir, name), folder: folder})
		}
	}
	return jobs, nil
}

// Fingerprint summarizes the names, sizes and modification times of the
// content files so callers can skip reloading an unchanged tree.
func Fingerprint(root string) (string, error) {
	jobs, err := collectFiles(root)
	if err != nil {
		return "", err
	}
	h := fnv.New64a()
	for _, job := range jobs {
		info, err := os.Stat(job.path)
		if err != nil {
			continue
		}
		fmt.Fprintf(h, "%s|%d|%d\n", relative(root, job.path), info.Size(), info.ModTime().UnixNano())
	}
	return fmt.Sprintf("%d:%x", len(jobs), h.Sum64()), nil
}

func relative(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
