// Package download fetches input files (radar volumes, reanalysis subsets)
// over HTTP with bounded parallelism, so a day of grids can be pulled
// without hammering the archive host.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"
)

// Result reports the outcome for a single URL.
type Result struct {
	URL  string
	Path string
	Err  error
}

// Client downloads files with a fixed worker pool.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	workers    int
}

// NewClient creates a download client. Workers below one are clamped to one.
func NewClient(timeout time.Duration, workers int, logger *slog.Logger) *Client {
	if workers < 1 {
		workers = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		workers:    workers,
	}
}

// FetchAll downloads every URL into destDir, at most c.workers at a time.
// Files that already exist are skipped. The returned results are in no
// particular order; callers check each Result.Err.
func (c *Client) FetchAll(ctx context.Context, urls []string, destDir string) []Result {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		results := make([]Result, len(urls))
		for i, u := range urls {
			results[i] = Result{URL: u, Err: fmt.Errorf("create dest dir: %w", err)}
		}
		return results
	}

	jobs := make(chan string)
	resultCh := make(chan Result)

	var wg sync.WaitGroup
	for range c.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				resultCh <- c.fetchOne(ctx, u, destDir)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, u := range urls {
			select {
			case jobs <- u:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var results []Result
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}

// fetchOne downloads a single URL into destDir, writing through a temp file
// so a partial download never shows up under the final name.
func (c *Client) fetchOne(ctx context.Context, rawURL, destDir string) Result {
	name, err := fileName(rawURL)
	if err != nil {
		return Result{URL: rawURL, Err: err}
	}
	dest := filepath.Join(destDir, name)

	if _, err := os.Stat(dest); err == nil {
		c.logger.Debug("file exists, skipping", "url", rawURL, "path", dest)
		return Result{URL: rawURL, Path: dest}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{URL: rawURL, Err: fmt.Errorf("fetch: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{URL: rawURL, Err: fmt.Errorf("fetch: status %d", resp.StatusCode)}
	}

	tmp, err := os.CreateTemp(destDir, name+".part-*")
	if err != nil {
		return Result{URL: rawURL, Err: fmt.Errorf("create temp file: %w", err)}
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Result{URL: rawURL, Err: fmt.Errorf("write: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Result{URL: rawURL, Err: fmt.Errorf("close temp file: %w", err)}
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return Result{URL: rawURL, Err: fmt.Errorf("rename: %w", err)}
	}

	c.logger.Info("downloaded", "url", rawURL, "path", dest)
	return Result{URL: rawURL, Path: dest}
}

func fileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("url %q has no file name", rawURL)
	}
	return name, nil
}
