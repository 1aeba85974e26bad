// Command fetch downloads input files listed one URL per line, with a
// bounded worker pool.
//
// Usage:
//
//	go run ./cmd/fetch -list urls.txt -dest data/raw -workers 4
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/couchcryptid/storm-track-service/internal/download"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	list := flag.String("list", "", "file containing one URL per line")
	dest := flag.String("dest", "data/raw", "destination directory")
	workers := flag.Int("workers", 4, "concurrent downloads")
	timeout := flag.Duration("timeout", 5*time.Minute, "per-request timeout")
	flag.Parse()

	if *list == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -list")
	}

	urls, err := readURLList(*list)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("%s contains no URLs", *list)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := download.NewClient(*timeout, *workers, slog.Default())
	results := client.FetchAll(ctx, urls, *dest)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Printf("failed: %s: %v", r.URL, r.Err)
		}
	}

	log.Printf("downloaded %d/%d files to %s", len(results)-failed, len(urls), *dest)
	if failed > 0 {
		return fmt.Errorf("%d downloads failed", failed)
	}
	return nil
}

func readURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}
