// Command genoptions writes the default tracking option files as YAML, the
// starting point for a new tracking run's configuration.
//
// Usage:
//
//	go run ./cmd/genoptions -dataset cpol -out config/track.yml
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/storm-track-service/internal/options"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataset := flag.String("dataset", "cpol", "dataset name recorded in the object options")
	out := flag.String("out", "", "output path for the YAML option file")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}

	opts := options.DefaultTrack(*dataset)
	if err := opts.Save(*out); err != nil {
		return err
	}

	log.Printf("wrote default track options for dataset %q to %s", *dataset, *out)
	return nil
}
