// Command genframes writes synthetic detected-object frames as a JSON
// fixture, one frame record per array element. The fixtures feed the test
// suites and can be replayed onto the source topic with any Kafka producer.
//
// Usage:
//
//	go run ./cmd/genframes \
//	  -start 2005-11-13T00:00:00Z \
//	  -end 2005-11-14T00:00:00Z \
//	  -step 10m \
//	  -out data/mock/synthetic_frames_20051113.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/storm-track-service/internal/synthetic"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	startStr := flag.String("start", "2005-11-13T00:00:00Z", "first grid time, RFC 3339")
	endStr := flag.String("end", "2005-11-14T00:00:00Z", "end of the run (exclusive), RFC 3339")
	stepStr := flag.String("step", "10m", "grid cadence")
	out := flag.String("out", "", "output path for the JSON fixture")
	noAnvils := flag.Bool("no-anvils", false, "emit cells only")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	start, err := time.Parse(time.RFC3339, *startStr)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, *endStr)
	if err != nil {
		return fmt.Errorf("parse -end: %w", err)
	}
	step, err := time.ParseDuration(*stepStr)
	if err != nil {
		return fmt.Errorf("parse -step: %w", err)
	}

	gen := synthetic.NewGenerator()
	gen.Anvils = !*noAnvils

	frames, err := gen.Frames(start, end, step)
	if err != nil {
		return err
	}

	records := synthetic.Records(frames)
	if err := writeJSON(*out, records); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}

	log.Printf("wrote %d frames (%d objects each) to %s",
		len(records), len(frames[0].Objects), *out)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
