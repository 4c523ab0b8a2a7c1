package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jinjor/midiscope/src/audio"
	"golang.org/x/sync/errgroup"
)

func main() {
	sampleRate := flag.Int("rate", audio.DefaultSampleRate, "sample rate the tables are band-limited for")
	flag.Parse()
	dir := flag.Arg(0)
	if dir == "" {
		fmt.Fprintln(os.Stderr, "usage: gentables [-rate 48000] <dir>")
		os.Exit(2)
	}
	log.SetFlags(log.Lshortfile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("error: %v\n", err)
	}

	squareFile, sawFile := audio.WavetableFiles()
	g, _ := errgroup.WithContext(context.Background())
	generate := func(name string, file string, partial func(n int, phase float64) float64) {
		g.Go(func() error {
			wts := audio.NewWavetableSet(audio.NumWavetables, audio.WavetableSamples)
			if err := wts.MakeBandLimitedTablesForAllNotes(audio.WavetableSamples, *sampleRate, partial); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			log.Printf("generated %s wave\n", name)
			if err := wts.Save(filepath.Join(dir, file)); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			log.Printf("saved %s wave\n", name)
			return nil
		})
	}
	generate("square", squareFile, audio.SquarePartial)
	generate("saw", sawFile, audio.SawPartial)
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("Successfully generated wavetables.")
}
