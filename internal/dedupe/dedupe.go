// Package dedupe runs the full near-duplicate detection pipeline:
// discover image files, fingerprint them, feed the LSH engine and
// assign labels.
package dedupe

import (
	"fmt"
	"log"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/couckoo/couckoo/internal/fingerprint"
	"github.com/couckoo/couckoo/internal/lsh"
	"github.com/couckoo/couckoo/internal/scanner"
)

// Options configures a deduplication run.
type Options struct {
	HashSize      int
	Bands         int
	Threshold     float64
	CollectScores bool
	Concurrency   int  // parallel fingerprint workers, 1 if <= 0
	Progress      bool // render a progress bar while fingerprinting
}

// Result is the outcome of a run: a complete labeling of all
// successfully fingerprinted images and, optionally, the scores of
// compared pairs that met the threshold.
type Result struct {
	Labels  map[string]int
	Scores  []lsh.Score
	Skipped int // images that could not be read or decoded
}

// Run finds near-duplicate images in dir. Fingerprints are computed in
// parallel (signature generation is pure per image); the LSH engine is
// fed sequentially in file order so labeling stays deterministic.
// A missing or empty input directory is fatal and yields an empty
// result; individual undecodable images are logged and skipped.
func Run(dir string, opts Options) (*Result, error) {
	proc, err := lsh.NewProcessor(opts.HashSize, opts.Bands)
	if err != nil {
		return &Result{Labels: map[string]int{}}, err
	}
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return &Result{Labels: map[string]int{}}, fmt.Errorf("threshold must be in [0,1], got %v", opts.Threshold)
	}

	files, err := scanner.Images(dir)
	if err != nil {
		return &Result{Labels: map[string]int{}}, err
	}

	gen := fingerprint.NewGenerator(opts.HashSize)
	sigs := computeSignatures(gen, files, opts)

	result := &Result{}
	for i, file := range files {
		if sigs[i] == nil {
			result.Skipped++
		}
		// Add ignores nil signatures; length errors cannot happen here
		// because one Generator produced every signature.
		if err := proc.Add(file, sigs[i]); err != nil {
			return &Result{Labels: map[string]int{}}, err
		}
	}

	result.Labels = proc.AssignLabels(opts.Threshold)
	if opts.CollectScores {
		result.Scores = proc.SimilarityScores(opts.Threshold)
	}
	return result, nil
}

// computeSignatures fingerprints files with a bounded worker pool and
// returns signatures in input order; failed images yield nil.
func computeSignatures(gen *fingerprint.Generator, files []string, opts Options) []*lsh.BitVector {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.Default(int64(len(files)), "fingerprinting")
	}

	sigs := make([]*lsh.BitVector, len(files))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, file := range files {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sig, err := gen.Signature(path)
			if err != nil {
				log.Printf("dedupe: skipping %s: %v", path, err)
			} else {
				sigs[idx] = sig
			}
			if bar != nil {
				_ = bar.Add(1)
			}
		}(i, file)
	}
	wg.Wait()

	if bar != nil {
		_ = bar.Finish()
	}
	return sigs
}
