// Package results emits deduplication results as tabular output: a
// label table mapping image files to equivalence classes and an
// optional similarity-score table.
package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/couckoo/couckoo/internal/lsh"
)

// WriteLabels writes the label table as CSV with a filename,label
// header, ordered by label and then by filename.
func WriteLabels(w io.Writer, labels map[string]int) error {
	type row struct {
		file  string
		label int
	}
	rows := make([]row, 0, len(labels))
	for file, label := range labels {
		rows = append(rows, row{file, label})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].label != rows[j].label {
			return rows[i].label < rows[j].label
		}
		return rows[i].file < rows[j].file
	})

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"filename", "label"}); err != nil {
		return fmt.Errorf("writing label header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.file, strconv.Itoa(r.label)}); err != nil {
			return fmt.Errorf("writing label row for %s: %w", r.file, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScores writes the similarity-score table as CSV with an
// imageA,imageB,similarity header, in collection order.
func WriteScores(w io.Writer, scores []lsh.Score) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"imageA", "imageB", "similarity"}); err != nil {
		return fmt.Errorf("writing score header: %w", err)
	}
	for _, s := range scores {
		row := []string{s.A, s.B, strconv.FormatFloat(s.Similarity, 'f', -1, 64)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing score row (%s, %s): %w", s.A, s.B, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveLabels writes the label table to path, creating parent
// directories as needed.
func SaveLabels(path string, labels map[string]int) error {
	return saveCSV(path, func(w io.Writer) error { return WriteLabels(w, labels) })
}

// SaveScores writes the score table to path, creating parent
// directories as needed.
func SaveScores(path string, scores []lsh.Score) error {
	return saveCSV(path, func(w io.Writer) error { return WriteScores(w, scores) })
}

func saveCSV(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
