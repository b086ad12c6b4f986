package lsh

import (
	"reflect"
	"testing"
)

func mustProcessor(t *testing.T, hashSize, bands int) *Processor {
	t.Helper()
	p, err := NewProcessor(hashSize, bands)
	if err != nil {
		t.Fatalf("NewProcessor(%d, %d) failed: %v", hashSize, bands, err)
	}
	return p
}

func mustAdd(t *testing.T, p *Processor, id string, bits string) {
	t.Helper()
	if err := p.Add(id, vectorFromString(t, bits)); err != nil {
		t.Fatalf("Add(%s) failed: %v", id, err)
	}
}

func TestNewProcessorValidation(t *testing.T) {
	tests := []struct {
		name     string
		hashSize int
		bands    int
		wantErr  bool
	}{
		{"valid 16x16", 16, 16, false},
		{"valid single band", 4, 1, false},
		{"valid bands equal bits", 4, 16, false},
		{"zero hash size", 0, 4, true},
		{"negative hash size", -1, 4, true},
		{"zero bands", 16, 0, true},
		{"bands do not divide bits", 4, 3, true},
		{"bands exceed bits", 4, 32, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProcessor(tc.hashSize, tc.bands)
			if (err != nil) != tc.wantErr {
				t.Errorf("NewProcessor(%d, %d) error = %v; wantErr %v",
					tc.hashSize, tc.bands, err, tc.wantErr)
			}
		})
	}
}

func TestAddAndSignatureRoundTrip(t *testing.T) {
	p := mustProcessor(t, 4, 2)
	sig := vectorFromString(t, "1010110011110000")
	if err := p.Add("a.png", sig); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got := p.Signature("a.png")
	if got == nil {
		t.Fatal("stored signature not found")
	}
	if !got.Equal(sig) {
		t.Error("stored signature does not match input")
	}

	// The processor keeps its own copy.
	sig.Set(0, false)
	if got.Equal(sig) {
		t.Error("mutating the caller's vector must not affect the store")
	}
}

func TestAddNilSignatureIsSkipped(t *testing.T) {
	p := mustProcessor(t, 4, 2)
	if err := p.Add("broken.jpg", nil); err != nil {
		t.Fatalf("Add(nil) should be a no-op, got error: %v", err)
	}
	if p.Count() != 0 {
		t.Errorf("Count() = %d; want 0", p.Count())
	}

	labels := p.AssignLabels(0.5)
	if len(labels) != 0 {
		t.Errorf("skipped image must not be labeled, got %v", labels)
	}
}

func TestAddWrongLength(t *testing.T) {
	p := mustProcessor(t, 4, 2)
	if err := p.Add("short.png", NewBitVector(8)); err == nil {
		t.Error("expected error for 8-bit signature with hash size 4")
	}
}

func TestSimilarity(t *testing.T) {
	p := mustProcessor(t, 4, 2)
	mustAdd(t, p, "a", "0000000000000000")
	mustAdd(t, p, "b", "1111111100000000")
	mustAdd(t, p, "c", "1111111111111111")

	if got := p.Similarity("a", "a"); got != 1.0 {
		t.Errorf("Similarity(a, a) = %v; want 1.0", got)
	}
	if got := p.Similarity("a", "b"); got != 0.5 {
		t.Errorf("Similarity(a, b) = %v; want 0.5", got)
	}
	if got := p.Similarity("a", "c"); got != 0.0 {
		t.Errorf("Similarity(a, c) = %v; want 0.0", got)
	}
	if p.Similarity("a", "b") != p.Similarity("b", "a") {
		t.Error("Similarity must be symmetric")
	}
}

func TestSimilarityMissingSignature(t *testing.T) {
	p := mustProcessor(t, 4, 2)
	mustAdd(t, p, "a", "0000000000000000")

	// Must degrade to 0.0 without panicking.
	if got := p.Similarity("a", "never-added"); got != 0.0 {
		t.Errorf("Similarity with missing id = %v; want 0.0", got)
	}
	if got := p.Similarity("ghost", "phantom"); got != 0.0 {
		t.Errorf("Similarity with two missing ids = %v; want 0.0", got)
	}
}

func TestAssignLabelsIdenticalImages(t *testing.T) {
	// hash_size=4, bands=1, threshold=1.0: two identical 16-bit
	// signatures must share a label and score 1.0.
	p := mustProcessor(t, 4, 1)
	mustAdd(t, p, "a.png", "1010110011110000")
	mustAdd(t, p, "b.png", "1010110011110000")

	labels := p.AssignLabels(1.0)
	if labels["a.png"] != labels["b.png"] {
		t.Errorf("identical images got labels %d and %d", labels["a.png"], labels["b.png"])
	}

	scores := p.SimilarityScores(1.0)
	if len(scores) != 1 {
		t.Fatalf("got %d scores; want 1", len(scores))
	}
	if scores[0].A != "a.png" || scores[0].B != "b.png" || scores[0].Similarity != 1.0 {
		t.Errorf("unexpected score row: %+v", scores[0])
	}
}

func TestAssignLabelsPartition(t *testing.T) {
	p := mustProcessor(t, 4, 2)
	inputs := map[string]string{
		"a": "0000000000000000",
		"b": "0000000000000001",
		"c": "1111111111111111",
		"d": "1111111101111111",
		"e": "0011001100110011",
	}
	for id, bits := range inputs {
		mustAdd(t, p, id, bits)
	}

	labels := p.AssignLabels(0.9)
	if len(labels) != len(inputs) {
		t.Fatalf("labeled %d images; want %d", len(labels), len(inputs))
	}
	for id := range inputs {
		if _, ok := labels[id]; !ok {
			t.Errorf("image %s has no label", id)
		}
	}
}

func TestAssignLabelsThresholdZeroChains(t *testing.T) {
	// With threshold 0 every bucket-mate links via consecutive pairs, so
	// all three collapse into one class.
	p := mustProcessor(t, 4, 2)
	mustAdd(t, p, "a", "0000000011111111")
	mustAdd(t, p, "b", "0000000000000000")
	mustAdd(t, p, "c", "0000000011001100")

	labels := p.AssignLabels(0.0)
	if labels["a"] != labels["b"] || labels["b"] != labels["c"] {
		t.Errorf("threshold 0 should merge bucket-mates, got %v", labels)
	}
}

func TestAssignLabelsDirectionalInheritance(t *testing.T) {
	p := mustProcessor(t, 4, 1)
	mustAdd(t, p, "first", "0000000000000000")
	mustAdd(t, p, "second", "0000000000000000")
	mustAdd(t, p, "loner", "1111111111111111")

	labels := p.AssignLabels(1.0)
	// first is labeled before second; second inherits.
	if labels["first"] != 0 {
		t.Errorf("labels[first] = %d; want 0", labels["first"])
	}
	if labels["second"] != 0 {
		t.Errorf("labels[second] = %d; want 0", labels["second"])
	}
	if labels["loner"] != 1 {
		t.Errorf("labels[loner] = %d; want 1", labels["loner"])
	}
}

func TestAssignLabelsConsecutivePairsOnly(t *testing.T) {
	// Bucket order is [a, b, c] in band 0. a and c are near-identical
	// but separated by b, which fails the threshold against both, and
	// their band-1 patterns differ. Only consecutive pairs are compared,
	// so a and c stay apart. This under-merge is intended behavior.
	p := mustProcessor(t, 4, 2)
	mustAdd(t, p, "a", "0000000000000000")
	mustAdd(t, p, "b", "0000000011111111")
	mustAdd(t, p, "c", "0000000000000001")

	labels := p.AssignLabels(0.9)
	if labels["a"] == labels["c"] {
		t.Error("a and c should not be linked through a failing neighbor")
	}
	if labels["a"] == labels["b"] || labels["b"] == labels["c"] {
		t.Errorf("pairs below threshold must not share labels, got %v", labels)
	}
}

func TestAssignLabelsDeterministic(t *testing.T) {
	build := func() map[string]int {
		p := mustProcessor(t, 4, 4)
		mustAdd(t, p, "a", "0000111100001111")
		mustAdd(t, p, "b", "0000111100001110")
		mustAdd(t, p, "c", "1111000011110000")
		mustAdd(t, p, "d", "1111000011110000")
		mustAdd(t, p, "e", "0101010101010101")
		return p.AssignLabels(0.8)
	}

	first := build()
	for i := 0; i < 10; i++ {
		if got := build(); !reflect.DeepEqual(got, first) {
			t.Fatalf("labeling is not deterministic: %v vs %v", got, first)
		}
	}
}

func TestAssignLabelsEmpty(t *testing.T) {
	p := mustProcessor(t, 16, 16)
	labels := p.AssignLabels(0.8)
	if len(labels) != 0 {
		t.Errorf("empty processor should produce no labels, got %v", labels)
	}
	scores := p.SimilarityScores(0.8)
	if len(scores) != 0 {
		t.Errorf("empty processor should produce no scores, got %v", scores)
	}
}
