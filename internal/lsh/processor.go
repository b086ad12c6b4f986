// Package lsh groups near-duplicate images into equivalence classes using
// locality sensitive hashing. Signatures are split into bands; images that
// share an identical band pattern land in the same bucket and become
// candidates for a full hamming-distance comparison.
package lsh

import (
	"fmt"
	"log"
)

// Score records the similarity of a compared candidate pair.
type Score struct {
	A          string  `json:"imageA"`
	B          string  `json:"imageB"`
	Similarity float64 `json:"similarity"`
}

// bandBuckets holds one band's buckets, keyed by the band's packed bit
// pattern. Key insertion order is tracked so the labeling walk is
// deterministic (Go maps iterate in random order).
type bandBuckets struct {
	members map[string][]string
	order   []string
}

// Processor is the per-run LSH engine: it stores packed signatures,
// buckets them by band, and assigns equivalence-class labels. It is not
// safe for concurrent use; each run owns exactly one Processor and
// discards it afterwards.
type Processor struct {
	hashSize int
	bands    int
	rows     int
	bitLen   int // hashSize², the signature length

	signatures map[string]*BitVector
	ids        []string // insertion order, for the singleton label pass
	buckets    []bandBuckets

	labels       map[string]int
	labelCounter int
	scores       []Score
}

// NewProcessor creates a Processor for signatures of hashSize² bits split
// into the given number of bands. The band count must evenly divide the
// signature length; truncating rows silently would bucket on a prefix of
// each band and change candidate sets.
func NewProcessor(hashSize, bands int) (*Processor, error) {
	if hashSize <= 0 {
		return nil, fmt.Errorf("hash size must be positive, got %d", hashSize)
	}
	if bands <= 0 {
		return nil, fmt.Errorf("band count must be positive, got %d", bands)
	}
	bitLen := hashSize * hashSize
	if bitLen%bands != 0 {
		return nil, fmt.Errorf("bands (%d) must evenly divide the signature length (%d bits)", bands, bitLen)
	}

	buckets := make([]bandBuckets, bands)
	for i := range buckets {
		buckets[i].members = make(map[string][]string)
	}

	return &Processor{
		hashSize:   hashSize,
		bands:      bands,
		rows:       bitLen / bands,
		bitLen:     bitLen,
		signatures: make(map[string]*BitVector),
		buckets:    buckets,
		labels:     make(map[string]int),
	}, nil
}

// Add stores an image signature and inserts it into every band bucket.
// A nil signature means the image failed earlier processing and is
// silently skipped. The signature length must equal hashSize².
func (p *Processor) Add(id string, sig *BitVector) error {
	if sig == nil {
		return nil
	}
	if sig.Len() != p.bitLen {
		return fmt.Errorf("signature for %q has %d bits, want %d", id, sig.Len(), p.bitLen)
	}

	if _, ok := p.signatures[id]; !ok {
		p.ids = append(p.ids, id)
	}
	p.signatures[id] = sig.Clone()

	for i := 0; i < p.bands; i++ {
		key := string(sig.Slice(i*p.rows, (i+1)*p.rows).Bytes())
		b := &p.buckets[i]
		if _, ok := b.members[key]; !ok {
			b.order = append(b.order, key)
		}
		b.members[key] = append(b.members[key], id)
	}
	return nil
}

// Count returns the number of stored signatures.
func (p *Processor) Count() int {
	return len(p.signatures)
}

// Signature returns a copy of the stored signature for id, or nil if
// absent.
func (p *Processor) Signature(id string) *BitVector {
	sig, ok := p.signatures[id]
	if !ok {
		return nil
	}
	return sig.Clone()
}

// Similarity returns the normalized hamming similarity of two stored
// signatures: (bits − distance) / bits, in [0,1], 1.0 iff bit-identical.
// A missing signature degrades to 0.0 with a diagnostic; it never aborts
// the surrounding bucket walk.
func (p *Processor) Similarity(a, b string) float64 {
	sa, okA := p.signatures[a]
	sb, okB := p.signatures[b]
	if !okA || !okB {
		log.Printf("lsh: signatures not found for pair (%s, %s)", a, b)
		return 0.0
	}
	d, err := sa.Hamming(sb)
	if err != nil {
		log.Printf("lsh: cannot compare pair (%s, %s): %v", a, b, err)
		return 0.0
	}
	return float64(p.bitLen-d) / float64(p.bitLen)
}

// walkBuckets compares consecutive pairs in every bucket holding more
// than one image and links pairs that meet the threshold. Only
// consecutive pairs (m0,m1), (m1,m2), ... are compared, which bounds
// per-bucket work to O(n); the cost is that two near-identical images
// separated by a failing neighbor are never linked in this pass.
func (p *Processor) walkBuckets(threshold float64, collectScores bool) {
	for i := range p.buckets {
		b := &p.buckets[i]
		for _, key := range b.order {
			matched := b.members[key]
			if len(matched) < 2 {
				continue
			}
			for j := 0; j+1 < len(matched); j++ {
				a, c := matched[j], matched[j+1]
				similarity := p.Similarity(a, c)
				if similarity < threshold {
					continue
				}
				// Directional: a gets a fresh label if needed, c inherits
				// a's label; c never renames a.
				if _, ok := p.labels[a]; !ok {
					p.labels[a] = p.labelCounter
					p.labelCounter++
				}
				if _, ok := p.labels[c]; !ok {
					p.labels[c] = p.labels[a]
				}
				if collectScores {
					p.scores = append(p.scores, Score{A: a, B: c, Similarity: similarity})
				}
			}
		}
	}
}

// AssignLabels walks all band buckets, links pairs at or above the
// threshold, and gives every remaining image a fresh singleton label.
// Every added image ends up with exactly one label.
func (p *Processor) AssignLabels(threshold float64) map[string]int {
	p.walkBuckets(threshold, false)
	for _, id := range p.ids {
		if _, ok := p.labels[id]; !ok {
			p.labels[id] = p.labelCounter
			p.labelCounter++
		}
	}
	return p.labels
}

// SimilarityScores re-walks the buckets with score collection enabled and
// returns one row per compared pair that met the threshold.
func (p *Processor) SimilarityScores(threshold float64) []Score {
	p.walkBuckets(threshold, true)
	return p.scores
}
