// Package fingerprint turns images into fixed-length bit-vector
// signatures for near-duplicate detection. The signature is a difference
// hash: the image is shrunk to a small grayscale grid and each bit
// records whether a pixel is brighter than its right neighbor, so
// visually similar images produce signatures with low hamming distance.
package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/couckoo/couckoo/internal/lsh"
)

// Generator computes hashSize² bit signatures. All signatures produced
// by one Generator have the same length, which the LSH engine requires.
type Generator struct {
	hashSize int
}

// NewGenerator creates a Generator producing hashSize² bit signatures.
func NewGenerator(hashSize int) *Generator {
	return &Generator{hashSize: hashSize}
}

// Signature reads and fingerprints the image at path. It returns an
// error when the file cannot be read or decoded; callers treat that as
// "skip this image".
func (g *Generator) Signature(path string) (*lsh.BitVector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return g.FromBytes(data)
}

// FromBytes fingerprints an encoded image (PNG, JPEG, GIF or BMP).
func (g *Generator) FromBytes(data []byte) (*lsh.BitVector, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return g.fromImage(img), nil
}

// fromImage computes the difference hash. The image is resized to
// (hashSize+1)×hashSize so each of the hashSize rows yields hashSize
// horizontal comparisons.
func (g *Generator) fromImage(img image.Image) *lsh.BitVector {
	n := g.hashSize
	gray := grayscale(resize(img, n+1, n))

	sig := lsh.NewBitVector(n * n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if gray[y][x] > gray[y][x+1] {
				sig.Set(y*n+x, true)
			}
		}
	}
	return sig
}

// resize scales an image to width×height with bilinear interpolation.
func resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// grayscale converts an image to rows of luma values (0-255) using the
// ITU-R BT.601 formula.
func grayscale(img *image.RGBA) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, height)
	for y := 0; y < height; y++ {
		gray[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			gray[y][x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return gray
}
