package fingerprint

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Template is a square grayscale image flattened row by row, mean-centred
// and scaled to unit length. The dot product of two templates of the same
// size equals their normalised correlation coefficient.
type Template struct {
	Size   int
	Vector []float32
	Flat   bool // uniform image, correlates with nothing
}

// NewTemplate scales img to size x size grayscale and normalises it.
func NewTemplate(img image.Image, size int) Template {
	gray := toGrayscale(resizeImage(img, size, size))

	values := make([]float64, 0, size*size)
	var sum float64
	for y := range size {
		for x := range size {
			values = append(values, gray[x][y])
			sum += gray[x][y]
		}
	}
	mean := sum / float64(len(values))

	var norm float64
	for i, v := range values {
		values[i] = v - mean
		norm += values[i] * values[i]
	}
	norm = math.Sqrt(norm)

	t := Template{Size: size, Vector: make([]float32, len(values))}
	if norm < 1e-9 {
		t.Flat = true
		return t
	}
	for i, v := range values {
		t.Vector[i] = float32(v / norm)
	}
	return t
}

// Correlation returns the normalised correlation coefficient of two templates,
// in [-1, 1]. Flat templates and templates of different sizes score 0.
func Correlation(a, b Template) float64 {
	if a.Flat || b.Flat || len(a.Vector) != len(b.Vector) || len(a.Vector) == 0 {
		return 0
	}
	var dot float64
	for i := range a.Vector {
		dot += float64(a.Vector[i]) * float64(b.Vector[i])
	}
	return math.Max(-1, math.Min(1, dot))
}

// Crop returns the part of img inside rect, clipped to the image bounds.
// An empty intersection returns the whole image.
func Crop(img image.Image, rect image.Rectangle) image.Image {
	r := rect.Intersect(img.Bounds())
	if r.Empty() {
		return img
	}
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// Largest returns the rectangle with the largest area.
func Largest(rects []image.Rectangle) (image.Rectangle, bool) {
	var best image.Rectangle
	bestArea := -1
	for _, r := range rects {
		if a := r.Dx() * r.Dy(); a > bestArea {
			best, bestArea = r, a
		}
	}
	return best, bestArea >= 0
}
