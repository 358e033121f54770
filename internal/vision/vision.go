// Package vision provides camera frames, face detection and identification of
// detected faces against enrolled reference photos.
package vision

import (
	"context"
	"errors"
	"image"
)

var (
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrNoDetector        = errors.New("no face detector configured")
	ErrFrameRead         = errors.New("failed to read frame")
)

// Region is one detected face.
type Region struct {
	Rect  image.Rectangle `json:"rect"`
	Score float64         `json:"score,omitempty"`
}

// Rects returns the rectangles of the regions.
func Rects(regions []Region) []image.Rectangle {
	rects := make([]image.Rectangle, len(regions))
	for i, r := range regions {
		rects[i] = r.Rect
	}
	return rects
}

// Source yields camera frames.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// Detector finds faces in a frame.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Region, error)
	Close() error
}
