//go:build gocv

package vision

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

const cascadeFile = "haarcascade_frontalface_default.xml"

var cascadeSearchPaths = []string{
	cascadeFile,
	"/usr/local/share/opencv4/haarcascades/" + cascadeFile,
	"/usr/share/opencv4/haarcascades/" + cascadeFile,
	"/opt/homebrew/share/opencv4/haarcascades/" + cascadeFile,
}

// webcam reads frames from a local capture device.
type webcam struct {
	mu  sync.Mutex
	cap *gocv.VideoCapture
	mat gocv.Mat
}

func openDevice(device int) (Source, error) {
	c, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	if !c.IsOpened() {
		c.Close()
		return nil, fmt.Errorf("%w: device %d", ErrCameraUnavailable, device)
	}
	return &webcam{cap: c, mat: gocv.NewMat()}, nil
}

func (w *webcam) Read(_ context.Context) (image.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ok := w.cap.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, ErrFrameRead
	}
	img, err := w.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameRead, err)
	}
	return img, nil
}

func (w *webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.mat.Close()
	return w.cap.Close()
}

// cascade detects faces with an OpenCV Haar classifier.
type cascade struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

func openCascade(path string) (Detector, error) {
	classifier := gocv.NewCascadeClassifier()

	candidates := cascadeSearchPaths
	if path != "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, cascadeFile)
		}
		candidates = []string{path}
	}
	for _, p := range candidates {
		if classifier.Load(p) {
			return &cascade{classifier: classifier}, nil
		}
	}

	classifier.Close()
	return nil, fmt.Errorf("%w: failed to load %s", ErrNoDetector, cascadeFile)
}

func (c *cascade) Detect(_ context.Context, img image.Image) ([]Region, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	c.mu.Lock()
	rects := c.classifier.DetectMultiScaleWithParams(gray, 1.1, 4, 0, image.Point{}, image.Point{})
	c.mu.Unlock()

	origin := img.Bounds().Min
	regions := make([]Region, len(rects))
	for i, r := range rects {
		regions[i] = Region{Rect: r.Add(origin)}
	}
	return regions, nil
}

func (c *cascade) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classifier.Close()
}
