package vision

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/fingerprint"
)

// OpenSource picks a frame source from the camera configuration: a snapshot
// URL, then a snapshot file, then the local webcam device (gocv builds only).
func OpenSource(cfg config.CameraConfig) (Source, error) {
	switch {
	case cfg.SnapshotURL != "":
		return NewHTTPSource(cfg.SnapshotURL), nil
	case cfg.SnapshotFile != "":
		if _, err := os.Stat(cfg.SnapshotFile); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
		}
		return NewFileSource(cfg.SnapshotFile), nil
	default:
		return openDevice(cfg.Device)
	}
}

// FileSource reads frames from an image file that an external capture tool keeps rewriting.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Read(_ context.Context) (image.Image, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameRead, err)
	}
	img, err := fingerprint.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameRead, err)
	}
	return img, nil
}

func (s *FileSource) Close() error {
	return nil
}

// HTTPSource fetches frames from an IP camera snapshot endpoint.
type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *HTTPSource) Read(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameRead, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameRead, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: snapshot status %d", ErrFrameRead, resp.StatusCode)
	}

	img, err := fingerprint.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameRead, err)
	}
	return img, nil
}

func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
