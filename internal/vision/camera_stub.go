//go:build !gocv

package vision

import "fmt"

func openDevice(device int) (Source, error) {
	return nil, fmt.Errorf("%w: webcam %d needs a build with -tags gocv, or set CAMERA_SNAPSHOT_FILE or CAMERA_SNAPSHOT_URL",
		ErrCameraUnavailable, device)
}

func openCascade(_ string) (Detector, error) {
	return nil, fmt.Errorf("%w: set FACE_DETECTOR_URL or build with -tags gocv", ErrNoDetector)
}
