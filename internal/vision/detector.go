package vision

import "github.com/kozaktomas/attendance/internal/config"

// OpenDetector returns the remote face service client when a URL is
// configured, otherwise the local Haar cascade (gocv builds only).
func OpenDetector(cfg config.DetectorConfig) (Detector, error) {
	if cfg.URL != "" {
		return NewRemoteDetector(cfg.URL), nil
	}
	return openCascade(cfg.CascadePath)
}
