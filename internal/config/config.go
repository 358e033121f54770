package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kozaktomas/attendance/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Storage     StorageConfig
	Camera      CameraConfig
	Detector    DetectorConfig
	Recognition RecognitionConfig
	Database    DatabaseConfig
	Web         WebConfig
	Seed        SeedConfig
}

type StorageConfig struct {
	DataDir string // defaults to the working directory
}

// Path returns the absolute location of a data file inside the data directory.
func (c *StorageConfig) Path(name string) string {
	return filepath.Join(c.DataDir, name)
}

func (c *StorageConfig) TallyPath() string    { return c.Path(constants.TallyFile) }
func (c *StorageConfig) StudentsPath() string { return c.Path(constants.StudentsFile) }
func (c *StorageConfig) RegisterPath() string { return c.Path(constants.RegisterFile) }
func (c *StorageConfig) UsersPath() string    { return c.Path(constants.UsersFile) }
func (c *StorageConfig) ImagesDir() string    { return c.Path(constants.ImagesDir) }

type CameraConfig struct {
	Device       int    // webcam index, used by gocv builds
	SnapshotFile string // image file refreshed by an external capture tool
	SnapshotURL  string // IP camera snapshot endpoint
}

type DetectorConfig struct {
	URL         string // face service exposing /embed/face
	CascadePath string // Haar cascade XML, used by gocv builds
}

type RecognitionConfig struct {
	Threshold       float64
	TemplateSize    int
	Cooldown        time.Duration
	PollInterval    time.Duration // auto-marking sessions
	ConsoleInterval time.Duration // detection-only console poller
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL, mirror disabled when empty
	MaxOpenConns int    // Maximum open connections (default 10)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type WebConfig struct {
	Host          string
	Port          int
	SessionSecret string
}

// SeedConfig holds the first-run data embedded in defaults.yaml.
type SeedConfig struct {
	Roster []SeedPerson `yaml:"roster"`
	Users  []SeedUser   `yaml:"users"`
}

type SeedPerson struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type SeedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Name     string `yaml:"name"`
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float in (0, 1].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive time.Duration ("500ms", "3s").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// LoadSeed decodes the embedded defaults.yaml.
func LoadSeed() SeedConfig {
	var seed SeedConfig
	if err := yaml.Unmarshal(defaultsYAML, &seed); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return seed
}

func Load() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: envString("ATTENDANCE_DATA_DIR", "."),
		},
		Camera: CameraConfig{
			Device:       envInt("CAMERA_DEVICE", 0),
			SnapshotFile: os.Getenv("CAMERA_SNAPSHOT_FILE"),
			SnapshotURL:  os.Getenv("CAMERA_SNAPSHOT_URL"),
		},
		Detector: DetectorConfig{
			URL:         os.Getenv("FACE_DETECTOR_URL"),
			CascadePath: os.Getenv("FACE_CASCADE_PATH"),
		},
		Recognition: RecognitionConfig{
			Threshold:       envFloat("MATCH_THRESHOLD", constants.DefaultMatchThreshold),
			TemplateSize:    envInt("TEMPLATE_SIZE", constants.DefaultTemplateSize),
			Cooldown:        envDuration("MARK_COOLDOWN", constants.DefaultCooldown),
			PollInterval:    envDuration("POLL_INTERVAL", constants.WatchPollInterval),
			ConsoleInterval: envDuration("CONSOLE_POLL_INTERVAL", constants.ConsolePollInterval),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Web: WebConfig{
			Host:          envString("WEB_HOST", "0.0.0.0"),
			Port:          envInt("WEB_PORT", 8080),
			SessionSecret: os.Getenv("WEB_SESSION_SECRET"),
		},
		Seed: LoadSeed(),
	}
}
