package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvFileEnvVar      = "BLINK_REMINDER_ENV"
	DetectorPathEnvVar = "DETECTOR_PATH"
	DetectorArgsEnvVar = "DETECTOR_ARGS"
	DataDirEnvVar      = "DATA_DIR"

	DefaultDetectorName    = "blink_detector"
	DefaultControlPort     = 49560
	DefaultShutdownTimeout = 5 * time.Second
	AppDirName             = "blink-reminder"
)

type LoadOptions struct {
	DetectorPathOverride string
	DataDirOverride      string
	Verbose              bool
}

type Config struct {
	DetectorPath      string
	DetectorArgs      []string
	EnableFileLogging bool
	LogLevel          string
	DataDir           string
	ControlPort       int
	ShutdownTimeout   time.Duration
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use BLINK_REMINDER_ENV as a path to a config file
	envPath := resolveEnvPath()
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	dataDir, err := resolveDataDir(opts)
	if err != nil {
		return nil, err
	}

	shutdownTimeout := DefaultShutdownTimeout
	if n := getEnvInt("SHUTDOWN_TIMEOUT_SEC", 0); n > 0 {
		shutdownTimeout = time.Duration(n) * time.Second
	}

	logLevel := strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info"))
	if opts.Verbose {
		logLevel = "debug"
	}

	cfg := &Config{
		DetectorPath:      resolveDetectorPath(opts),
		DetectorArgs:      strings.Fields(os.Getenv(DetectorArgsEnvVar)),
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		LogLevel:          logLevel,
		DataDir:           dataDir,
		ControlPort:       getEnvInt("CONTROL_PORT", DefaultControlPort),
		ShutdownTimeout:   shutdownTimeout,
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveDetectorPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.DetectorPathOverride); override != "" {
		return override
	}
	if envPath := strings.TrimSpace(os.Getenv(DetectorPathEnvVar)); envPath != "" {
		return envPath
	}

	name := DefaultDetectorName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if execPath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(execPath), name)
	}
	return name
}

func resolveDataDir(opts LoadOptions) (string, error) {
	if override := strings.TrimSpace(opts.DataDirOverride); override != "" {
		return override, nil
	}
	if envDir := strings.TrimSpace(os.Getenv(DataDirEnvVar)); envDir != "" {
		return envDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppDirName), nil
}

// DetectorProcessName is the executable name used when the detector has to be
// killed by name.
func (c *Config) DetectorProcessName() string {
	return strings.TrimSuffix(filepath.Base(c.DetectorPath), ".exe")
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
