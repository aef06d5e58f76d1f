package config

import (
	"os"
	"strconv"
)

// Defaults mirror the values the server ships with. Every field can be
// overridden independently through a BARA_* environment variable.
const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8765
	DefaultDBPath      = "barachat.db"
	DefaultUploadDir   = "uploads"
	DefaultJWTSecret   = "change-me-in-production"
	DefaultMaxFileSize = 50 * 1024 * 1024 // 50 MiB
)

// Config holds the server configuration.
type Config struct {
	Host      string
	Port      int
	Debug     bool
	DBPath    string
	UploadDir string

	// TLS; both empty means plain HTTP.
	CertFile string
	KeyFile  string

	JWTSecret   string
	MaxFileSize int64
}

// FromEnv loads configuration from environment variables, falling back to
// defaults for anything unset or unparseable.
func FromEnv() Config {
	return Config{
		Host:        getString("BARA_HOST", DefaultHost),
		Port:        getInt("BARA_PORT", DefaultPort),
		Debug:       getString("BARA_DEBUG", "false") == "true",
		DBPath:      getString("BARA_DB_PATH", DefaultDBPath),
		UploadDir:   getString("BARA_UPLOAD_DIR", DefaultUploadDir),
		CertFile:    os.Getenv("BARA_CERT_FILE"),
		KeyFile:     os.Getenv("BARA_KEY_FILE"),
		JWTSecret:   getString("BARA_JWT_SECRET", DefaultJWTSecret),
		MaxFileSize: getInt64("BARA_MAX_FILE_SIZE", DefaultMaxFileSize),
	}
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// TLSEnabled reports whether both certificate and key paths are configured.
func (c Config) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
