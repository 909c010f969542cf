package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup. The Imagen API key is
// deliberately absent: it is supplied by the user per request and never kept.
type Config struct {
	Addr        string
	Endpoint    string
	Model       string
	SampleCount int
	HTTPTimeout time.Duration
	Debug       bool
}

func Load() Config {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load(".env", ".env.local")

	return Config{
		Addr:        getenv("ADDR", ":8080"),
		Endpoint:    getenv("IMAGEN_ENDPOINT", "https://generativelanguage.googleapis.com"),
		Model:       getenv("IMAGEN_MODEL", "imagen-3.0-generate-002"),
		SampleCount: getenvInt("SAMPLE_COUNT", 3),
		HTTPTimeout: getenvDuration("HTTP_TIMEOUT", 60*time.Second),
		Debug:       os.Getenv("DEBUG") != "",
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil && v > 0 {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(k)); err == nil && v > 0 {
		return v
	}
	return def
}
