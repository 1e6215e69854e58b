// Package config provides environment configuration helpers for go-fortuna commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults for the coordinator service.
const (
	DefaultPort      = "8090"
	DefaultStorePath = "fortuna-collection.json"
)

// Getenv returns the value of key, or fallback if unset or empty.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetenvInt returns the integer value of key, or fallback on unset or parse failure.
func GetenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// GetenvFloat returns the float value of key, or fallback on unset or parse failure.
func GetenvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// GetenvDuration returns the duration value of key (e.g. "12s"), or fallback.
func GetenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// Port returns the dashboard listen port from FORTUNA_PORT.
func Port() string {
	return Getenv("FORTUNA_PORT", DefaultPort)
}

// StorePath returns the collection store path from FORTUNA_STORE_PATH.
func StorePath() string {
	return Getenv("FORTUNA_STORE_PATH", DefaultStorePath)
}

// ClassifierBackend returns the classifier backend name from FORTUNA_CLASSIFIER.
// Known values: "gemini", "openai", "cloudvision", "mock".
func ClassifierBackend() string {
	return Getenv("FORTUNA_CLASSIFIER", "gemini")
}

// GeminiAPIKey returns GEMINI_API_KEY, or "" if unset.
func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// OpenAIAPIKey returns OPENAI_API_KEY, or "" if unset.
func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// YOLOModelPath returns the ONNX model path from FORTUNA_YOLO_MODEL, or "" if unset.
func YOLOModelPath() string {
	return os.Getenv("FORTUNA_YOLO_MODEL")
}
