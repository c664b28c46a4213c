package handlers

import (
	"os"
	"strconv"
	"strings"
)

const (
	defaultMaxUploadSize   int64 = 10 * 1024 * 1024 // 10 MB
	defaultUploadsBasePath       = "./uploads"
)

func resolveMaxUploadSizeBytes() int64 {
	return resolvePositiveInt64Env("RECIPE_MAX_UPLOAD_SIZE_BYTES", defaultMaxUploadSize)
}

// UploadsBasePath returns the directory where uploaded files are stored.
func UploadsBasePath() string {
	value := strings.TrimSpace(os.Getenv("RECIPE_UPLOADS_PATH"))
	if value == "" {
		return defaultUploadsBasePath
	}
	return value
}

func resolvePositiveInt64Env(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return fallback
	}

	return value
}
