// Package config provides environment helpers for body-echo commands.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable prefix for all settings.
const Prefix = "BODY_ECHO_"

// LoadDotEnv loads variables from .env files without overriding the
// process environment. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// String returns the value of PREFIX+key, or def if unset.
func String(key, def string) string {
	if v := os.Getenv(Prefix + key); v != "" {
		return v
	}
	return def
}

// Int returns PREFIX+key parsed as an int, or def if unset or invalid.
func Int(key string, def int) int {
	if v := os.Getenv(Prefix + key); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

// Float returns PREFIX+key parsed as a float64, or def if unset or invalid.
func Float(key string, def float64) float64 {
	if v := os.Getenv(Prefix + key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// Bool returns PREFIX+key parsed as a bool, or def if unset or invalid.
func Bool(key string, def bool) bool {
	if v := os.Getenv(Prefix + key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// Duration returns PREFIX+key parsed as a duration, or def if unset or invalid.
func Duration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(Prefix + key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
