// Copyright (c) 2026 WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package config provides configuration management for the QR code tool.
// It loads configuration from environment variables (optionally seeded from a
// .env file) with sensible defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
	MinSize         int
	MaxSize         int
	DefaultSize     int

	// DefaultErrorCorrection is one of L, M, Q, H.
	DefaultErrorCorrection string

	// MaxLogoBytes is the hard upload limit enforced by the HTTP layer.
	MaxLogoBytes int64
	// LogoSoftLimit is advisory: larger logos are accepted but flagged.
	LogoSoftLimit int64
	// LogoScale is the logo edge length as a fraction of the QR edge.
	LogoScale float64

	RenderDebounce       time.Duration
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// A missing file is not an error; the process environment is used as-is.
func LoadDotEnv(logger *zap.Logger, filenames ...string) {
	if err := godotenv.Load(filenames...); err != nil {
		logger.Debug("No .env file found, using environment variables")
		return
	}
	logger.Info(".env file loaded successfully")
}

// LoadConfig reads configuration from environment variables and returns a Config instance.
func LoadConfig() *Config {
	return &Config{
		Port:                   getEnv("PORT", "8080"),
		ReadTimeout:            getEnvDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:           getEnvDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout:        getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		MaxBodySize:            getEnvInt64("MAX_BODY_SIZE", 524288),
		MinSize:                getEnvInt("MIN_SIZE", 64),
		MaxSize:                getEnvInt("MAX_SIZE", 2048),
		DefaultSize:            getEnvInt("DEFAULT_SIZE", 256),
		DefaultErrorCorrection: strings.ToUpper(getEnv("DEFAULT_ERROR_CORRECTION", "M")),
		MaxLogoBytes:           getEnvInt64("MAX_LOGO_BYTES", 5<<20),
		LogoSoftLimit:          getEnvInt64("LOGO_SOFT_LIMIT", 1<<20),
		LogoScale:              getEnvFloat("LOGO_SCALE", 0.22),
		RenderDebounce:         getEnvDuration("RENDER_DEBOUNCE", 0),
		SessionTTL:             getEnvDuration("SESSION_TTL", 30*time.Minute),
		SessionSweepInterval:   getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
	}
}

// getEnv retrieves a string environment variable or returns fallback if not set.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvDuration retrieves a duration environment variable or returns fallback.
// Negative durations are rejected.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d >= 0 {
			return d
		}
	}
	return fallback
}

// getEnvInt retrieves an int environment variable or returns fallback (only accepts positive values).
func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

// getEnvInt64 retrieves an int64 environment variable or returns fallback (only accepts positive values).
func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			if i > 0 {
				return i
			}
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable in (0, 1) or returns fallback.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 && f < 1 {
			return f
		}
	}
	return fallback
}
