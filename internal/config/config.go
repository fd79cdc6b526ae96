// Package config loads ambient configuration (.env files, environment
// variables, data directories) shared by every nsflow subcommand. Run
// parameters proper (nlive, tolerance, ...) are Cobra flags with their own
// built-in defaults; the Default* values this package resolves are not
// applied to those flags.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the ambient application configuration.
type AppConfig struct {
	DataPath string
	CacheDir string // <DataPath>/cache, created by Load; no component writes to it

	DefaultNlive        int
	DefaultTolerance    float64
	DefaultSeed         int64
	DefaultNPool        int
	DefaultCheckpointing bool
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("loaded configuration from binary directory")
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	dataPath := os.Getenv("NSFLOW_DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	cacheDir := filepath.Join(dataPath, "cache")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cacheDir).Msg("failed to create cache directory")
	}

	nlive, _ := strconv.Atoi(getEnv("NSFLOW_NLIVE", "1000"))
	tolerance, _ := strconv.ParseFloat(getEnv("NSFLOW_TOLERANCE", "0.1"), 64)
	seed, _ := strconv.ParseInt(getEnv("NSFLOW_SEED", "0"), 10, 64)
	npool, _ := strconv.Atoi(getEnv("NSFLOW_NPOOL", "1"))

	cfg := &AppConfig{
		DataPath:             dataPath,
		CacheDir:             cacheDir,
		DefaultNlive:         nlive,
		DefaultTolerance:     tolerance,
		DefaultSeed:          seed,
		DefaultNPool:         npool,
		DefaultCheckpointing: getEnvBool("NSFLOW_CHECKPOINTING", true),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
