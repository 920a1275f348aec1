package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// DefaultPath is used when CHOMPY_CONFIG is not set.
const DefaultPath = "configs/config.yaml"

// DefaultEnvFile is the dotenv file loaded before configuration.
const DefaultEnvFile = ".env"

// LoadEnvFile loads KEY=value pairs from path into the process environment
// so CHOMPY_* overrides can live next to the binary.
//
// Variables already set in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Path returns the configuration file path from CHOMPY_CONFIG, or DefaultPath.
func Path() string {
	if path := os.Getenv("CHOMPY_CONFIG"); path != "" {
		return path
	}
	return DefaultPath
}
