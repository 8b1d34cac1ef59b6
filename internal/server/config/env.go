package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/authservice/internal/flagx"
)

// EnvPrefix is prepended to every variable name declared in Config tags.
const EnvPrefix = "AUTH_"

const defaultEnvFile = ".env"

// parseEnv loads the dotenv file (path from -env, ".env" by default) into
// the process environment and then overlays AUTH_* variables onto config.
// A missing dotenv file is not an error. Variables already present in the
// environment win over the file.
func parseEnv(config *Config, args []string) error {
	path := flagx.EnvFileFlag(args, defaultEnvFile)
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
