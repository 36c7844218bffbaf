package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "COFFEEDIA_"

// environment merges the variables of dotenvPath (if the file exists) with
// the process environment. Process variables win.
func environment(dotenvPath string) (map[string]string, error) {
	vars, err := godotenv.Read(dotenvPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", dotenvPath, err)
		}
		vars = map[string]string{}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, envPrefix) {
			vars[k] = v
		}
	}
	return vars, nil
}

// parseEnv overlays cfg with COFFEEDIA_* variables. Durations accept Go
// duration strings; EXPIRY_CHECK_INTERVAL also accepts plain seconds.
func parseEnv(cfg *Config, env map[string]string) error {
	str := func(name string, dst *string) {
		if v, ok := env[envPrefix+name]; ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := env[envPrefix+name]
		if !ok || v == "" {
			return nil
		}
		if secs, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(secs) * time.Second
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("SERVER_URL", &cfg.ServerURL)
	str("API_PREFIX", &cfg.APIPrefix)
	str("DATABASE_PATH", &cfg.DatabasePath)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	if err := dur("REQUEST_TIMEOUT", &cfg.RequestTimeout); err != nil {
		return err
	}
	if err := dur("EXPIRY_CHECK_INTERVAL", &cfg.ExpiryCheckInterval); err != nil {
		return err
	}
	return dur("REFRESH_THRESHOLD", &cfg.RefreshThreshold)
}
