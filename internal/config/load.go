package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
)

// Load reads, strictly decodes and validates the config file. YAML and
// JSON are both accepted; unknown fields are rejected so typos fail fast
// instead of silently scheduling nothing.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	jb, format, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, fmt.Errorf("config %s (%s): %w", path, format, err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("config %s: trailing data", path)
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// credentialVars are forwarded from the environment to the upload command.
var credentialVars = []string{
	"INSTAGRAM_USERNAME",
	"INSTAGRAM_PASSWORD",
	"CHROME_DRIVER_PATH",
	"USER_DATA_DIR",
}

// LoadEnv pulls a .env file (if present) into the process environment.
// Credentials deliberately never live in the config file.
func LoadEnv() {
	_ = godotenv.Load()
}

// CredentialEnv returns the KEY=VALUE pairs the upload command needs,
// from the current environment. Missing variables are omitted; the
// upload command decides whether it can prompt instead.
func CredentialEnv() []string {
	var env []string
	for _, k := range credentialVars {
		if v, ok := os.LookupEnv(k); ok {
			env = append(env, k+"="+v)
		}
	}
	return env
}
