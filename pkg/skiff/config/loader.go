package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches environment variable references in config
// values:
//   - ${VAR_NAME}          - simple variable
//   - ${VAR_NAME:-default} - default value if not set
//   - ${VAR_NAME:?error}   - error message if not set
//   - $VAR_NAME            - bare variable
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::(-|\?)([^}]*))?\}|\$([A-Z_][A-Z0-9_]*)`)

// LoadFromFile reads a YAML config, loading .env files first and
// expanding environment variable references before parsing. Defaults
// fill in anything the file leaves out.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded, err := expandEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("expanding environment variables: %w", err)
	}

	return Parse([]byte(expanded))
}

// Parse parses YAML bytes over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

// IsEnvReference reports whether a value still looks like an
// unexpanded ${VAR} reference.
func IsEnvReference(value string) bool {
	return envVarPattern.MatchString(value)
}

// loadEnvFiles loads .env files from standard locations. godotenv does
// not overwrite variables already present in the environment.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars substitutes environment variable references, honoring
// :- defaults and failing on unset :? required variables.
func expandEnvVars(content string) (string, error) {
	var expandErr error
	expanded := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)

		name := groups[1]
		if name == "" {
			name = groups[4]
		}
		if val, ok := os.LookupEnv(name); ok && val != "" {
			return val
		}

		switch groups[2] {
		case "-":
			return groups[3]
		case "?":
			msg := groups[3]
			if msg == "" {
				msg = "required but not set"
			}
			if expandErr == nil {
				expandErr = fmt.Errorf("environment variable %s: %s", name, msg)
			}
		}
		return ""
	})
	if expandErr != nil {
		return "", expandErr
	}
	return expanded, nil
}
