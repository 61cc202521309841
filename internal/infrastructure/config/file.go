package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// LoadFile reads a flat YAML or TOML file keyed by environment variable
// names, applies each entry that the environment does not already set, then
// loads as usual. Precedence is environment, then file, then defaults.
//
//	# defcomm.yaml
//	BRIDGE_EVAL_TIMEOUT: 1500ms
//	FETCH_USER_AGENT: DefcommBrowser/0.1
func LoadFile(path string) (*Config, error) {
	entries, err := readFile(path)
	if err != nil {
		return nil, err
	}

	for key, value := range entries {
		key = strings.ToUpper(key)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return nil, fmt.Errorf("apply %s from %s: %w", key, path, err)
		}
	}

	return Load()
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var parsed map[string]interface{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("TOML parse error: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}

	entries := make(map[string]string, len(parsed))
	for key, value := range parsed {
		switch v := value.(type) {
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("config key %s: nested values are not supported", key)
		case nil:
			continue
		default:
			entries[key] = fmt.Sprint(v)
		}
	}
	return entries, nil
}
