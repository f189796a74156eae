package common

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"
)

// RelayConfigCandidates lists config file names in order of precedence.
var RelayConfigCandidates = []string{"chatrelay.yml", "chatrelay.yaml", "chatrelay.toml", "chatrelay.json"}

// ConfigDiscoveryResult holds the result of discovering config files
type ConfigDiscoveryResult struct {
	// ChosenPath is the highest precedence existing file, empty if none exist
	ChosenPath string
	// AllFound contains every candidate that exists, so callers can warn about shadowed files
	AllFound []string
}

// DiscoverConfigFile returns the first existing candidate in dir as the chosen
// path, along with every candidate that exists.
func DiscoverConfigFile(dir string, candidates []string) ConfigDiscoveryResult {
	result := ConfigDiscoveryResult{}

	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			result.AllFound = append(result.AllFound, path)
			if result.ChosenPath == "" {
				result.ChosenPath = path
			}
		}
	}

	return result
}

// DiscoverRelayConfig resolves the config file to load. CHATRELAY_CONFIG wins,
// then the working directory, then the XDG config home. The returned result
// has an empty ChosenPath when nothing was found.
func DiscoverRelayConfig(workingDir string) ConfigDiscoveryResult {
	if path := os.Getenv("CHATRELAY_CONFIG"); path != "" {
		return ConfigDiscoveryResult{ChosenPath: path, AllFound: []string{path}}
	}

	result := DiscoverConfigFile(workingDir, RelayConfigCandidates)
	if result.ChosenPath != "" {
		return result
	}
	return DiscoverConfigFile(GetConfigHome(), RelayConfigCandidates)
}

// GetConfigHome is the XDG config directory for chatrelay. It is not created.
func GetConfigHome() string {
	return filepath.Join(xdg.ConfigHome, "chatrelay")
}

// GetParserForExtension returns the koanf parser for .yml, .yaml, .toml or
// .json files, and nil otherwise.
func GetParserForExtension(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return yaml.Parser()
	case ".toml":
		return toml.Parser()
	case ".json":
		return json.Parser()
	default:
		return nil
	}
}
