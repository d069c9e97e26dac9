package transport

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// HintsFile is the on-disk format for push-capable client classes. Operators
// extend this when they front the assistant with kiosk or in-app clients
// whose user agents the defaults do not cover.
type HintsFile struct {
	PushCapable []string `yaml:"push_capable"`
}

// LoadHints reads user-agent hint classes from a YAML file. Entries are
// lowercased substrings matched against the request user agent.
func LoadHints(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transport hints file %s: %w", path, err)
	}

	var file HintsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse transport hints file %s: %w", path, err)
	}

	hints := make([]string, 0, len(file.PushCapable))
	for _, h := range file.PushCapable {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hints = append(hints, h)
		}
	}
	if len(hints) == 0 {
		return nil, fmt.Errorf("transport hints file %s contains no entries", path)
	}
	return hints, nil
}
