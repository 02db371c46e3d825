// Package fsutil holds the small filesystem helpers shared by the driver:
// directory creation and JSON dumps keyed by file name.
package fsutil

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// CreatePath creates path and any missing parents with a permissive mode. An
// existing directory is not an error.
func CreatePath(path string) error {
	if err := os.MkdirAll(path, 0o777); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return nil
}

// DumpJSON writes data to <name>.json and returns the file name. An empty name
// is replaced with a random UUID.
func DumpJSON(data interface{}, name string) (string, error) {
	if name == "" {
		name = uuid.NewString()
	}
	filename := jsonName(name)

	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshaling %s: %w", filename, err)
	}
	if err := os.WriteFile(filename, raw, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", filename, err)
	}
	return filename, nil
}

// LoadJSON decodes <name>.json into v.
func LoadJSON(name string, v interface{}) error {
	filename := jsonName(name)

	raw, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filename, err)
	}
	return nil
}

func jsonName(name string) string {
	if strings.HasSuffix(name, ".json") {
		return name
	}
	return name + ".json"
}
