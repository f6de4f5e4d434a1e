package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
)

// LoadPolicyFile reads an allow-list from a .yaml/.yml or .toml file
func LoadPolicyFile(path string) (action.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return action.Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	p, err := ParsePolicy(data, ext)
	if err != nil {
		return action.Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}

// ParsePolicy decodes a policy document. format is a file extension.
// Unknown keys are rejected so a misspelled list never silently denies.
func ParsePolicy(data []byte, format string) (action.Policy, error) {
	var p action.Policy
	switch strings.TrimPrefix(format, ".") {
	case "yaml", "yml":
		if err := yaml.UnmarshalWithOptions(data, &p, yaml.Strict()); err != nil {
			return p, err
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return p, err
		}
	default:
		return p, fmt.Errorf("unsupported policy format %q", format)
	}
	return p, nil
}

// Merge appends file entries to the env-configured lists
func (p *PolicyConfig) Merge(other action.Policy) {
	p.AllowedActions = append(p.AllowedActions, other.Actions...)
	p.AllowedRoutes = append(p.AllowedRoutes, other.Routes...)
	p.AllowedRoutePrefixes = append(p.AllowedRoutePrefixes, other.RoutePrefixes...)
}
