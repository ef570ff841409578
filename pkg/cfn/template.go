// Package cfn renders a planned network topology as a CloudFormation template.
package cfn

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const TemplateFormatVersion = "2010-09-09"

// Template is a CloudFormation template document.
// Field order is the order sections are written in.
type Template struct {
	AWSTemplateFormatVersion string              `json:"AWSTemplateFormatVersion"`
	Description              string              `json:"Description,omitempty"`
	Resources                map[string]Resource `json:"Resources"`
	Outputs                  map[string]Output   `json:"Outputs,omitempty"`
}

type Resource struct {
	Type       string         `json:"Type"`
	DependsOn  []string       `json:"DependsOn,omitempty"`
	Properties map[string]any `json:"Properties,omitempty"`
}

type Output struct {
	Description string  `json:"Description,omitempty"`
	Value       any     `json:"Value"`
	Export      *Export `json:"Export,omitempty"`
}

type Export struct {
	Name any `json:"Name"`
}

// JSON renders the template as indented JSON
func (t *Template) JSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// YAML renders the template as block-style YAML.
// The template is encoded to JSON first so intrinsic functions serialize through their MarshalJSON.
func (t *Template) YAML() ([]byte, error) {
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, fmt.Errorf("converting template to yaml: %w", err)
	}
	blockStyle(&doc)
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("converting template to yaml: %w", err)
	}
	return out, nil
}

// blockStyle drops the flow and quoting styles a JSON document decodes with.
// Strings that would read back as another type are still quoted by the encoder.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}

// Export writes the template as <dir>/<name>.yaml, creating dir if needed, and returns the absolute path.
func Export(dir, name string, t *Template) (string, error) {
	content, err := t.YAML()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path, err := filepath.Abs(filepath.Join(dir, name+".yaml"))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("writing template: %w", err)
	}
	return path, nil
}
