package serial

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Serializer renders a snapshot document for publication.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	// Ext is the file extension, without dot, used for published documents.
	Ext() string
}

// YAML serializes snapshots as YAML documents.
type YAML struct{}

func (YAML) Marshal(v any) ([]byte, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return out, nil
}

func (YAML) Ext() string { return "yaml" }

// JSON serializes snapshots as indented JSON documents.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return append(out, '\n'), nil
}

func (JSON) Ext() string { return "json" }

// ForFormat returns the serializer for a format name, defaulting to YAML.
func ForFormat(format string) Serializer {
	if format == "json" {
		return JSON{}
	}
	return YAML{}
}
