package store

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec encodes and decodes the data file. Changing codecs is a breaking
// change for files already on disk; there is no version header.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// JSON writes indented JSON so data files diff cleanly.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (JSON) Name() string { return "json" }

type YAML struct{}

func (YAML) Marshal(v any) ([]byte, error) { return yaml.Marshal(v) }

func (YAML) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

func (YAML) Name() string { return "yaml" }

// CodecByName returns a built-in codec.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "yaml", "yml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("unknown codec: %s", name)
	}
}
