// Package config loads the packaged configuration document that seeds the
// persisted settings.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/infrastructure/logging"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Document is a decoded configuration document. Values have JSON shapes:
// numbers are float64, objects are map[string]any.
type Document map[string]any

//go:embed default.yaml
var defaultDocument []byte

//go:embed schema.json
var schemaDocument []byte

const schemaURL = "bigscreen-config.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaDocument)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// Default returns the built-in configuration document
func Default() Document {
	doc, err := Parse(defaultDocument, ".yaml")
	if err != nil {
		panic(fmt.Sprintf("built-in config is invalid: %v", err))
	}
	return doc
}

// Parse decodes data as YAML or TOML (by extension) and normalizes it to JSON shapes
func Parse(data []byte, ext string) (Document, error) {
	raw := map[string]any{}

	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	doc := Document{}
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	return doc, nil
}

// Validate checks doc against the embedded schema
func Validate(doc Document) error {
	s, err := schema()
	if err != nil {
		return err
	}
	return s.Validate(map[string]any(doc))
}

// LoadFile reads, parses and validates the document at path
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap("LoadConfig", err)
	}
	doc, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, apperrors.ConfigError("LoadConfig", path, err)
	}
	if err := Validate(doc); err != nil {
		return nil, apperrors.ConfigError("LoadConfig", path, fmt.Errorf("validate: %w", err))
	}
	return doc, nil
}

// Load returns the packaged document at path. A missing file yields the
// built-in default (logged at warn); an unreadable or invalid file is an error.
func Load(path string, logger logging.Logger) (Document, error) {
	doc, err := LoadFile(path)
	if err == nil {
		return doc, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		if logger != nil {
			logger.Warn("Packaged config not found, using built-in defaults", "path", path)
		}
		return Default(), nil
	}
	return nil, err
}

// LoadWithOverride loads the packaged document and merges the optional user
// document at overridePath over it. An empty overridePath skips the merge.
func LoadWithOverride(path, overridePath string, logger logging.Logger) (Document, error) {
	base, err := Load(path, logger)
	if err != nil {
		return nil, err
	}
	if overridePath == "" {
		return base, nil
	}

	data, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, apperrors.ConfigError("LoadConfigOverride", overridePath, err)
	}
	user, err := Parse(data, filepath.Ext(overridePath))
	if err != nil {
		return nil, apperrors.ConfigError("LoadConfigOverride", overridePath, err)
	}

	merged := Merge(base, user)
	if err := Validate(merged); err != nil {
		return nil, apperrors.ConfigError("LoadConfigOverride", overridePath, fmt.Errorf("validate: %w", err))
	}
	return merged, nil
}

// Merge returns a new document holding defaults overlaid by user.
// The merge is shallow: a user key replaces the default value wholesale.
func Merge(defaults, user Document) Document {
	out := make(Document, len(defaults)+len(user))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range user {
		out[k] = v
	}
	return out
}

// String returns the string value of key, or "" when absent or not a string
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}
