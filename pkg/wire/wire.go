// Package wire is the stable, versioned serialization of PipelineResult.
package wire

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"DeSynth/pkg/models"
)

//go:embed pipeline_result.schema.json
var schemaJSON []byte

const schemaURL = "pipeline_result.schema.json"

// ErrSchemaVersion is returned when decoding a result written by another wire version
var ErrSchemaVersion = errors.New("unsupported schema version")

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Schema returns the compiled JSON schema of the wire format
func Schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// SchemaJSON returns the raw schema document
func SchemaJSON() []byte {
	return bytes.Clone(schemaJSON)
}

// Marshal encodes a result as compact JSON
func Marshal(r *models.PipelineResult) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return data, nil
}

// MarshalIndent encodes a result as indented JSON for humans
func MarshalIndent(r *models.PipelineResult) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return data, nil
}

// MarshalYAML renders a result as YAML
func MarshalYAML(r *models.PipelineResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode result as yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks an encoded result against the wire schema
func Validate(data []byte) error {
	s, err := Schema()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("result does not match schema: %w", err)
	}
	return nil
}

// Unmarshal validates and decodes a result
func Unmarshal(data []byte) (*models.PipelineResult, error) {
	var head struct {
		SchemaVersion string `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if head.SchemaVersion != models.SchemaVersion {
		return nil, fmt.Errorf("%w: %q", ErrSchemaVersion, head.SchemaVersion)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}

	var r models.PipelineResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &r, nil
}
