package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/hyperjump/tanya/internal/errdefs"
)

const schemaURL = "https://tanya.local/config.schema.json"

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc interface{}
		if err := json.Unmarshal(schemaJSON, &doc); err != nil {
			schemaErr = fmt.Errorf("parse config schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add config schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Validate checks cfg against the embedded JSON Schema and the cross-field rules
// the schema cannot express. Violations are returned as *errdefs.ConfigurationError.
func Validate(cfg *Config) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return schemaViolation(ve)
		}
		return &errdefs.ConfigurationError{Reason: err.Error()}
	}
	if cfg.Ingest.Overlap() >= cfg.Ingest.ChunkSize {
		return &errdefs.ConfigurationError{
			Field:  "ingest.chunk_overlap",
			Reason: fmt.Sprintf("must be smaller than chunk_size (%d >= %d)", cfg.Ingest.Overlap(), cfg.Ingest.ChunkSize),
		}
	}
	if cfg.Retrieval.Hybrid && cfg.Retrieval.KeywordWeight+cfg.Retrieval.SemanticWeight == 0 {
		return &errdefs.ConfigurationError{Field: "retrieval", Reason: "hybrid retrieval needs a non-zero weight"}
	}
	return nil
}

// schemaViolation reports the first leaf cause, which names the offending field.
func schemaViolation(ve *jsonschema.ValidationError) error {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	reason := ve.Error()
	lines := strings.Split(strings.TrimSpace(reason), "\n")
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		reason = strings.TrimPrefix(last, "- ")
	}
	return &errdefs.ConfigurationError{
		Field:  strings.Join(leaf.InstanceLocation, "."),
		Reason: reason,
	}
}
