package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"resonance-server/internal/events"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	schema := reflector.Reflect(new(events.Event))
	schema.Title = "Resonance Event Envelope"
	schema.Description = "Validates event envelopes published on the /api/events/stream socket"

	// The envelope carries a payload typed per event kind. Fold every
	// payload shape into the definitions so stream consumers can generate
	// bindings for all of them from one file.
	for _, payload := range []interface{}{
		new(events.ExtractionPayload),
		new(events.PacketPayload),
		new(events.OrbPayload),
		new(events.TransferPayload),
		new(events.RelayPayload),
		new(events.StoragePayload),
	} {
		sub := reflector.Reflect(payload)
		for name, def := range sub.Definitions {
			schema.Definitions[name] = def
		}
	}

	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
