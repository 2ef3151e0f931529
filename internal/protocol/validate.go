package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var schemaFiles = map[string]string{
	TypeHello:     "hello.schema.json",
	TypeWelcome:   "welcome.schema.json",
	TypeViewpoint: "viewpoint.schema.json",
	TypeFrame:     "frame.schema.json",
	TypeError:     "error.schema.json",
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() {
	schemas = map[string]*jsonschema.Schema{}
	for typ, name := range schemaFiles {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = err
			return
		}
		s, err := jsonschema.CompileString(name, string(b))
		if err != nil {
			schemasErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		schemas[typ] = s
	}
}

// Schema returns the compiled schema for a message type.
func Schema(typ string) (*jsonschema.Schema, error) {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[typ]
	if !ok {
		return nil, fmt.Errorf("no schema for message type %q", typ)
	}
	return s, nil
}

// SchemaSource returns the raw schema text for a message type.
func SchemaSource(typ string) ([]byte, error) {
	name, ok := schemaFiles[typ]
	if !ok {
		return nil, fmt.Errorf("no schema for message type %q", typ)
	}
	return schemaFS.ReadFile("schemas/" + name)
}

// Validate checks a raw JSON message against the schema of its type.
func Validate(typ string, raw []byte) error {
	s, err := Schema(typ)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode %s: %w", typ, err)
	}
	return s.Validate(v)
}
