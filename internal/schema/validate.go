// Package schema validates runner events against the embedded JSON schema.
package schema

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	schemafs "orisa.dev/pkg/orisa/schema"
)

const eventSchemaName = "event.schema.json"

var (
	eventSchema *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

// compileSchemas compiles the embedded event schema once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		eventData, err := schemafs.FS.ReadFile(eventSchemaName)
		if err != nil {
			compileErr = fmt.Errorf("read event schema: %w", err)
			return
		}

		eventDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(eventData))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal event schema: %w", err)
			return
		}

		if err := compiler.AddResource(eventSchemaName, eventDoc); err != nil {
			compileErr = fmt.Errorf("add event schema resource: %w", err)
			return
		}

		eventSchema, err = compiler.Compile(eventSchemaName)
		if err != nil {
			compileErr = fmt.Errorf("compile event schema: %w", err)
			return
		}
	})

	return compileErr
}

// ValidateEvent validates one encoded event envelope.
func ValidateEvent(data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := eventSchema.Validate(doc); err != nil {
		return fmt.Errorf("event validation failed: %w", err)
	}

	return nil
}
