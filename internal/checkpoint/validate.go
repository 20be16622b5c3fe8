package checkpoint

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/firmckpt/internal/checkpoint/schema"
)

// Validator checks decoded checkpoint payloads against the record schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles the embedded record schema.
func NewValidator() (*Validator, error) {
	raw, err := schema.FS.ReadFile(schema.RecordFile)
	if err != nil {
		return nil, fmt.Errorf("read record schema: %w", err)
	}

	return NewValidatorFromBytes(raw)
}

// NewValidatorFromBytes compiles a caller-supplied schema.
func NewValidatorFromBytes(raw []byte) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}

	return &Validator{schema: compiled}, nil
}

// Validate projects doc onto the schema fields and validates it.
// It returns the projected fields on success.
func (v *Validator) Validate(doc any) (map[string]any, error) {
	projected := project(doc)

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(projected))
	if err != nil {
		return nil, fmt.Errorf("validate record: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			msgs = append(msgs, verr.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
	}

	fields, ok := projected.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, projected)
	}

	return fields, nil
}
