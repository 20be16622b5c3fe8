// Package checkpoint reads per-firm pipeline checkpoints and summarizes them by stage.
package checkpoint

import (
	"fmt"

	"github.com/Sumatoshi-tech/firmckpt/pkg/persist"
)

// Unknown is used for a stage or firm name the record does not carry.
const Unknown = "Unknown"

// Field names read from a checkpoint.
const (
	fieldStage    = "stage"
	fieldFirmName = "firm_name"
)

// DefaultDir is where the notebook mounts the checkpoint directory.
const DefaultDir = "/content/drive/MyDrive/checkpoints"

// DefaultPattern matches the files the processing pipeline writes.
const DefaultPattern = "*_checkpoint.pkl"

// PipelineStages lists the processing stages in the order the pipeline runs them.
var PipelineStages = []string{"validation", "nlp_processing", "topic_modeling", "embeddings"}

// Record is the part of a checkpoint the scanner cares about.
type Record struct {
	Path     string
	Stage    string
	FirmName string
	Size     int64
}

// project reduces a decoded payload to the fields covered by the record schema.
// Mappings and pickled objects with instance attributes are read; any other
// payload is returned as its type name so the schema rejects it. Values that
// are neither JSON scalars nor null are replaced by an object describing
// their type, which also fails validation.
func project(doc any) any {
	fields := map[string]any{}

	if obj, ok := doc.(*persist.Object); ok {
		attrs := obj.Attrs()
		if attrs == nil {
			return obj.String()
		}

		doc = attrs
	}

	switch m := doc.(type) {
	case map[string]any:
		copyField(fields, fieldStage, m[fieldStage], hasKey(m, fieldStage))
		copyField(fields, fieldFirmName, m[fieldFirmName], hasKey(m, fieldFirmName))
	case map[any]any:
		v, ok := m[fieldStage]
		copyField(fields, fieldStage, v, ok)
		v, ok = m[fieldFirmName]
		copyField(fields, fieldFirmName, v, ok)
	default:
		return fmt.Sprintf("%T", doc)
	}

	return fields
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]

	return ok
}

func copyField(dst map[string]any, key string, value any, present bool) {
	if !present {
		return
	}

	switch v := value.(type) {
	case nil:
		dst[key] = nil
	case string, bool, int, int64, float64:
		dst[key] = v
	case *persist.Object:
		dst[key] = map[string]any{"python_type": v.String()}
	default:
		dst[key] = map[string]any{"python_type": fmt.Sprintf("%T", value)}
	}
}

// resolve fills Stage and FirmName from a validated projection.
func resolve(fields map[string]any, rec *Record) {
	rec.Stage = stringOr(fields[fieldStage], Unknown)
	rec.FirmName = stringOr(fields[fieldFirmName], Unknown)
}

func stringOr(v any, fallback string) string {
	s, ok := v.(string)
	if !ok {
		return fallback
	}

	return s
}
