package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const attrErrorType = "error.type"

// Error classes attached to failed spans.
const (
	ErrTypeNotFound = "not_found"
	ErrTypeCorrupt  = "corrupt"
	ErrTypeCanceled = "canceled"
)

// RecordSpanError marks span as failed with err and an error class.
func RecordSpanError(span trace.Span, err error, errType string) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(attrErrorType, errType))
}
