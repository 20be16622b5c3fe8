package checkpoint

import (
	"errors"
	"fmt"
)

// Sentinel errors for checkpoint scanning.
var (
	// ErrDirectoryNotFound means the checkpoint directory is missing, unreadable, or not a directory.
	ErrDirectoryNotFound = errors.New("checkpoint directory not found")
	// ErrRecordCorrupt means a checkpoint file exists but could not be turned into a record.
	ErrRecordCorrupt = errors.New("corrupt checkpoint record")
	// ErrNoDecoder means no codec is registered for a matched file's extension.
	ErrNoDecoder = errors.New("no decoder for file extension")
	// ErrRecordTooLarge means a checkpoint file exceeds the configured size limit.
	ErrRecordTooLarge = errors.New("checkpoint file exceeds size limit")
	// ErrSchemaViolation means a decoded record does not match the record schema.
	ErrSchemaViolation = errors.New("record schema violation")
	// ErrInvalidPattern means the checkpoint file pattern is not a valid glob.
	ErrInvalidPattern = errors.New("invalid checkpoint file pattern")
)

// RecordError describes a single checkpoint file that could not be read.
// It matches [ErrRecordCorrupt] with errors.Is.
type RecordError struct {
	Path string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrRecordCorrupt and the underlying cause.
func (e *RecordError) Unwrap() []error {
	return []error{ErrRecordCorrupt, e.Err}
}
