package mcp

import "github.com/Sumatoshi-tech/firmckpt/internal/checkpoint"

// ScanValidator returns the validator shared by every scan the server runs.
func (s *Server) ScanValidator() *checkpoint.Validator {
	return s.scanOptions.Validator
}
