package persist

import (
	"sort"
	"strings"
)

// Registry maps file extensions to decoders.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry creates a registry holding the given decoders, keyed by their extension.
func NewRegistry(decoders ...Decoder) *Registry {
	reg := &Registry{decoders: make(map[string]Decoder, len(decoders))}

	for _, d := range decoders {
		reg.Register(d)
	}

	return reg
}

// DefaultRegistry knows pickle and JSON payloads, plain or LZ4-framed.
func DefaultRegistry() *Registry {
	pickle := NewPickleCodec()
	jsonCodec := NewJSONCodec()

	return NewRegistry(
		pickle,
		jsonCodec,
		NewLZ4Codec(pickle),
		NewLZ4Codec(jsonCodec),
	)
}

// Register adds or replaces the decoder for d.Extension().
func (r *Registry) Register(d Decoder) {
	r.decoders[strings.ToLower(d.Extension())] = d
}

// Lookup returns the decoder whose extension is the longest suffix of name.
func (r *Registry) Lookup(name string) (Decoder, bool) {
	lower := strings.ToLower(name)

	var (
		best    Decoder
		bestLen int
	)

	for ext, d := range r.decoders {
		if len(ext) > bestLen && strings.HasSuffix(lower, ext) {
			best = d
			bestLen = len(ext)
		}
	}

	return best, best != nil
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		exts = append(exts, ext)
	}

	sort.Strings(exts)

	return exts
}
