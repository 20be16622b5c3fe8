package persist

import (
	"fmt"
	"io"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/types"
)

// PickleCodec decodes Python pickle streams (protocols 0 through 5).
//
// The result is plain Go where Python has a plain counterpart: dict becomes
// map[any]any, list and tuple []any, None nil, int int (or *big.Int), float
// float64, str string, bytes []byte. Instances of any class, including
// dataclasses and datetime, become *Object. Sets keep the decoder's own
// representation.
type PickleCodec struct{}

// NewPickleCodec creates a pickle decoder.
func NewPickleCodec() *PickleCodec {
	return &PickleCodec{}
}

// Decode implements Decoder.Decode. The state must be a *any.
func (c *PickleCodec) Decode(r io.Reader, state any) error {
	target, ok := state.(*any)
	if !ok {
		return fmt.Errorf("%w: pickle needs *any, got %T", ErrUnsupportedTarget, state)
	}

	unpickler := pickle.NewUnpickler(r)
	unpickler.FindClass = func(module, name string) (any, error) {
		return &Class{Module: module, Name: name}, nil
	}

	value, err := unpickler.Load()
	if err != nil {
		return fmt.Errorf("pickle decode: %w", err)
	}

	*target = normalize(value, map[any]any{})

	return nil
}

// Extension implements Decoder.Extension for pickle files.
func (c *PickleCodec) Extension() string {
	return pickleExtension
}

var (
	_ types.Callable        = (*Class)(nil)
	_ types.PyNewable       = (*Class)(nil)
	_ types.PyStateSettable = (*Object)(nil)
)

// Class stands in for a Python class referenced by a pickle. Calling or
// instantiating it yields an *Object that records what it was built from.
type Class struct {
	Module string
	Name   string
}

func (c *Class) String() string {
	return c.Module + "." + c.Name
}

// Call handles REDUCE, e.g. datetime.datetime(b"...").
func (c *Class) Call(args ...any) (any, error) {
	return &Object{Class: c, Args: args}, nil
}

// PyNew handles NEWOBJ, which CPython emits for dataclasses and most
// user-defined classes.
func (c *Class) PyNew(args ...any) (any, error) {
	return &Object{Class: c, Args: args}, nil
}

// Object is an instance of a class the decoder has no Go type for.
type Object struct {
	Class *Class
	Args  []any

	// State is what BUILD passed: usually the instance __dict__, or a
	// (dict, slots) pair for classes with __slots__.
	State any

	// Items and Elems hold entries of dict and list subclasses.
	Items map[any]any
	Elems []any
}

func (o *Object) String() string {
	return o.Class.String()
}

// PySetState handles BUILD.
func (o *Object) PySetState(state any) error {
	o.State = state

	return nil
}

// Set handles SETITEM(S) on dict subclasses such as OrderedDict.
func (o *Object) Set(key, value any) {
	if o.Items == nil {
		o.Items = map[any]any{}
	}

	o.Items[key] = value
}

// Append handles APPEND(S) on list subclasses.
func (o *Object) Append(value any) {
	o.Elems = append(o.Elems, value)
}

// Attrs returns the instance attributes with string names: the __dict__
// state, any slot state, and dict-subclass items. It returns nil when the
// object carries none of them.
func (o *Object) Attrs() map[string]any {
	attrs := map[string]any{}

	mergeStringKeys(attrs, o.Items)

	switch st := o.State.(type) {
	case map[any]any:
		mergeStringKeys(attrs, st)
	case []any:
		for _, part := range st {
			if m, ok := part.(map[any]any); ok {
				mergeStringKeys(attrs, m)
			}
		}
	}

	if len(attrs) == 0 {
		return nil
	}

	return attrs
}

func mergeStringKeys(dst map[string]any, src map[any]any) {
	for k, v := range src {
		if name, ok := k.(string); ok {
			dst[name] = v
		}
	}
}

// normalize converts the unpickler's container types into plain Go values.
// seen maps each source container to its result so shared and cyclic
// references stay shared instead of recursing forever.
func normalize(value any, seen map[any]any) any {
	switch v := value.(type) {
	case *types.Dict:
		if out, ok := seen[v]; ok {
			return out
		}

		out := make(map[any]any, v.Len())
		seen[v] = out

		for _, key := range v.Keys() {
			item, _ := v.Get(key)
			out[hashable(normalize(key, seen))] = normalize(item, seen)
		}

		return out
	case *types.List:
		if out, ok := seen[v]; ok {
			return out
		}

		out := make([]any, v.Len())
		seen[v] = out

		for i := range out {
			out[i] = normalize(v.Get(i), seen)
		}

		return out
	case *types.Tuple:
		if out, ok := seen[v]; ok {
			return out
		}

		out := make([]any, v.Len())
		seen[v] = out

		for i := range out {
			out[i] = normalize(v.Get(i), seen)
		}

		return out
	case *Object:
		if _, ok := seen[v]; ok {
			return v
		}

		seen[v] = v

		for i, arg := range v.Args {
			v.Args[i] = normalize(arg, seen)
		}

		v.State = normalize(v.State, seen)

		for i, elem := range v.Elems {
			v.Elems[i] = normalize(elem, seen)
		}

		if v.Items != nil {
			items := make(map[any]any, len(v.Items))
			for key, item := range v.Items {
				items[hashable(normalize(key, seen))] = normalize(item, seen)
			}

			v.Items = items
		}

		return v
	default:
		return value
	}
}

// hashable keeps scalar keys and renders anything else, such as a tuple
// key, as text so it can index a Go map.
func hashable(key any) any {
	switch key.(type) {
	case nil, string, bool, int, int64, float64, *Object:
		return key
	default:
		return fmt.Sprintf("%v", key)
	}
}
