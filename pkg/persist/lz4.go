package persist

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4Codec decodes an LZ4 frame and hands the decompressed stream to Inner.
type LZ4Codec struct {
	Inner Decoder
}

// NewLZ4Codec wraps inner with LZ4 frame decompression.
func NewLZ4Codec(inner Decoder) *LZ4Codec {
	return &LZ4Codec{Inner: inner}
}

// Decode implements Decoder.Decode.
func (c *LZ4Codec) Decode(r io.Reader, state any) error {
	err := c.Inner.Decode(lz4.NewReader(r), state)
	if err != nil {
		return fmt.Errorf("lz4: %w", err)
	}

	return nil
}

// Extension returns the inner extension with ".lz4" appended (e.g. ".pkl.lz4").
func (c *LZ4Codec) Extension() string {
	return c.Inner.Extension() + lz4Extension
}

// CompressLZ4 writes src to w as a single LZ4 frame.
func CompressLZ4(w io.Writer, src io.Reader) error {
	zw := lz4.NewWriter(w)

	_, err := io.Copy(zw, src)
	if err != nil {
		return fmt.Errorf("lz4 compress: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}
