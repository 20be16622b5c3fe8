// Package persisttest builds checkpoint payloads for tests.
package persisttest

import (
	"bytes"
	"embed"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sumatoshi-tech/firmckpt/pkg/persist"
)

// cpythonFixtures were written by CPython's pickle module; testdata/generate.py
// recreates them.
//
//go:embed testdata/*.pkl
var cpythonFixtures embed.FS

// CPythonFixture returns the bytes of testdata/name.
func CPythonFixture(tb testing.TB, name string) []byte {
	tb.Helper()

	data, err := cpythonFixtures.ReadFile("testdata/" + name)
	if err != nil {
		tb.Fatalf("fixture %s: %v", name, err)
	}

	return data
}

// Pickle opcodes used by CPython for protocol 2 dicts.
const (
	opProto     = 0x80
	opEmptyDict = '}'
	opEmptyList = ']'
	opMark      = '('
	opSetItems  = 'u'
	opAppends   = 'e'
	opUnicode   = 'X'
	opBinInt1   = 'K'
	opBinInt    = 'J'
	opNone      = 'N'
	opTrue      = 0x88
	opFalse     = 0x89
	opStop      = '.'
)

const maxBinInt1 = 0xff

// Item is one key/value pair of a pickled dict. Order is preserved.
type Item struct {
	Key   string
	Value any
}

// PickleDict encodes items as a protocol 2 pickle of a Python dict, the same
// byte layout pickle.dump produces for str keys and simple values.
// Supported values: string, int, bool, nil, []any and []Item (nested dict).
func PickleDict(items ...Item) []byte {
	var buf bytes.Buffer

	buf.WriteByte(opProto)
	buf.WriteByte(2)
	writeDict(&buf, items)
	buf.WriteByte(opStop)

	return buf.Bytes()
}

// WriteFile writes data to dir/name and returns the full path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()

	path := filepath.Join(dir, name)

	err := os.WriteFile(path, data, 0o600)
	if err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}

	return path
}

// WritePickle writes a pickled dict with the given stage and firm name.
// Empty strings leave the field out.
func WritePickle(tb testing.TB, dir, name, stage, firm string) string {
	tb.Helper()

	var items []Item
	if firm != "" {
		items = append(items, Item{Key: "firm_name", Value: firm})
	}

	if stage != "" {
		items = append(items, Item{Key: "stage", Value: stage})
	}

	items = append(items, Item{Key: "processed_batches", Value: 0})

	return WriteFile(tb, dir, name, PickleDict(items...))
}

// LZ4 frames data.
func LZ4(tb testing.TB, data []byte) []byte {
	tb.Helper()

	var buf bytes.Buffer

	err := persist.CompressLZ4(&buf, bytes.NewReader(data))
	if err != nil {
		tb.Fatalf("lz4: %v", err)
	}

	return buf.Bytes()
}

func writeDict(buf *bytes.Buffer, items []Item) {
	buf.WriteByte(opEmptyDict)

	if len(items) == 0 {
		return
	}

	buf.WriteByte(opMark)

	for _, it := range items {
		writeValue(buf, it.Key)
		writeValue(buf, it.Value)
	}

	buf.WriteByte(opSetItems)
}

func writeValue(buf *bytes.Buffer, value any) {
	switch v := value.(type) {
	case nil:
		buf.WriteByte(opNone)
	case string:
		buf.WriteByte(opUnicode)
		_ = binary.Write(buf, binary.LittleEndian, uint32(len(v)))
		buf.WriteString(v)
	case bool:
		if v {
			buf.WriteByte(opTrue)
		} else {
			buf.WriteByte(opFalse)
		}
	case int:
		if v >= 0 && v <= maxBinInt1 {
			buf.WriteByte(opBinInt1)
			buf.WriteByte(byte(v))

			return
		}

		buf.WriteByte(opBinInt)
		_ = binary.Write(buf, binary.LittleEndian, int32(v))
	case []any:
		buf.WriteByte(opEmptyList)

		if len(v) == 0 {
			return
		}

		buf.WriteByte(opMark)

		for _, elem := range v {
			writeValue(buf, elem)
		}

		buf.WriteByte(opAppends)
	case []Item:
		writeDict(buf, v)
	default:
		panic(fmt.Sprintf("persisttest: unsupported pickle value %T", value))
	}
}
