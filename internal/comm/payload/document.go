package payload

import (
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/threadcomm/internal/comm"
)

// Format is an encoding a Document can be parsed from
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath guesses the format from a file extension, defaulting to JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Document is a JSON-like tree of maps, slices and scalars
type Document map[string]any

var _ comm.Payload = Document(nil)

// Parse decodes data in the given format into a Document
func Parse(format Format, data []byte) (Document, error) {
	var doc map[string]any
	var err error

	switch format {
	case FormatJSON:
		err = sonic.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s parse error: %w", format, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return Document(doc), nil
}

// JSON encodes the document
func (d Document) JSON() ([]byte, error) {
	return sonic.Marshal(map[string]any(d))
}

// Get walks nested maps along path and returns the value found there
func (d Document) Get(path ...string) (any, bool) {
	var cur any = map[string]any(d)
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// ShallowClone copies the top-level map; nested values are shared
func (d Document) ShallowClone() comm.Payload {
	if d == nil {
		return Document{}
	}
	return maps.Clone(d)
}

// DeepClone copies the whole tree. Scalars and timestamps are kept as they
// are. Any other value is copied through its JSON encoding, so it comes back
// as the generic JSON form; one that cannot be encoded panics, which Send
// reports as an allocation failure.
func (d Document) DeepClone() comm.Payload {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		time.Time, toml.LocalDate, toml.LocalTime, toml.LocalDateTime:
		return val
	case Document:
		return val.DeepClone()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	default:
		data, err := sonic.Marshal(val)
		if err != nil {
			panic(fmt.Errorf("copy %T: %w", val, err))
		}
		var copied any
		if err := sonic.Unmarshal(data, &copied); err != nil {
			panic(fmt.Errorf("copy %T: %w", val, err))
		}
		return copied
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	default:
		return nil, false
	}
}
