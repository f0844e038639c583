// Package dump reads and writes ABI dump files. Two encodings share the
// abi.Dump schema: JSON, and YAML as a human-editable text form. Either may
// be compressed, selected by file suffix.
package dump

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/abitools/abilinker/abi"
)

// Format is the encoding of a dump file.
type Format uint8

// Supported formats. FormatAuto is only valid for reading.
const (
	FormatJSON Format = iota
	FormatYAML
	FormatAuto
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatAuto:
		return "auto"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "auto":
		return FormatAuto, nil
	}
	return 0, fmt.Errorf("unknown dump format %q, valid formats are json, yaml and auto", s)
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	v, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Detect guesses the format of data: JSON documents are recognised with
// gjson, everything else is treated as YAML.
func Detect(data []byte) Format {
	if gjson.ValidBytes(data) {
		return FormatJSON
	}
	return FormatYAML
}

func decode(format Format, data []byte) (*abi.Dump, error) {
	if format == FormatAuto {
		format = Detect(data)
	}

	d := &abi.Dump{}
	switch format {
	case FormatJSON:
		if len(bytes.TrimSpace(data)) == 0 {
			return d, nil
		}
		if !gjson.ParseBytes(data).IsObject() {
			return nil, fmt.Errorf("a JSON dump must be an object")
		}
		if err := json.Unmarshal(data, d); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, d); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported dump format %s", format)
	}
	return d, nil
}

func encode(format Format, d *abi.Dump) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(d, "", " ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported output dump format %s", format)
}
