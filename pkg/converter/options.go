package converter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Format identifies a supported renderer output format.
type Format string

// Supported output formats.
const (
	FormatPDF  Format = "pdf"
	FormatText Format = "text"
	FormatCho  Format = "cho"
	FormatHTML Format = "html"
)

// DefaultFormat is applied when a request omits output_format.
const DefaultFormat = FormatPDF

// Formats lists the supported output formats in documentation order.
func Formats() []Format {
	return []Format{FormatPDF, FormatText, FormatCho, FormatHTML}
}

// Valid reports whether the format is one of the supported set.
func (f Format) Valid() bool {
	switch f {
	case FormatPDF, FormatText, FormatCho, FormatHTML:
		return true
	}
	return false
}

// Extension returns the output file extension for the format.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type declared for artifacts of this format.
// The octet-stream fallback is defensive only; upstream validation keeps
// unknown formats out of the conversion path.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatText, FormatCho:
		return "text/plain"
	case FormatHTML:
		return "text/html"
	}
	return "application/octet-stream"
}

// MetaEntry is one metadata key/value pair. Entries keep the insertion order
// of the request's meta object because the renderer applies --meta flags
// positionally.
type MetaEntry struct {
	Key   string
	Value string
}

// Options is the validated form of a request's options object. A zero value
// means "renderer defaults for everything". Unrecognized option keys are
// ignored during decoding; rejecting them is the HTTP layer's decision.
type Options struct {
	Transpose *int
	Meta      []MetaEntry
	Diagrams  *bool
	Configs   []string
}

// UnmarshalJSON validates and decodes the options object. Every failure is a
// *ValidationError naming the offending field.
func (o *Options) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &ValidationError{Field: "options", Message: "must be an object"}
	}

	*o = Options{}

	if v, ok := raw["transpose"]; ok {
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			return &ValidationError{Field: "transpose", Message: "must be an integer"}
		}
		o.Transpose = &n
	}

	if v, ok := raw["meta"]; ok {
		meta, err := decodeMeta(v)
		if err != nil {
			return err
		}
		o.Meta = meta
	}

	if v, ok := raw["diagrams"]; ok {
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return &ValidationError{Field: "diagrams", Message: "must be a boolean"}
		}
		o.Diagrams = &b
	}

	if v, ok := raw["config"]; ok {
		configs, err := decodeConfig(v)
		if err != nil {
			return err
		}
		o.Configs = configs
	}

	return nil
}

// decodeMeta reads the meta object with a token decoder so that flag order
// follows the object's insertion order; unmarshalling into a Go map would
// scramble it.
func decodeMeta(raw json.RawMessage) ([]MetaEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, &ValidationError{Field: "meta", Message: "must be an object"}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &ValidationError{Field: "meta", Message: "must be an object"}
	}

	var entries []MetaEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &ValidationError{Field: "meta", Message: "must be an object"}
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, &ValidationError{Field: "meta", Message: "must be an object"}
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return nil, &ValidationError{Field: "meta", Message: "values must be strings"}
		}
		entries = append(entries, MetaEntry{Key: key, Value: value})
	}

	return entries, nil
}

// decodeConfig accepts a string (comma-splittable into an ordered chain), an
// array of strings, or any other non-null scalar, which is coerced to its
// string form and passed as a single config name. The scalar coercion is a
// deliberately preserved permissive fallback. Null is rejected: it would
// otherwise slip through the string decode as an empty chain.
func decodeConfig(raw json.RawMessage) ([]string, error) {
	if strings.TrimSpace(string(raw)) == "null" {
		return nil, &ValidationError{Field: "config", Message: "must be a string or array"}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return SplitConfigs(s), nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		configs := make([]string, 0, len(list))
		for _, item := range list {
			var entry string
			if err := json.Unmarshal(item, &entry); err != nil {
				return nil, &ValidationError{Field: "config", Message: "array entries must be strings"}
			}
			configs = append(configs, entry)
		}
		return configs, nil
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		return nil, &ValidationError{Field: "config", Message: "must be a string or array"}
	}
	return []string{trimmed}, nil
}

// SplitConfigs splits a comma-separated config chain, trimming surrounding
// whitespace and dropping empty pieces, preserving left-to-right order.
// "ukulele, modern3" is equivalent to two separate config flags.
func SplitConfigs(value string) []string {
	var configs []string
	for _, piece := range strings.Split(value, ",") {
		if piece = strings.TrimSpace(piece); piece != "" {
			configs = append(configs, piece)
		}
	}
	return configs
}

// String renders a compact summary for logging. Option values are summarized
// rather than dumped so log lines stay bounded.
func (o Options) String() string {
	var parts []string
	if o.Transpose != nil {
		parts = append(parts, fmt.Sprintf("transpose=%d", *o.Transpose))
	}
	if len(o.Meta) > 0 {
		parts = append(parts, fmt.Sprintf("meta=%d", len(o.Meta)))
	}
	if o.Diagrams != nil {
		parts = append(parts, fmt.Sprintf("diagrams=%t", *o.Diagrams))
	}
	if len(o.Configs) > 0 {
		parts = append(parts, fmt.Sprintf("configs=%d", len(o.Configs)))
	}
	if len(parts) == 0 {
		return "defaults"
	}
	return strings.Join(parts, " ")
}
