// Package document decodes input documents into the shapes the Native
// provider works on and encodes results back out.
package document

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

var (
	ErrDecode        = errors.New("document: decode failed")
	ErrEncode        = errors.New("document: encode failed")
	ErrUnknownFormat = errors.New("document: unknown format")
)

// Format is an input or output encoding.
type Format string

const (
	FormatAuto   Format = "auto"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatNDJSON Format = "ndjson"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatAuto, FormatJSON, FormatYAML, FormatNDJSON:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "jsonl":
		return FormatNDJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Detect resolves FormatAuto from a file name. Unknown extensions and
// standard input are read as JSON.
func Detect(f Format, filename string) Format {
	if f != FormatAuto {
		return f
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	}
	return FormatJSON
}

// Decode reads exactly one document. JSON numbers are kept as json.Number
// so integers and decimals survive unchanged.
func Decode(r io.Reader, f Format) (any, error) {
	switch f {
	case FormatJSON, FormatAuto:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: json: %v", ErrDecode, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("%w: json: unexpected data after document", ErrDecode)
		}
		return v, nil
	case FormatYAML:
		var v any
		if err := yaml.NewDecoder(r).Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: yaml: %v", ErrDecode, err)
		}
		return normalize(v), nil
	case FormatNDJSON:
		return nil, fmt.Errorf("%w: ndjson holds a stream of documents, use Stream", ErrDecode)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Stream yields every document of r: one per line for NDJSON, one per
// "---" separated document for YAML, and a single one otherwise. Iteration
// stops after the first error.
func Stream(r io.Reader, f Format) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		switch f {
		case FormatNDJSON:
			streamLines(r, yield)
		case FormatYAML:
			streamYAML(r, yield)
		default:
			yield(Decode(r, f))
		}
	}
}

func streamLines(r io.Reader, yield func(any, error) bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		v, err := Decode(bytes.NewReader(raw), FormatJSON)
		if err != nil {
			yield(nil, fmt.Errorf("line %d: %w", line, err))
			return
		}
		if !yield(v, nil) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		yield(nil, fmt.Errorf("%w: ndjson: %v", ErrDecode, err))
	}
}

func streamYAML(r io.Reader, yield func(any, error) bool) {
	dec := yaml.NewDecoder(r)
	for n := 1; ; n++ {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(nil, fmt.Errorf("%w: yaml document %d: %v", ErrDecode, n, err))
			return
		}
		if !yield(normalize(v), nil) {
			return
		}
	}
}

// normalize turns maps with non-string keys into map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = normalize(child)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[fmt.Sprint(k)] = normalize(child)
		}
		return out
	case []any:
		for i, child := range t {
			t[i] = normalize(child)
		}
		return t
	}
	return v
}

// Encode writes v followed by a newline. JSON output is indented when
// pretty is set; YAML output is always block style.
func Encode(w io.Writer, v any, f Format, pretty bool) error {
	switch f {
	case FormatJSON, FormatNDJSON, FormatAuto:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if pretty && f != FormatNDJSON {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("%w: json: %v", ErrEncode, err)
		}
		return nil
	case FormatYAML:
		payload, err := yaml.Marshal(plain(v))
		if err != nil {
			return fmt.Errorf("%w: yaml: %v", ErrEncode, err)
		}
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("%w: yaml: %v", ErrEncode, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// plain copies v replacing json.Number with int64 or float64, which the
// YAML encoder renders as numbers rather than strings.
func plain(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = plain(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = plain(child)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return v
}
