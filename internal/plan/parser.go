// Package plan decodes and validates serialized infrastructure plans and
// provides read-only queries over the parsed model.
package plan

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// Format is the serialization of the raw plan payload.
type Format string

const (
	FormatJSON   Format = "json"
	FormatBinary Format = "binary"
)

// Valid reports whether f is a recognised plan format.
func (f Format) Valid() bool {
	return f == FormatJSON || f == FormatBinary
}

// Parse decodes raw into a validated Plan.
//
// For FormatJSON the payload may be literal JSON or base64-encoded JSON;
// base64 is attempted first and the input is treated as literal JSON when
// decoding fails or does not yield a JSON document. FormatBinary always
// fails: binary plans must be converted with `terraform show -json` first.
func Parse(raw string, format Format) (*models.Plan, error) {
	switch format {
	case FormatJSON:
	case FormatBinary:
		return nil, &models.ParseError{
			Reason: "unsupported format: binary plans require external conversion (terraform show -json)",
		}
	default:
		return nil, &models.ParseError{Reason: fmt.Sprintf("unsupported format: %q", format)}
	}

	data := decodePayload(raw)
	if len(data) == 0 {
		return nil, &models.ParseError{Reason: "empty plan payload"}
	}

	var p models.Plan
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, &models.ParseError{Reason: "invalid plan JSON", Err: err}
	}

	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParseFile reads path and parses its contents with Parse.
func ParseFile(path string, format Format) (*models.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file %q: %w", path, err)
	}
	return Parse(string(data), format)
}

// decodePayload returns the JSON bytes carried by raw, unwrapping base64
// when the input is a base64 encoding of a JSON document.
func decodePayload(raw string) []byte {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		decoded, err := enc.DecodeString(trimmed)
		if err != nil {
			continue
		}
		decoded = bytes.TrimSpace(decoded)
		if json.Valid(decoded) {
			return decoded
		}
	}
	return []byte(trimmed)
}
