package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/corrmatrix/internal/analysis"
)

type jsonLoader struct{}

func (jsonLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".json")
}

func (jsonLoader) Load(path string, _ Options) ([]analysis.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// ReadJSON reads either a bare array of records or an {"data": [...]} envelope.
func ReadJSON(r io.Reader) ([]analysis.Record, error) {
	raw, err := decodeValue(r)
	if err != nil {
		return nil, err
	}
	if jsonKind(raw) == "object" {
		return decodeEnvelope(raw)
	}
	return DecodeRecords(raw)
}

// ReadEnvelope reads an {"data": [...]} body. A missing or null "data"
// is a structural error.
func ReadEnvelope(r io.Reader) ([]analysis.Record, error) {
	raw, err := decodeValue(r)
	if err != nil {
		return nil, err
	}
	if k := jsonKind(raw); k != "object" {
		return nil, &analysis.StructuralError{Index: -1, Got: k}
	}
	return decodeEnvelope(raw)
}

// decodeValue reads exactly one JSON value; anything after it is an error.
func decodeValue(r io.Reader) (json.RawMessage, error) {
	dec := json.NewDecoder(r)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	switch _, err := dec.Token(); {
	case errors.Is(err, io.EOF):
	case err != nil:
		return nil, fmt.Errorf("decode json: trailing data: %w", err)
	default:
		return nil, errors.New("decode json: unexpected data after top-level value")
	}
	return raw, nil
}

// decodeEnvelope looks up "data" by exact key; encoding/json struct
// matching would also accept "DATA" or "Data".
func decodeEnvelope(raw json.RawMessage) ([]analysis.Record, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	data, ok := env["data"]
	if !ok || len(data) == 0 {
		return nil, &analysis.StructuralError{Index: -1, Got: `object without "data"`}
	}
	return DecodeRecords(data)
}

// DecodeRecords decodes a JSON array of objects. Numbers keep their text as
// json.Number; any element that is not an object is a structural error.
func DecodeRecords(raw json.RawMessage) ([]analysis.Record, error) {
	if k := jsonKind(raw); k != "array" {
		return nil, &analysis.StructuralError{Index: -1, Got: k}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	out := make([]analysis.Record, len(elems))
	for i, el := range elems {
		if k := jsonKind(el); k != "object" {
			return nil, &analysis.StructuralError{Index: i, Got: k}
		}
		dec := json.NewDecoder(bytes.NewReader(el))
		dec.UseNumber()
		var rec analysis.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i+1, err)
		}
		out[i] = rec
	}
	return out, nil
}

func jsonKind(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "nothing"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
