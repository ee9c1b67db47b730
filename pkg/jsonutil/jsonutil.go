// Package jsonutil wraps github.com/go-json-experiment/json for report
// output. Map keys are always sorted so repeated runs diff cleanly.
package jsonutil

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

var deterministic = json.Deterministic(true)

// Marshal returns the compact JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v, deterministic)
}

// MarshalIndent returns the JSON encoding of v indented by indent.
func MarshalIndent(v any, indent string) ([]byte, error) {
	return json.Marshal(v, deterministic, jsontext.WithIndent(indent))
}

// Unmarshal parses data into v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Encoder writes one JSON value per Encode call, each followed by a newline.
type Encoder struct {
	w      io.Writer
	indent string
}

// NewStreamEncoder creates an encoder that writes to w.
func NewStreamEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// SetIndent makes subsequent values multi-line, indented by indent.
func (e *Encoder) SetIndent(indent string) {
	e.indent = indent
}

// Encode writes v and a trailing newline.
func (e *Encoder) Encode(v any) error {
	opts := []json.Options{deterministic}
	if e.indent != "" {
		opts = append(opts, jsontext.WithIndent(e.indent))
	}
	if err := json.MarshalWrite(e.w, v, opts...); err != nil {
		return err
	}
	_, err := e.w.Write([]byte{'\n'})
	return err
}
