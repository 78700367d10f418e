// Package serializer defines the value codec contract for the expiring store
// and provides the built-in codecs.
//
// A Serializer turns an arbitrary value into the bytes persisted in the value
// column and back. Any type implementing the two methods is accepted; the
// store never requires a particular concrete codec.
package serializer

import (
	"encoding/json"
)

// Serializer is the pluggable value codec.
//
// Loads must invert Dumps exactly: Loads(Dumps(v)) == v for every value the
// codec claims to support.
type Serializer interface {
	// Dumps serializes a value into bytes suitable for a binary column.
	Dumps(v any) ([]byte, error)

	// Loads inverts Dumps.
	Loads(data []byte) (any, error)
}

// JSON serializes values as JSON. Note that JSON round-trips all numbers as
// float64, matching encoding/json's behavior for untyped decoding.
type JSON struct{}

// Dumps implements Serializer.
func (JSON) Dumps(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Loads implements Serializer.
func (JSON) Loads(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Default returns the codec used when none is configured: JSON wrapped in the
// compact compress-when-beneficial framing.
func Default() Serializer {
	return NewCompact(JSON{})
}
