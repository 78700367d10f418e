package serializer

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// Compression selects the algorithm used by the Compact codec when
// compression wins.
type Compression string

const (
	// Zlib is the default algorithm and the wire-compatible one: its output
	// carries the 'Z' tag understood by every implementation of this format.
	Zlib Compression = "zlib"

	// XZ trades encode speed for ratio. Its output carries the 'X' tag.
	XZ Compression = "xz"
)

// One-byte framing tags. The tag is part of the persisted wire format.
const (
	tagRaw  = 'R'
	tagZlib = 'Z'
	tagXZ   = 'X'
)

// Compact wraps an inner codec with conditional compression. Dumps
// serializes through the inner codec, compresses the result, and keeps
// whichever encoding is smaller, prefixing a one-byte tag. Loads dispatches
// on the tag, accepting any known algorithm regardless of the configured one.
type Compact struct {
	Inner       Serializer
	Compression Compression
}

// NewCompact returns a Compact codec around inner using Zlib compression.
func NewCompact(inner Serializer) *Compact {
	return &Compact{Inner: inner, Compression: Zlib}
}

// Dumps implements Serializer.
func (c *Compact) Dumps(v any) ([]byte, error) {
	body, err := c.Inner.Dumps(v)
	if err != nil {
		return nil, err
	}

	tag, compressed, err := c.compress(body)
	if err != nil {
		return nil, err
	}

	if len(compressed) < len(body) {
		out := make([]byte, 0, len(compressed)+1)
		out = append(out, tag)
		return append(out, compressed...), nil
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, tagRaw)
	return append(out, body...), nil
}

// Loads implements Serializer.
func (c *Compact) Loads(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("compact: empty payload")
	}

	tag, body := data[0], data[1:]
	switch tag {
	case tagRaw:
		return c.Inner.Loads(body)
	case tagZlib:
		r, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("compact: %w", err)
		}
		defer r.Close()
		plain, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("compact: %w", err)
		}
		return c.Inner.Loads(plain)
	case tagXZ:
		r, err := xz.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("compact: %w", err)
		}
		plain, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("compact: %w", err)
		}
		return c.Inner.Loads(plain)
	default:
		return nil, fmt.Errorf("compact: unknown tag byte %#x", tag)
	}
}

func (c *Compact) compress(body []byte) (byte, []byte, error) {
	var buf bytes.Buffer
	switch c.Compression {
	case XZ:
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return 0, nil, fmt.Errorf("compact: %w", err)
		}
		if _, err := w.Write(body); err != nil {
			return 0, nil, fmt.Errorf("compact: %w", err)
		}
		if err := w.Close(); err != nil {
			return 0, nil, fmt.Errorf("compact: %w", err)
		}
		return tagXZ, buf.Bytes(), nil
	case Zlib, "":
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			return 0, nil, fmt.Errorf("compact: %w", err)
		}
		if err := w.Close(); err != nil {
			return 0, nil, fmt.Errorf("compact: %w", err)
		}
		return tagZlib, buf.Bytes(), nil
	default:
		return 0, nil, fmt.Errorf("compact: unknown compression %q", c.Compression)
	}
}
