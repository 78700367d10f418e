package serializer

import (
	"bytes"
	"fmt"

	"github.com/zeebo/blake3"
)

// digestSize is the length of the blake3 digest prepended by Checked.
const digestSize = 32

// Checked wraps an inner codec with an integrity digest. Dumps prepends the
// blake3 hash of the inner payload; Loads verifies it before decoding.
// Useful when the database file travels between hosts and silent value
// corruption must be detected rather than decoded into garbage.
type Checked struct {
	Inner Serializer
}

// NewChecked returns a Checked codec around inner.
func NewChecked(inner Serializer) *Checked {
	return &Checked{Inner: inner}
}

// Dumps implements Serializer.
func (c *Checked) Dumps(v any) ([]byte, error) {
	body, err := c.Inner.Dumps(v)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(body)
	out := make([]byte, 0, digestSize+len(body))
	out = append(out, sum[:]...)
	return append(out, body...), nil
}

// Loads implements Serializer.
func (c *Checked) Loads(data []byte) (any, error) {
	if len(data) < digestSize {
		return nil, fmt.Errorf("checked: payload shorter than digest (%d bytes)", len(data))
	}
	want, body := data[:digestSize], data[digestSize:]
	sum := blake3.Sum256(body)
	if !bytes.Equal(want, sum[:]) {
		return nil, fmt.Errorf("checked: digest mismatch")
	}
	return c.Inner.Loads(body)
}
