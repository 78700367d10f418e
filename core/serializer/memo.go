package serializer

import (
	"github.com/FocuswithJustin/ttldict/core/cache"
)

// Memo wraps a serializer with an in-process LRU over decoded values, keyed
// by the serialized bytes. Decoding is pure, so hits are always equivalent to
// a fresh decode. The cached value itself is returned on a hit: callers that
// mutate decoded maps or slices must not use a Memo.
type Memo struct {
	Inner Serializer
	lru   *cache.LRU[string, any]
}

// NewMemo wraps inner with a decode cache using the given configuration.
func NewMemo(inner Serializer, config cache.Config) *Memo {
	return &Memo{
		Inner: inner,
		lru:   cache.NewLRU[string, any](config),
	}
}

// Dumps passes through to the wrapped serializer.
func (m *Memo) Dumps(value any) ([]byte, error) {
	return m.Inner.Dumps(value)
}

// Loads returns the memoized value for data, decoding on first sight.
func (m *Memo) Loads(data []byte) (any, error) {
	key := string(data)
	if v, ok := m.lru.Get(key); ok {
		return v, nil
	}
	v, err := m.Inner.Loads(data)
	if err != nil {
		return nil, err
	}
	m.lru.Put(key, v)
	return v, nil
}

// Stats reports hit, miss and eviction counts for the decode cache.
func (m *Memo) Stats() cache.Stats {
	return m.lru.Stats()
}
