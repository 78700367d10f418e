package identifier

import (
	"testing"

	"github.com/FocuswithJustin/ttldict/core/errors"
)

func TestQuoted(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"plain", "cache", `"cache"`},
		{"embedded quote", `we"ird`, `"we""ird"`},
		{"only quotes", `""`, `""""""`},
		{"spaces", "my table", `"my table"`},
		{"unicode", "tabelle_ä", `"tabelle_ä"`},
		{"empty", "", `""`},
		{"sql keywords", "select", `"select"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := New(tt.value)
			if err != nil {
				t.Fatalf("New(%q) failed: %v", tt.value, err)
			}
			if got := id.Quoted(); got != tt.want {
				t.Errorf("Quoted() = %s, want %s", got, tt.want)
			}
			if got := id.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
			if got := id.Value(); got != tt.value {
				t.Errorf("Value() = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestNewRejectsNullByte(t *testing.T) {
	_, err := New("bad\x00name")
	if err == nil {
		t.Fatal("New should reject identifiers containing a null byte")
	}
	if !errors.Is(err, errors.ErrInvalidIdentifier) {
		t.Errorf("error should unwrap to ErrInvalidIdentifier, got %v", err)
	}
}

func TestSuffix(t *testing.T) {
	id, err := New("cache")
	if err != nil {
		t.Fatal(err)
	}

	index := id.Suffix("_expire_index")
	if got := index.Value(); got != "cache_expire_index" {
		t.Errorf("Suffix Value() = %q, want %q", got, "cache_expire_index")
	}
	if got := index.Quoted(); got != `"cache_expire_index"` {
		t.Errorf("Suffix Quoted() = %s", got)
	}

	// The original identifier is unchanged.
	if got := id.Value(); got != "cache" {
		t.Errorf("Suffix mutated the receiver: %q", got)
	}
}

func TestSuffixPreservesEscaping(t *testing.T) {
	id, err := New(`we"ird`)
	if err != nil {
		t.Fatal(err)
	}
	if got := id.Suffix("_v0").Quoted(); got != `"we""ird_v0"` {
		t.Errorf("Quoted() = %s, want %s", got, `"we""ird_v0"`)
	}
}
