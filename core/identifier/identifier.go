// Package identifier provides safe quoting of user-supplied SQLite identifiers.
//
// Table names are the only user-controlled text that ends up inside generated
// SQL; everything else is bound as a parameter. Funneling every table name
// through this package keeps the statement builders free of injection
// hazards.
package identifier

import (
	"strings"

	"github.com/FocuswithJustin/ttldict/core/errors"
)

// Identifier is a validated SQLite identifier. The zero value is not valid;
// construct one with New.
type Identifier struct {
	value string
}

// New validates value as a SQLite identifier. SQLite cannot represent a null
// byte inside an identifier, so names containing one are rejected.
func New(value string) (Identifier, error) {
	if strings.ContainsRune(value, '\x00') {
		return Identifier{}, errors.NewInvalidIdentifier(value, "must not contain any null bytes")
	}
	return Identifier{value: value}, nil
}

// Value returns the raw, unquoted identifier text.
func (id Identifier) Value() string {
	return id.value
}

// Suffix returns a new Identifier with suffix appended to the raw name.
// Used for derived schema object names such as indexes and triggers.
func (id Identifier) Suffix(suffix string) Identifier {
	return Identifier{value: id.value + suffix}
}

// Quoted returns the identifier double-quoted for inclusion in SQL text,
// with embedded quote characters doubled.
func (id Identifier) Quoted() string {
	return `"` + strings.ReplaceAll(id.value, `"`, `""`) + `"`
}

// String implements fmt.Stringer and returns the quoted form, so an
// Identifier interpolated into SQL text is always escaped.
func (id Identifier) String() string {
	return id.Quoted()
}
